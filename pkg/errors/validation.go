package errors

import (
	"slices"
	"strings"
)

// ValidateAddress checks that addr indexes one of n entities of the given kind.
func ValidateAddress(kind string, addr, n int) error {
	if addr < 0 || addr >= n {
		return New(ErrCodeInvalidAddress, "%s address %d out of range [0, %d)", kind, addr, n)
	}
	return nil
}

// ParseEnum matches value case-insensitively against allowed and returns the
// canonical spelling. The error lists every accepted value.
func ParseEnum(setting, value string, allowed []string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if slices.Contains(allowed, v) {
		return v, nil
	}
	return "", New(ErrCodeInvalidSetting, "invalid %s %q (must be one of: %s)",
		setting, value, strings.Join(allowed, ", "))
}
