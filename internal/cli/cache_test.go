package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/shiftsched/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	def, err := cache.DefaultDir()
	if err != nil {
		t.Skipf("no user cache dir: %v", err)
	}

	tests := []struct {
		name string
		cfg  cache.Config
		want string
	}{
		{"file default", cache.Config{Backend: cache.BackendFile}, def},
		{"empty backend", cache.Config{}, def},
		{"badger default", cache.Config{Backend: cache.BackendBadger}, filepath.Join(def, "badger")},
		{"configured dir", cache.Config{Backend: cache.BackendBadger, Dir: "/tmp/sched"}, "/tmp/sched"},
		{"remote backend", cache.Config{Backend: cache.BackendRedis}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cacheDir(tt.cfg)
			if err != nil {
				t.Fatalf("cacheDir() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}

	if !strings.HasSuffix(def, appName) {
		t.Errorf("DefaultDir() = %q, should end with %q", def, appName)
	}
}

func TestCacheCommands(t *testing.T) {
	cfgPath := writeConfig(t, "[cache]\nbackend = \"file\"\ndir = \""+filepath.ToSlash(t.TempDir())+"\"\n")

	out, err := runCLI(t, "cache", "path", "--config", cfgPath)
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("cache path printed nothing")
	}

	if _, err := runCLI(t, "cache", "clear", "--config", cfgPath); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, err := runCLI(t, "cache", "clear", "--cache", "memory"); err != nil {
		t.Fatalf("cache clear memory: %v", err)
	}
	if _, err := runCLI(t, "cache", "clear", "--cache", "bogus"); err == nil {
		t.Error("cache clear accepted an unknown backend")
	}
}
