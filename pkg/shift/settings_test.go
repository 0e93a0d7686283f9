package shift

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"case insensitive", func(s *Settings) { s.RotationAlgo = " SIMPLE " }, false},
		{"unknown algo", func(s *Settings) { s.RotationAlgo = "bogus" }, true},
		{"unknown tie breaker", func(s *Settings) { s.KahnTieBreaker = "lifo" }, true},
		{"negative iterations", func(s *Settings) { s.Passes.MaxIterations = -1 }, true},
		{"nan priority", func(s *Settings) { s.Priorities = []Priority{{Op: 0, Value: math.NaN()}} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				require.True(t, errors.Is(err, errors.ErrCodeInvalidSetting), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSettingsValidateNormalizes(t *testing.T) {
	s := DefaultSettings()
	s.KahnTieBreaker = "FiFo"
	require.NoError(t, s.Validate())
	require.Equal(t, KahnFIFO, s.KahnTieBreaker)
}

func TestTermination(t *testing.T) {
	require.True(t, Unbounded().enabled())
	require.False(t, Disabled().enabled())
	require.False(t, RotationTermination{MaxSeconds: 1}.enabled())
}

func TestPassPresets(t *testing.T) {
	d := DefaultPasses()
	require.True(t, d.SlideLinks)
	require.False(t, d.ConnectContiguousAllocs)

	a := AllPasses()
	require.True(t, a.ConnectContiguousAllocs)
	require.True(t, a.LinkTightDrops)

	require.Equal(t, Passes{MaxIterations: DefaultMaxPassIterations}, NoPasses())
}
