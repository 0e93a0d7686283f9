package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/config"
	"github.com/matzehuels/shiftsched/pkg/errors"
	pkgio "github.com/matzehuels/shiftsched/pkg/io"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// runCLI runs the root command with args and returns what it wrote to
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SHIFTSCHED_CACHE", "")
	var out, logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shiftsched.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"svg", []string{"svg"}},
		{" SVG, dot ,,png", []string{"svg", "dot", "png"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseFormats(tt.in)); diff != "" {
			t.Errorf("parseFormats(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "graphs/model.json", "graphs/model"},
		{"out/result.json", "model.json", "out/result"},
		{"out/drawing.svg", "model.json", "out/drawing"},
		{"out/drawing", "model.json", "out/drawing"},
		{"out/drawing.v2", "model.json", "out/drawing.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestSeedRange(t *testing.T) {
	require.Nil(t, seedRange(5, 0))
	require.Equal(t, []uint32{5, 6, 7}, seedRange(5, 3))
}

func TestParsePriorities(t *testing.T) {
	got, err := parsePriorities([]string{"3=2.5", " 0 = -1 "})
	require.NoError(t, err)
	require.Equal(t, []shift.Priority{{Op: 3, Value: 2.5}, {Op: 0, Value: -1}}, got)

	for _, bad := range []string{"3", "x=1", "3=y"} {
		_, err := parsePriorities([]string{bad})
		require.True(t, errors.Is(err, errors.ErrCodeInvalidSetting), "%q: got %v", bad, err)
	}
}

func TestSettingsFlags(t *testing.T) {
	var f settingsFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse([]string{"--kahn", "FIFO", "--passes", "none", "--priority", "3=2.5", "--max-seconds", "4"}))

	s := shift.DefaultSettings()
	s.RotationAlgo = shift.RotationSimple
	s.Passes.MaxIterations = 5
	require.NoError(t, f.apply(fs, &s))

	want := shift.NoPasses()
	want.MaxIterations = 5
	require.Equal(t, shift.KahnFIFO, s.KahnTieBreaker)
	require.Equal(t, shift.RotationSimple, s.RotationAlgo, "unset flag overrode the setting")
	require.Equal(t, shift.DefaultSeed, s.Seed)
	require.Equal(t, want, s.Passes)
	require.Equal(t, []shift.Priority{{Op: 3, Value: 2.5}}, s.Priorities)
	require.Equal(t, 4.0, s.Termination.MaxSeconds)
	require.Equal(t, shift.DefaultMaxRotations, s.Termination.MaxRotations)
}

func TestCacheFlag(t *testing.T) {
	var f cacheFlag
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse([]string{"--cache-namespace", "team-a"}))

	cfg := config.Default()
	cfg.Cache.Backend = "memory"
	require.NoError(t, f.apply(fs, &cfg))
	require.Equal(t, "memory", cfg.Cache.Backend, "unset flag overrode the backend")
	require.Equal(t, "team-a", cfg.Cache.Namespace)
}

func TestSettingsFlagsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--passes", "some"},
		{"--kahn", "lifo"},
		{"--algo", "bubble"},
		{"--priority", "1"},
	} {
		var f settingsFlags
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		f.register(fs)
		require.NoError(t, fs.Parse(args))
		s := shift.DefaultSettings()
		require.Error(t, f.apply(fs, &s), "%v", args)
	}
}

func TestScheduleWorkflow(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "model.json")

	_, err := runCLI(t, "generate", "--ops", "15", "--allocs", "10", "--link-prob", "0.1", "--seed", "3", "-o", graph)
	require.NoError(t, err)
	g, err := pkgio.ImportGraph(graph)
	require.NoError(t, err)
	require.Equal(t, 15, g.NOps())

	out, err := runCLI(t, "schedule", graph, "--cache", "none", "--no-progress", "--max-seconds", "5")
	require.NoError(t, err)
	order, err := pkgio.ReadOrder(strings.NewReader(out))
	require.NoError(t, err)
	require.NoError(t, shift.ValidateOrder(g, order))

	orderPath := filepath.Join(dir, "order.txt")
	require.NoError(t, os.WriteFile(orderPath, []byte(out), 0o644))
	_, err = runCLI(t, "check", graph, orderPath)
	require.NoError(t, err)

	result := filepath.Join(dir, "result.json")
	out, err = runCLI(t, "schedule", graph, "--cache", "none", "--no-progress",
		"--kahn", "random", "--best-of", "3", "-o", result, "-f", "json,dot")
	require.NoError(t, err)
	require.Empty(t, out, "order printed although --output was set")
	res, err := pkgio.ImportOrder(result)
	require.NoError(t, err)
	require.NoError(t, shift.ValidateOrder(g, res))
	dotSrc, err := os.ReadFile(filepath.Join(dir, "result.dot"))
	require.NoError(t, err)
	require.Contains(t, string(dotSrc), "digraph")

	_, err = runCLI(t, "render", graph, "--order", result, "--allocs", "-f", "dot", "-o", filepath.Join(dir, "drawing"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "drawing.dot"))
	require.NoError(t, err)
}

func TestScheduleCached(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "model.yaml")
	cfg := writeConfig(t, "[cache]\nbackend = \"file\"\ndir = \""+filepath.ToSlash(filepath.Join(dir, "cache"))+"\"\n")

	_, err := runCLI(t, "generate", "--ops", "10", "--allocs", "8", "-o", graph)
	require.NoError(t, err)
	first, err := runCLI(t, "schedule", graph, "--config", cfg, "--no-progress")
	require.NoError(t, err)
	second, err := runCLI(t, "schedule", graph, "--config", cfg, "--no-progress")
	require.NoError(t, err)
	require.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "model.json")
	_, err := runCLI(t, "generate", "--ops", "4", "--allocs", "2", "-o", graph)
	require.NoError(t, err)
	short := filepath.Join(dir, "short.txt")
	require.NoError(t, os.WriteFile(short, []byte("0\n"), 0o644))

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing graph", []string{"schedule", filepath.Join(dir, "missing.json"), "--cache", "none"}, errors.ErrCodeFileNotFound},
		{"bad format", []string{"schedule", graph, "--cache", "none", "-f", "gif"}, errors.ErrCodeInvalidSetting},
		{"bad passes", []string{"schedule", graph, "--cache", "none", "--passes", "few"}, errors.ErrCodeInvalidSetting},
		{"short order", []string{"check", graph, short}, errors.ErrCodeInvalidOrder},
		{"render json", []string{"render", graph, "-f", "json"}, errors.ErrCodeInvalidSetting},
		{"bad config", []string{"schedule", graph, "--config", writeConfig(t, "[settings]\nkahn = \"fifo\"\n")}, errors.ErrCodeInvalidSetting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestGenerateStdout(t *testing.T) {
	out, err := runCLI(t, "generate", "--ops", "3", "--allocs", "2", "--format", "yaml")
	require.NoError(t, err)
	g, err := pkgio.ReadGraph(strings.NewReader(out), pkgio.FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 3, g.NOps())
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "version:")
	require.Contains(t, out, "go:")
}
