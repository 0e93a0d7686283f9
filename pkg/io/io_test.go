package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

func sampleGraph(t *testing.T) *shift.Graph {
	t.Helper()
	g := shift.NewGraph()
	ops := g.InsertOps([]string{"load", "mul", "store"})
	require.NoError(t, g.InsertLink(ops[0], ops[1]))
	require.NoError(t, g.InsertConstraint(ops[1], ops[2]))
	a := g.InsertAlloc(shift.NewWeight(4))
	b := g.InsertAlloc(shift.Weight{1, 2, 3})
	require.NoError(t, g.InsertOpAlloc([]shift.OpAddress{ops[0], ops[2]}, a))
	require.NoError(t, g.InsertOpAlloc([]shift.OpAddress{ops[1]}, b))
	return g
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"toml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("graphs/conv.YML")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, f)

	_, err = DetectFormat("graph")
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
	_, err = DetectFormat("graph.txt")
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestRoundTrip(t *testing.T) {
	g := sampleGraph(t)
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteGraph(&buf, g, format))
			got, err := ReadGraph(&buf, format)
			require.NoError(t, err)
			require.True(t, g.Equal(got), "round trip changed the graph:\n%s\n%s", g, got)
		})
	}
}

func TestReadGraphYAML(t *testing.T) {
	src := `
ops:
  - address: 1
    name: store
    outs: []
    allocs: [0]
  - address: 0
    name: load
    outs: [1]
    allocs: [0]
    fwdLink: 1
allocs:
  - address: 0
    weight: [4]
`
	g, err := ReadGraph(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 2, g.NOps())
	require.Equal(t, "load", g.Op(0).Name())
	require.Equal(t, 1, g.Op(0).FwdLink())
	require.Equal(t, shift.NewWeight(4), g.Alloc(0).Weight())
}

func TestReadGraphErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		src    string
	}{
		{"malformed json", FormatJSON, `{"ops": [`},
		{"unknown field", FormatJSON, `{"ops": [], "allocs": [], "edges": []}`},
		{"unknown yaml field", FormatYAML, "ops: []\nallocs: []\nlinks: []\n"},
		{"bad address", FormatJSON, `{"ops": [{"address": 3, "name": "a", "outs": [], "allocs": []}], "allocs": []}`},
		{"self loop", FormatYAML, "ops:\n  - {address: 0, name: a, outs: [0], allocs: []}\nallocs: []\n"},
		{"unsupported", Format("xml"), `<graph/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.src), tt.format)
			require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
		})
	}
}

func TestImportExportFiles(t *testing.T) {
	dir := t.TempDir()
	g := sampleGraph(t)

	for _, name := range []string{"g.json", "g.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, ExportGraph(path, g))
		got, err := ImportGraph(path)
		require.NoError(t, err)
		require.True(t, g.Equal(got))
	}

	_, err := ImportGraph(filepath.Join(dir, "missing.json"))
	require.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("[]"), 0o644))
	_, err = ImportGraph(filepath.Join(dir, "bad.json"))
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
}

func TestWriteResultAndOrder(t *testing.T) {
	g := sampleGraph(t)
	res, err := shift.Schedule(g, shift.DefaultSettings())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, res))
	require.Contains(t, buf.String(), `"final_sum_liveness"`)

	buf.Reset()
	require.NoError(t, WriteOrder(&buf, g, []shift.OpAddress{0, 1, 2}))
	require.Equal(t, "0\t0\tload\n1\t1\tmul\n2\t2\tstore\n", buf.String())
}

func TestReadOrder(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []shift.OpAddress
	}{
		{"result json", `{"order": [2, 0, 1], "initial_order": [0, 1, 2], "summary": {}}`, []shift.OpAddress{2, 0, 1}},
		{"indented json", "\n  {\"order\": []}", []shift.OpAddress{}},
		{"bare addresses", "2\n0\n\n1\n", []shift.OpAddress{2, 0, 1}},
		{"order lines", "# schedule\n0\t2\tstore\n1\t0\tload\n2\t1\tmul\n", []shift.OpAddress{2, 0, 1}},
		{"names with spaces", "0 1 fused mul\n1 0 load\n", []shift.OpAddress{1, 0}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadOrder(strings.NewReader(tt.src))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReadOrderErrors(t *testing.T) {
	for name, src := range map[string]string{
		"broken json":    `{"order": [1,`,
		"no order":       `{"summary": {}}`,
		"bad address":    "0\nx\n",
		"skipped line":   "0 0 a\n2 1 b\n",
		"bad position":   "first 0 a\n",
		"negative start": "-1 0 a\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadOrder(strings.NewReader(src))
			require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
		})
	}
}

func TestOrderRoundTrip(t *testing.T) {
	g := sampleGraph(t)
	res, err := shift.Schedule(g, shift.DefaultSettings())
	require.NoError(t, err)
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, WriteOrder(&buf, g, res.Order))
	textPath := filepath.Join(dir, "order.txt")
	require.NoError(t, os.WriteFile(textPath, buf.Bytes(), 0o644))
	got, err := ImportOrder(textPath)
	require.NoError(t, err)
	require.Equal(t, res.Order, got)

	jsonPath := filepath.Join(dir, "result.json")
	require.NoError(t, ExportResult(jsonPath, res))
	got, err = ImportOrder(jsonPath)
	require.NoError(t, err)
	require.Equal(t, res.Order, got)
	require.NoError(t, shift.ValidateOrder(g, got))

	_, err = ImportOrder(filepath.Join(dir, "missing.txt"))
	require.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)
}
