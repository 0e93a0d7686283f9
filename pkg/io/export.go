package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// WriteGraph encodes g in the given format. The output can be re-imported
// with [ReadGraph].
func WriteGraph(w io.Writer, g *shift.Graph, format Format) error {
	d := g.Doc()
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unsupported graph format %q", format)
}

// ExportGraph writes g to path, detecting the format from its extension.
func ExportGraph(path string, g *shift.Graph) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return WriteGraph(w, g, format) })
}

// WriteResult encodes a scheduling result as indented JSON.
func WriteResult(w io.Writer, res *shift.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportResult writes a scheduling result to path as JSON.
func ExportResult(path string, res *shift.Result) error {
	return writeFile(path, func(w io.Writer) error { return WriteResult(w, res) })
}

// WriteOrder writes one op per line as "position<TAB>address<TAB>name".
func WriteOrder(w io.Writer, g *shift.Graph, order []shift.OpAddress) error {
	bw := bufio.NewWriter(w)
	for i, op := range order {
		if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\n", i, op, g.Op(op).Name()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
