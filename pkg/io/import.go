package io

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Format is a graph file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists every accepted graph format.
var Formats = []string{string(FormatJSON), string(FormatYAML)}

// ParseFormat parses a format name case-insensitively. "yml" is accepted as
// an alias for yaml.
func ParseFormat(s string) (Format, error) {
	if strings.EqualFold(strings.TrimSpace(s), "yml") {
		return FormatYAML, nil
	}
	v, err := errors.ParseEnum("graph format", s, Formats)
	return Format(v), err
}

// DetectFormat picks the format from the extension of path.
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "%s has no extension, cannot detect format", path)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidFormat, err, "detect format of %s", path)
	}
	return f, nil
}

// ReadGraph decodes a graph document from r.
//
// Both formats carry the same [shift.Doc] structure:
//
//	{
//	  "ops": [
//	    {"address": 0, "name": "load", "outs": [1], "allocs": [0], "fwdLink": 1},
//	    {"address": 1, "name": "store", "outs": [], "allocs": [0]}
//	  ],
//	  "allocs": [{"address": 0, "weight": [4]}]
//	}
//
// ReadGraph returns an [errors.ErrCodeInvalidFormat] error for malformed
// input and for documents that do not describe a consistent graph. It does
// not close r.
func ReadGraph(r io.Reader, format Format) (*shift.Graph, error) {
	var d shift.Doc
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json graph")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode yaml graph")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}
	return shift.FromDoc(d)
}

// ImportGraph reads the graph file at path, detecting the format from its
// extension.
func ImportGraph(path string) (*shift.Graph, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()
	g, err := ReadGraph(f, format)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return g, nil
}
