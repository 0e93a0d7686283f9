package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// orderDoc is the part of a result file that [ReadOrder] needs.
type orderDoc struct {
	Order []shift.OpAddress `json:"order"`
}

// ReadOrder decodes a schedule from r. It accepts the JSON written by
// [WriteResult], or text with one op per line as written by [WriteOrder].
// Text lines hold either a bare address or "position address [name]";
// positions must count up from zero. Blank lines and lines starting with
// '#' are skipped.
//
// The order is not checked against any graph; use [shift.ValidateOrder].
func ReadOrder(r io.Reader) ([]shift.OpAddress, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read order")
	}
	if first == '{' {
		var d orderDoc
		if err := json.NewDecoder(br).Decode(&d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json order")
		}
		if d.Order == nil {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "json document has no order")
		}
		return d.Order, nil
	}
	return readOrderLines(br)
}

func readOrderLines(r io.Reader) ([]shift.OpAddress, error) {
	var order []shift.OpAddress
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		addrField := fields[0]
		if len(fields) > 1 {
			pos, err := strconv.Atoi(fields[0])
			if err != nil || pos != len(order) {
				return nil, errors.New(errors.ErrCodeInvalidFormat,
					"line %d: position %q, want %d", line, fields[0], len(order))
			}
			addrField = fields[1]
		}
		op, err := strconv.Atoi(addrField)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d: op address", line)
		}
		order = append(order, op)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read order")
	}
	return order, nil
}

// peekNonSpace skips leading white space and returns the next byte without
// consuming it. An empty input yields 0.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}

// ImportOrder reads the order file at path with [ReadOrder].
func ImportOrder(path string) ([]shift.OpAddress, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()
	order, err := ReadOrder(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return order, nil
}
