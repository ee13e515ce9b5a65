package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned when the source has no header row.
var ErrEmptyInput = errors.New("no columns to parse from input")

// nullTokens are the cell spellings treated as missing values.
var nullTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNullToken reports whether a raw field denotes a missing value.
func IsNullToken(raw string) bool {
	return nullTokens[strings.TrimSpace(raw)]
}

type readConfig struct {
	comma rune
}

// ReadOption customizes Read and ReadFile.
type ReadOption func(*readConfig)

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(r rune) ReadOption {
	return func(c *readConfig) {
		c.comma = r
	}
}

// ReadFile reads a delimited file with a header row. Files ending in .tsv
// default to a tab delimiter.
func ReadFile(path string, opts ...ReadOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts = append([]ReadOption{WithDelimiter('\t')}, opts...)
	}
	return Read(f, opts...)
}

// Read parses delimited text with a header row into a Table.
//
// A column is numeric when every non-null field parses as a float (an
// all-null column is numeric too); otherwise it is text. Records shorter
// than the header are padded with nulls; longer records are an error.
func Read(r io.Reader, opts ...ReadOption) (*Table, error) {
	cfg := readConfig{comma: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	reader := csv.NewReader(r)
	reader.Comma = cfg.comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	raw := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed record: %w", err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("malformed record: record on line %d: %d fields, header has %d", line, len(record), len(header))
		}
		for i := range header {
			field := ""
			if i < len(record) {
				field = record[i]
			}
			raw[i] = append(raw[i], field)
		}
	}

	cols := make([]Column, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		cols[i] = inferColumn(name, raw[i])
	}

	return New(cols...)
}

func inferColumn(name string, fields []string) Column {
	nums := make([]Cell, len(fields))
	numeric := true

	for i, field := range fields {
		if IsNullToken(field) {
			nums[i] = Null()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = N(v)
	}

	if numeric {
		return Numeric(name, nums...)
	}

	texts := make([]Cell, len(fields))
	for i, field := range fields {
		if IsNullToken(field) {
			texts[i] = Null()
		} else {
			texts[i] = S(field)
		}
	}
	return Text(name, texts...)
}
