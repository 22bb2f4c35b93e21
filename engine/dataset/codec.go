package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// ErrEmptyInput is returned when the input has no header line.
var ErrEmptyInput = errors.New("input has no header")

// Read parses delimited text with a header line. Short rows are padded with
// null markers; rows longer than the header are rejected.
func Read(r io.Reader, delimiter rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header[0] = trimBOM(header[0])
	t := New(header...)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", t.Len()+1, err)
		}
		if err := t.Append(record...); err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, nil
}

// Write emits the header followed by one line per row. Fields are quoted
// only when they contain the delimiter, quotes or line breaks.
func Write(w io.Writer, t *Table, delimiter rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delimiter
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// Load reads a table from path on fs.
func Load(fs afero.Fs, path string, delimiter rune) (*Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	t, err := Read(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}

// Persist writes t to path on fs, replacing any existing file.
func Persist(fs afero.Fs, path string, t *Table, delimiter rune) (err error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return Write(f, t, delimiter)
}

// Delimiter converts a configured single character into a rune.
func Delimiter(s string) (rune, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
