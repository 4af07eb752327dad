package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Reader decodes capture records one line at a time.
type Reader struct {
	sc     *bufio.Scanner
	line   int
	closer func() error
}

// Open opens a capture file, decompressing it when path ends in ".zst".
//
// Postcondition: Returns an open Reader or a non-nil error.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		r := NewReader(f)
		r.closer = f.Close
		return r, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	r := NewReader(dec)
	r.closer = func() error {
		dec.Close()
		return f.Close()
	}
	return r, nil
}

// NewReader reads uncompressed JSONL from r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next record. Blank lines are skipped.
//
// Postcondition: Returns io.EOF after the last record, or an error naming the bad line.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		b := r.sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return Record{}, fmt.Errorf("capture line %d: %w", r.line, err)
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("reading capture: %w", err)
	}
	return Record{}, io.EOF
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
