package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/classify"
	"github.com/cory-johannsen/partydamage/internal/meter"
)

// Writer appends capture records as JSONL. It implements meter.Capture;
// the first write error is kept and reported by Err and Close.
//
// Writer is not safe for concurrent use.
type Writer struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	err error
}

// Create opens path for writing, compressing with zstd when path ends in ".zst".
//
// Postcondition: Returns an open Writer or a non-nil error.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating capture dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating capture: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		w := NewWriter(f)
		w.f = f
		return w, nil
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// NewWriter writes uncompressed JSONL to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends rec as one line.
func (w *Writer) Write(rec Record) error {
	if w.err != nil {
		return w.err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		w.err = fmt.Errorf("encoding %s record: %w", rec.Kind, err)
		return w.err
	}
	if _, err := w.w.Write(b); err != nil {
		w.err = err
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		w.err = err
	}
	return w.err
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error { return w.err }

// Flush pushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = err
	}
	return w.err
}

// Close flushes and closes the capture.
//
// Postcondition: Returns the first error seen by the Writer, if any.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// CombatEvent implements meter.Capture.
func (w *Writer) CombatEvent(at time.Time, encounter uuid.UUID, ev classify.Event, cause, target *agent.Agent, causeName string) {
	_ = w.Write(Record{
		Kind:      KindCombat,
		At:        at,
		Encounter: encounter,
		Event:     &ev,
		Cause:     cause,
		Target:    target,
		CauseName: causeName,
	})
}

// AreaTransition implements meter.Capture.
func (w *Writer) AreaTransition(at time.Time, encounter uuid.UUID, area meter.Area) {
	_ = w.Write(Record{Kind: KindArea, At: at, Encounter: encounter, Area: area.String()})
}

// RosterLoaded implements meter.Capture.
func (w *Writer) RosterLoaded(at time.Time, encounter uuid.UUID, roster agent.Roster) {
	_ = w.Write(Record{Kind: KindRoster, At: at, Encounter: encounter, Roster: &roster})
}

// ReportRequested implements meter.Capture.
func (w *Writer) ReportRequested(at time.Time, encounter uuid.UUID, own bool, self *agent.Agent) {
	_ = w.Write(Record{Kind: KindReport, At: at, Encounter: encounter, Own: own, Self: self})
}

// EncounterReset implements meter.Capture.
func (w *Writer) EncounterReset(at time.Time, encounter uuid.UUID) {
	_ = w.Write(Record{Kind: KindReset, At: at, Encounter: encounter})
}

// VisibilityChanged implements meter.Capture.
func (w *Writer) VisibilityChanged(at time.Time, visible bool) {
	_ = w.Write(Record{Kind: KindVisibility, At: at, Visible: &visible})
}
