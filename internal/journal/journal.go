// Package journal records dispatcher events to a CBOR file so a session can
// be replayed and inspected after the fact.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cjeanneret/remocam/internal/logic/events"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor decoder mode: %v", err))
	}
}

// Record is one journaled event. Integer keys keep the file compact.
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	TraceID   string    `cbor:"2,keyasint,omitempty"`
	SessionID string    `cbor:"3,keyasint,omitempty"`
	Kind      string    `cbor:"4,keyasint"`
	Codes     []uint32  `cbor:"5,keyasint,omitempty"`
	Status    uint32    `cbor:"6,keyasint,omitempty"`
	Content   uint32    `cbor:"7,keyasint,omitempty"`
	Filename  string    `cbor:"8,keyasint,omitempty"`
	Requested bool      `cbor:"9,keyasint,omitempty"`
	Action    string    `cbor:"10,keyasint,omitempty"`
	Message   string    `cbor:"11,keyasint,omitempty"`
	Err       string    `cbor:"12,keyasint,omitempty"`
}

// FromEvent flattens a dispatcher event.
func FromEvent(e events.Event) Record {
	r := Record{
		Time:      e.Time,
		TraceID:   e.TraceID,
		SessionID: e.SessionID,
		Kind:      e.Kind.String(),
		Status:    uint32(e.Status),
		Content:   uint32(e.Content),
		Filename:  e.Filename,
		Requested: e.Requested,
		Message:   e.Guidance.Message,
	}
	for _, c := range e.Codes {
		r.Codes = append(r.Codes, uint32(c))
	}
	if e.Guidance.Action != events.ActionIgnore {
		r.Action = e.Guidance.Action.String()
	}
	if e.Err != nil {
		r.Err = e.Err.Error()
	}
	return r
}

func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-17s", r.Time.Format("15:04:05.000"), r.Kind)
	if len(r.Codes) > 0 {
		fmt.Fprintf(&b, " codes=%d", len(r.Codes))
	}
	if r.Status != 0 {
		fmt.Fprintf(&b, " status=0x%04X", r.Status)
	}
	if r.Filename != "" {
		fmt.Fprintf(&b, " file=%s", r.Filename)
	}
	if r.Action != "" {
		fmt.Fprintf(&b, " [%s] %s", r.Action, r.Message)
	}
	if r.Err != "" {
		fmt.Fprintf(&b, " err=%q", r.Err)
	}
	if r.SessionID != "" {
		fmt.Fprintf(&b, " session=%.8s", r.SessionID)
	}
	return b.String()
}

// Journal appends records to a file. It is safe for concurrent use.
type Journal struct {
	file    *os.File
	encoder *cbor.Encoder

	mu      sync.Mutex
	closed  bool
	written int
	lastErr error
}

// Open creates or appends to the journal at path.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{file: f, encoder: encMode.NewEncoder(f)}, nil
}

// Write appends r. Writes after Close fail with os.ErrClosed.
func (j *Journal) Write(r Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return os.ErrClosed
	}
	if err := j.encoder.Encode(r); err != nil {
		j.lastErr = err
		return err
	}
	j.written++
	return nil
}

// Observe journals e. It is meant to be registered on the dispatcher and
// never fails the caller; the last error is kept for Err.
func (j *Journal) Observe(e events.Event) {
	_ = j.Write(FromEvent(e))
}

// Written returns the number of records appended since Open.
func (j *Journal) Written() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}

// Err returns the last encoding error.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

// Close closes the file. Calling it more than once is safe.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// Reader iterates the records of a journal file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	kind    string
}

// NewReader opens path for reading. A non-empty kind keeps only records of
// that kind.
func NewReader(path, kind string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Reader{file: f, decoder: decMode.NewDecoder(f), kind: kind}, nil
}

// Next returns the next record. It returns io.EOF at the end of the file.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.decoder.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("decode journal: %w", err)
		}
		if r.kind == "" || rec.Kind == r.kind {
			return rec, nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Dump writes every record of path to w, one per line.
func Dump(path, kind string, w io.Writer) (int, error) {
	r, err := NewReader(path, kind)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		fmt.Fprintln(w, rec)
		n++
	}
}
