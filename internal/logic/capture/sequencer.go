// Package capture drives the multi-step camera operations: shutter presses,
// continuous shooting, custom white balance, media format, zoom and the
// single property get/set helpers.
//
// Every operation is a list of timed steps. A failing step aborts the rest
// of the sequence; the connection and the context are checked between steps.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

var (
	ErrCancelled    = errors.New("capture: cancelled")
	ErrDisconnected = errors.New("capture: device disconnected")
	ErrTimedOut     = errors.New("capture: expected state not reached")
	ErrNotSupported = errors.New("capture: not supported by the device")
	ErrManualFocus  = errors.New("capture: focus mode is MF, set the focus mode to AF")
)

// Device issues writes and commands on the live session.
type Device interface {
	SetProperty(p sdk.RawProperty) error
	SendCommand(id sdk.CommandID, param sdk.CommandParam) error
	SetDeviceSetting(key sdk.SettingKey, value uint32) error
}

// Properties is the property cache as seen by the sequencer.
type Properties interface {
	Load(codes ...property.Code) error
	Get(code property.Code) (property.Property, bool)
	CurrentRaw(code property.Code) (uint64, bool)
	Writable(code property.Code) bool
	Possible(code property.Code) []property.Value
	ZoomSpeedRange() (lo, hi int64, ok bool)
}

// Link reports whether the session is still up.
type Link interface {
	Connected() bool
}

// Input reads one operator answer for the interactive loops. It returns
// io.EOF when no more input will come.
type Input interface {
	Prompt(label string) (string, error)
}

// Outcome is the terminal state of a step.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailed
	OutcomeCancelled
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed out"
	default:
		return "pending"
	}
}

// PendingStep describes the step a sequence is at. It is published to the
// observer when the step starts and again when it ends.
type PendingStep struct {
	Sequence string
	Index    int
	Name     string
	Started  time.Time
	// Deadline is zero for steps without a bound.
	Deadline time.Time
	Retries  int
	Outcome  Outcome
}

// SequenceError reports the step that ended a sequence.
type SequenceError struct {
	Sequence string
	Step     int
	StepName string
	Outcome  Outcome
	Err      error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s: step %d (%s) %s: %v", e.Sequence, e.Step, e.StepName, e.Outcome, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }

// Sequencer runs one operation at a time against the device.
type Sequencer struct {
	dev   Device
	props Properties
	link  Link
	t     Timings
	log   *debug.Logger

	sleep func(time.Duration)
	now   func() time.Time

	run      sync.Mutex
	mu       sync.RWMutex
	observer func(PendingStep)
}

// New creates a sequencer.
func New(dev Device, props Properties, link Link, t Timings, log *debug.Logger) *Sequencer {
	return &Sequencer{
		dev:   dev,
		props: props,
		link:  link,
		t:     t.withDefaults(),
		log:   log,
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Observe registers fn to receive step progress. A nil fn removes it.
func (s *Sequencer) Observe(fn func(PendingStep)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

func (s *Sequencer) publish(p PendingStep) {
	s.mu.RLock()
	fn := s.observer
	s.mu.RUnlock()
	if fn != nil {
		fn(p)
	}
}

// seq is one running sequence.
type seq struct {
	s    *Sequencer
	ctx  context.Context
	name string
	cur  PendingStep
}

// begin takes the run lock and checks the session. The returned function
// releases the lock.
func (s *Sequencer) begin(ctx context.Context, name string) (*seq, func(), error) {
	s.run.Lock()
	q := &seq{s: s, ctx: ctx, name: name}
	if err := q.live(); err != nil {
		s.run.Unlock()
		return nil, nil, &SequenceError{Sequence: name, StepName: "start", Outcome: OutcomeCancelled, Err: err}
	}
	s.log.Section(name)
	return q, s.run.Unlock, nil
}

func (q *seq) live() error {
	select {
	case <-q.ctx.Done():
		return q.ctx.Err()
	default:
	}
	if q.s.link != nil && !q.s.link.Connected() {
		return ErrDisconnected
	}
	return nil
}

// start opens the next step. A zero bound means no deadline.
func (q *seq) start(name string, bound time.Duration) error {
	q.cur = PendingStep{
		Sequence: q.name,
		Index:    q.cur.Index + 1,
		Name:     name,
		Started:  q.s.now(),
	}
	if bound > 0 {
		q.cur.Deadline = q.cur.Started.Add(bound)
	}
	if err := q.live(); err != nil {
		return q.end(OutcomeCancelled, err)
	}
	q.s.log.Step(q.cur.Index, name)
	q.s.publish(q.cur)
	return nil
}

// end closes the current step. It returns a *SequenceError unless the
// outcome is a success.
func (q *seq) end(o Outcome, err error) error {
	q.cur.Outcome = o
	q.s.publish(q.cur)
	if o == OutcomeSuccess {
		return nil
	}
	serr := &SequenceError{Sequence: q.name, Step: q.cur.Index, StepName: q.cur.Name, Outcome: o, Err: err}
	q.s.log.Warn("%v", serr)
	return serr
}

// step runs fn as one step.
func (q *seq) step(name string, fn func() error) error {
	if err := q.start(name, 0); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return q.end(OutcomeFailed, err)
	}
	return q.end(OutcomeSuccess, nil)
}

// wait sleeps unconditionally.
func (q *seq) wait(d time.Duration) {
	if d > 0 {
		q.s.sleep(d)
	}
}

func (q *seq) write(c property.Code, v property.Value) error {
	return q.step("set "+c.String()+" "+v.String(), func() error {
		p, err := property.Encode(c, v)
		if err != nil {
			return err
		}
		return q.s.dev.SetProperty(p)
	})
}

func (q *seq) writeRaw(c property.Code, raw uint64) error {
	spec, ok := property.Lookup(c)
	if !ok {
		return q.step("set "+c.String(), func() error { return property.ErrUnknownProperty })
	}
	return q.write(c, spec.Decode(raw))
}

func (q *seq) command(id sdk.CommandID, param sdk.CommandParam) error {
	return q.step(id.String()+" "+param.String(), func() error {
		return q.s.dev.SendCommand(id, param)
	})
}

func (q *seq) load(codes ...property.Code) error {
	return q.step("load", func() error { return q.s.props.Load(codes...) })
}

// cleanup runs fn even when the context is done, and reports prev when
// there was an earlier failure.
func (q *seq) cleanup(prev error, fn func() error) error {
	ctx := q.ctx
	q.ctx = context.WithoutCancel(ctx)
	defer func() { q.ctx = ctx }()
	if prev == nil {
		return fn()
	}
	if err := fn(); err != nil {
		q.s.log.Warn("%s: cleanup after failure: %v", q.name, err)
	}
	return prev
}
