package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

// SetFromPossible writes the index-th value of the possible list of code.
func (s *Sequencer) SetFromPossible(ctx context.Context, code property.Code, index int) error {
	q, done, err := s.begin(ctx, "set "+code.String())
	if err != nil {
		return err
	}
	defer done()

	if err := q.load(code); err != nil {
		return err
	}
	p, ok := s.props.Get(code)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSupported, code)
	}
	if !p.Writable {
		return fmt.Errorf("%w: %s", property.ErrNotWritable, code)
	}
	if index < 0 || index >= len(p.Possible) {
		return fmt.Errorf("%w: index %d outside 0..%d", ErrCancelled, index, len(p.Possible)-1)
	}
	return q.write(code, p.Possible[index])
}

// SetValue writes raw to code with the registered element type and waits
// SetSettle for the body to apply it.
func (s *Sequencer) SetValue(ctx context.Context, code property.Code, raw uint64) error {
	q, done, err := s.begin(ctx, "set "+code.String())
	if err != nil {
		return err
	}
	defer done()

	if err := q.writeRaw(code, raw); err != nil {
		return err
	}
	q.wait(s.t.SetSettle)
	return nil
}

// GetValue waits GetSettle, refreshes code and returns its current value.
func (s *Sequencer) GetValue(ctx context.Context, code property.Code) (property.Value, error) {
	q, done, err := s.begin(ctx, "get "+code.String())
	if err != nil {
		return nil, err
	}
	defer done()

	q.wait(s.t.GetSettle)
	if err := q.load(code); err != nil {
		return nil, err
	}
	v, ok := s.props.Get(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, code)
	}
	return v.Current, nil
}

// WaitForValue polls code until it reads raw, at most WaitAttempts times
// WaitPoll apart.
func (s *Sequencer) WaitForValue(ctx context.Context, code property.Code, raw uint64) error {
	q, done, err := s.begin(ctx, "wait "+code.String())
	if err != nil {
		return err
	}
	defer done()

	bound := s.t.WaitPoll * time.Duration(s.t.WaitAttempts)
	if err := q.start(fmt.Sprintf("wait for 0x%X", raw), bound); err != nil {
		return err
	}
	for i := 0; i < s.t.WaitAttempts; i++ {
		if err := q.live(); err != nil {
			return q.end(OutcomeCancelled, err)
		}
		if err := s.props.Load(code); err != nil {
			return q.end(OutcomeFailed, err)
		}
		if cur, ok := s.props.CurrentRaw(code); ok && cur == raw {
			s.log.Verbose("waited %v for %s", s.t.WaitPoll*time.Duration(i), code)
			return q.end(OutcomeSuccess, nil)
		}
		q.cur.Retries = i + 1
		q.wait(s.t.WaitPoll)
	}
	return q.end(OutcomeTimedOut, fmt.Errorf("%w: %s != 0x%X", ErrTimedOut, code, raw))
}

// ToggleLiveView flips the host live view setting based on the reported
// live view status and returns the new state.
func (s *Sequencer) ToggleLiveView(ctx context.Context) (bool, error) {
	q, done, err := s.begin(ctx, "live view")
	if err != nil {
		return false, err
	}
	defer done()

	if err := q.load(property.LiveViewStatus); err != nil {
		return false, err
	}
	raw, _ := s.props.CurrentRaw(property.LiveViewStatus)
	enable := raw != liveViewEnabled

	var value uint32
	if enable {
		value = 1
	}
	err = q.step(fmt.Sprintf("live view enable=%v", enable), func() error {
		return s.dev.SetDeviceSetting(sdk.SettingEnableLiveView, value)
	})
	if err != nil {
		return false, err
	}
	return enable, nil
}

const liveViewEnabled = 2
