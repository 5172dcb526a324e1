package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cjeanneret/remocam/internal/logic/property"
)

var zoomCodes = []property.Code{
	property.ZoomOperation, property.ZoomSpeedRange, property.ZoomOperationStatus,
	property.ZoomSetting, property.ZoomTypeStatus, property.RemoconZoomSpeedType,
	property.ZoomBarInformation,
}

// zoomStep maps one operator answer to a zoom operation value. ok is false
// when the answer ends the loop; the returned value is then Stop.
func zoomStep(answer string, lo, hi int64, ranged bool) (v int64, ok bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(answer), 10, 64)
	if !ranged {
		if err != nil {
			return property.ZoomStop, false
		}
		switch n {
		case 0:
			return property.ZoomStop, true
		case 1:
			return property.ZoomWide, true
		case 2:
			return property.ZoomTele, true
		}
		return property.ZoomStop, false
	}
	if err != nil || n < lo || n > hi {
		return property.ZoomStop, false
	}
	return n, true
}

// Zoom runs the interactive zoom loop. Without a speed range the body only
// knows stop, wide and tele (answers 0, 1, 2; anything else ends the loop).
// With a range each answer is a signed speed; a non-numeric or out of range
// answer stops the zoom and ends the loop.
func (s *Sequencer) Zoom(ctx context.Context, in Input) error {
	q, done, err := s.begin(ctx, "zoom")
	if err != nil {
		return err
	}
	defer done()

	if err := q.load(zoomCodes...); err != nil {
		return err
	}
	for {
		if err := q.live(); err != nil {
			return q.cleanup(&SequenceError{Sequence: q.name, Step: q.cur.Index, StepName: "zoom",
				Outcome: OutcomeCancelled, Err: err}, q.zoomStop)
		}

		lo, hi, ranged := s.props.ZoomSpeedRange()
		label := "zoom [0] stop [1] wide [2] tele, anything else to cancel"
		if ranged {
			label = fmt.Sprintf("zoom speed %d..%d, out of range to stop", lo, hi)
		}
		answer, err := in.Prompt(label)
		if err != nil {
			stop := q.cleanup(nil, q.zoomStop)
			if errors.Is(err, io.EOF) {
				return stop
			}
			return err
		}

		v, ok := zoomStep(answer, lo, hi, ranged)
		if !ok {
			s.log.Verbose("zoom input %q cancelled", answer)
			if ranged {
				return q.cleanup(nil, q.zoomStop)
			}
			return nil
		}
		if err := q.write(property.ZoomOperation, property.Int(v)); err != nil {
			return err
		}
		if err := q.load(zoomCodes...); err != nil {
			return err
		}
	}
}

func (q *seq) zoomStop() error {
	return q.write(property.ZoomOperation, property.Int(property.ZoomStop))
}

// PresetOp selects a zoom and focus preset operation.
type PresetOp int

const (
	PresetSave PresetOp = 1
	PresetLoad PresetOp = 2
)

// PresetFocus saves or recalls zoom and focus preset slot. The slot must be
// one the body lists as possible, otherwise nothing is written.
func (s *Sequencer) PresetFocus(ctx context.Context, op PresetOp, slot int) error {
	q, done, err := s.begin(ctx, "preset focus")
	if err != nil {
		return err
	}
	defer done()

	if err := q.load(property.ZoomAndFocusPositionSave, property.ZoomAndFocusPositionLoad); err != nil {
		return err
	}
	canSave := s.props.Writable(property.ZoomAndFocusPositionSave)
	canLoad := s.props.Writable(property.ZoomAndFocusPositionLoad)
	if !canSave && !canLoad {
		return fmt.Errorf("%w: preset focus", ErrNotSupported)
	}

	var code property.Code
	switch {
	case op == PresetSave && canSave:
		code = property.ZoomAndFocusPositionSave
	case op == PresetLoad && canLoad:
		code = property.ZoomAndFocusPositionLoad
	default:
		return fmt.Errorf("%w: preset operation %d", ErrNotSupported, op)
	}

	if slot < 0 || !containsRaw(s.props.Possible(code), uint64(slot)) {
		return fmt.Errorf("%w: preset %d not offered by %s", ErrCancelled, slot, code)
	}
	return q.writeRaw(code, uint64(slot))
}

func containsRaw(values []property.Value, raw uint64) bool {
	for _, v := range values {
		if v.Raw() == raw {
			return true
		}
	}
	return false
}
