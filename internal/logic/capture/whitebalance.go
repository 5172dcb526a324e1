package capture

import (
	"context"
	"fmt"

	"github.com/cjeanneret/remocam/internal/logic/property"
)

// Bounds of an X/Y trigger position.
const (
	MaxPositionX = 639
	MaxPositionY = 479
)

// ValidPosition reports whether x and y fit the position grid.
func ValidPosition(x, y int) bool {
	return x >= 0 && x <= MaxPositionX && y >= 0 && y <= MaxPositionY
}

func position(x, y int) (property.Position, error) {
	if !ValidPosition(x, y) {
		return property.Position{}, fmt.Errorf("%w: position (%d,%d) outside 0..%d x 0..%d",
			ErrCancelled, x, y, MaxPositionX, MaxPositionY)
	}
	return property.Position{X: uint16(x), Y: uint16(y)}, nil
}

// writePosition sends an X/Y trigger. Each coordinate gets PositionSettle
// before the packed value is written.
func (q *seq) writePosition(c property.Code, p property.Position) error {
	q.wait(q.s.t.PositionSettle)
	q.wait(q.s.t.PositionSettle)
	return q.write(c, p)
}

// press toggles a custom white balance button: down, wait, up, wait.
func (q *seq) press(c property.Code) error {
	down := property.CustomWBButtons.Value(property.CustomWBDown)
	up := property.CustomWBButtons.Value(property.CustomWBUp)
	if err := q.write(c, down); err != nil {
		return err
	}
	q.wait(q.s.t.WBToggle)
	if err := q.write(c, up); err != nil {
		return err
	}
	q.wait(q.s.t.WBToggle)
	return nil
}

// standby presses the capture standby button until the body reports the
// capture operation enabled, at most WBStandbyAttempts times.
func (q *seq) standby() error {
	attempts := q.s.t.WBStandbyAttempts
	retries := 0
	for i := 0; i < attempts; i++ {
		if err := q.press(property.CustomWBCaptureStandby); err != nil {
			return err
		}
		q.wait(q.s.t.WBStandbyPoll)

		if err := q.start("standby check", 0); err != nil {
			return err
		}
		q.cur.Retries = retries
		if err := q.s.props.Load(property.CustomWBCaptureStandby, property.CustomWBCaptureOperation,
			property.CustomWBExecutionState); err != nil {
			return q.end(OutcomeFailed, err)
		}
		raw, _ := q.s.props.CurrentRaw(property.CustomWBCaptureOperation)
		if raw == property.Enable {
			return q.end(OutcomeSuccess, nil)
		}
		retries++
		q.cur.Retries = retries
		if retries == attempts {
			return q.end(OutcomeTimedOut, fmt.Errorf("%w: capture standby after %d attempts", ErrTimedOut, attempts))
		}
		q.s.publish(q.cur)
		q.s.log.Verbose("custom WB standby not entered (attempt %d/%d)", retries, attempts)
	}
	return nil
}

// CustomWhiteBalance calibrates Custom 1 white balance on the area at x, y:
// PC remote priority, P exposure program, WB Custom 1, capture standby (with
// retries), the X/Y capture trigger, then standby cancel.
//
// A standby that is never reached ends the sequence with OutcomeTimedOut.
func (s *Sequencer) CustomWhiteBalance(ctx context.Context, x, y int) error {
	pos, err := position(x, y)
	if err != nil {
		return err
	}
	q, done, err := s.begin(ctx, "custom white balance")
	if err != nil {
		return err
	}
	defer done()

	if err := q.write(property.PriorityKeySettings, pcRemote); err != nil {
		return err
	}
	q.wait(s.t.WBStepSettle)

	if err := q.write(property.ExposureProgramMode, property.ExposurePrograms.Value(property.ExposureProgramAuto)); err != nil {
		return err
	}
	q.wait(s.t.WBStepSettle)

	if err := q.write(property.WhiteBalance, property.WhiteBalances.Value(property.WBCustom1)); err != nil {
		return err
	}
	q.wait(s.t.WBModeSettle)

	if err := q.standby(); err != nil {
		return err
	}

	err = q.writePosition(property.CustomWBCapture, pos)
	if err == nil {
		q.wait(s.t.WBCaptureSettle)
	}
	return q.cleanup(err, func() error {
		if err := q.press(property.CustomWBCaptureStandbyCancel); err != nil {
			return err
		}
		return q.load(property.CustomWBCaptureStandby, property.CustomWBCaptureOperation,
			property.CustomWBExecutionState)
	})
}

// SetAFAreaPosition moves the flexible spot to x, y.
func (s *Sequencer) SetAFAreaPosition(ctx context.Context, x, y int) error {
	pos, err := position(x, y)
	if err != nil {
		return err
	}
	q, done, err := s.begin(ctx, "af area position")
	if err != nil {
		return err
	}
	defer done()

	if err := q.write(property.FocusArea, property.FocusAreas.Value(property.AreaFlexibleSpotS)); err != nil {
		return err
	}
	q.wait(s.t.FocusAreaSettle)
	return q.writePosition(property.AFAreaPosition, pos)
}
