package capture

import (
	"context"
	"fmt"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

var (
	halfLocked   = property.LockIndicators.Value(property.LockLocked)
	halfUnlocked = property.LockIndicators.Value(property.LockUnlocked)
	pcRemote     = property.PriorityKeys.Value(property.PriorityPCRemote)
)

// requireAF refuses half-press sequences while the body is in manual focus.
// An unknown focus mode is let through.
func (s *Sequencer) requireAF() error {
	if raw, ok := s.props.CurrentRaw(property.FocusMode); ok && raw == property.FocusMF {
		return ErrManualFocus
	}
	return nil
}

// Release fires a single shot: release down, hold, release up.
func (s *Sequencer) Release(ctx context.Context) error {
	q, done, err := s.begin(ctx, "release")
	if err != nil {
		return err
	}
	defer done()

	if err := q.command(sdk.CmdRelease, sdk.ParamDown); err != nil {
		return err
	}
	q.wait(s.t.ReleaseHold)
	return q.cleanup(nil, func() error { return q.command(sdk.CmdRelease, sdk.ParamUp) })
}

// S1Shooting holds the shutter half pressed for HalfPressHold.
func (s *Sequencer) S1Shooting(ctx context.Context) error {
	if err := s.requireAF(); err != nil {
		return err
	}
	q, done, err := s.begin(ctx, "s1 shooting")
	if err != nil {
		return err
	}
	defer done()

	if err := q.write(property.S1, halfLocked); err != nil {
		return err
	}
	q.wait(s.t.HalfPressHold)
	return q.cleanup(nil, func() error { return q.write(property.S1, halfUnlocked) })
}

// AFShutter focuses with a half press, fires, and releases the half press.
func (s *Sequencer) AFShutter(ctx context.Context) error {
	if err := s.requireAF(); err != nil {
		return err
	}
	q, done, err := s.begin(ctx, "af shutter")
	if err != nil {
		return err
	}
	defer done()

	if err := q.write(property.S1, halfLocked); err != nil {
		return err
	}
	q.wait(s.t.AFLockSettle)

	err = q.command(sdk.CmdRelease, sdk.ParamDown)
	if err == nil {
		q.wait(s.t.ReleaseHold)
		err = q.cleanup(nil, func() error { return q.command(sdk.CmdRelease, sdk.ParamUp) })
		q.wait(s.t.AFReleaseSettle)
	}
	return q.cleanup(err, func() error { return q.write(property.S1, halfUnlocked) })
}

// HalfFullRelease is the full remote capture: take PC remote priority, half
// press, release, then let go of the half press.
func (s *Sequencer) HalfFullRelease(ctx context.Context) error {
	q, done, err := s.begin(ctx, "half/full release")
	if err != nil {
		return err
	}
	defer done()

	if err := q.write(property.PriorityKeySettings, pcRemote); err != nil {
		return err
	}
	q.wait(s.t.PrioritySettle)

	if err := q.write(property.S1, halfLocked); err != nil {
		return err
	}
	q.wait(s.t.HalfPressSettle)

	err = q.command(sdk.CmdRelease, sdk.ParamDown)
	if err == nil {
		q.wait(s.t.FullPressHold)
		err = q.cleanup(nil, func() error { return q.command(sdk.CmdRelease, sdk.ParamUp) })
		q.wait(s.t.ReleaseSettle)
	}
	err = q.cleanup(err, func() error { return q.write(property.S1, halfUnlocked) })
	q.wait(s.t.ReleaseSettle)
	return err
}

// Shoot takes one picture. It is the capture used by the trigger button and
// the web surface.
func (s *Sequencer) Shoot(ctx context.Context) error { return s.HalfFullRelease(ctx) }

// ContinuousShooting switches to high speed continuous drive and holds the
// release for ContinuousHold. Both prerequisite writes must succeed before
// the release is touched.
func (s *Sequencer) ContinuousShooting(ctx context.Context) error {
	q, done, err := s.begin(ctx, "continuous shooting")
	if err != nil {
		return err
	}
	defer done()

	if err := q.write(property.PriorityKeySettings, pcRemote); err != nil {
		return err
	}
	if err := q.write(property.DriveMode, property.DriveModes.Value(property.DriveContinuousHi)); err != nil {
		return err
	}
	q.wait(s.t.ContinuousSettle)

	if err := q.command(sdk.CmdRelease, sdk.ParamDown); err != nil {
		return err
	}
	q.wait(s.t.ContinuousHold)
	return q.cleanup(nil, func() error { return q.command(sdk.CmdRelease, sdk.ParamUp) })
}

var lockCodes = map[property.Code]bool{
	property.AEL: true, property.FEL: true, property.AFL: true, property.AWBL: true,
}

// Lock engages or releases one of the AE, FE, AF or AWB locks.
func (s *Sequencer) Lock(ctx context.Context, code property.Code, locked bool) error {
	if !lockCodes[code] {
		return fmt.Errorf("%w: %s is not a lock", ErrNotSupported, code)
	}
	q, done, err := s.begin(ctx, "lock "+code.String())
	if err != nil {
		return err
	}
	defer done()

	v := halfUnlocked
	if locked {
		v = halfLocked
	}
	return q.write(code, v)
}

// MovieRecord presses (ParamDown) or releases (ParamUp) the movie button.
func (s *Sequencer) MovieRecord(ctx context.Context, param sdk.CommandParam) error {
	q, done, err := s.begin(ctx, "movie record")
	if err != nil {
		return err
	}
	defer done()
	return q.command(sdk.CmdMovieRecord, param)
}
