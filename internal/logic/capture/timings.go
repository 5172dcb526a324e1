package capture

import "time"

// Timings holds the fixed delays between sequence steps. The physical
// shutter, media and optics need them; zero fields take the defaults.
type Timings struct {
	ReleaseHold     time.Duration // release down to up
	HalfPressHold   time.Duration // S1 shooting lock to unlock
	AFLockSettle    time.Duration // AF shutter lock to release
	AFReleaseSettle time.Duration // AF shutter release to unlock

	PrioritySettle  time.Duration // PC remote priority before a half/full press
	HalfPressSettle time.Duration // half press to release down
	FullPressHold   time.Duration // release down to up in a half/full press
	ReleaseSettle   time.Duration // after release up and after unlock

	ContinuousSettle time.Duration // drive mode to release down
	ContinuousHold   time.Duration // burst length

	WBStepSettle      time.Duration // after priority and exposure program
	WBModeSettle      time.Duration // after white balance Custom 1
	WBToggle          time.Duration // between standby button down and up
	WBStandbyPoll     time.Duration // standby press to state check
	WBStandbyAttempts int
	WBCaptureSettle   time.Duration // position trigger to standby cancel

	PositionSettle  time.Duration // after each coordinate of an X/Y trigger
	FocusAreaSettle time.Duration // focus area before the AF area position

	FormatPoll time.Duration

	GetSettle    time.Duration
	SetSettle    time.Duration
	WaitPoll     time.Duration
	WaitAttempts int
}

// DefaultTimings returns the delays the device requires.
func DefaultTimings() Timings {
	return Timings{
		ReleaseHold:     35 * time.Millisecond,
		HalfPressHold:   time.Second,
		AFLockSettle:    500 * time.Millisecond,
		AFReleaseSettle: time.Second,

		PrioritySettle:  2 * time.Second,
		HalfPressSettle: 1200 * time.Millisecond,
		FullPressHold:   2 * time.Second,
		ReleaseSettle:   200 * time.Millisecond,

		ContinuousSettle: time.Second,
		ContinuousHold:   500 * time.Millisecond,

		WBStepSettle:      500 * time.Millisecond,
		WBModeSettle:      2 * time.Second,
		WBToggle:          500 * time.Millisecond,
		WBStandbyPoll:     time.Second,
		WBStandbyAttempts: 5,
		WBCaptureSettle:   5 * time.Second,

		PositionSettle:  time.Second,
		FocusAreaSettle: 500 * time.Millisecond,

		FormatPoll: 250 * time.Millisecond,

		GetSettle:    400 * time.Millisecond,
		SetSettle:    time.Second,
		WaitPoll:     100 * time.Millisecond,
		WaitAttempts: 20,
	}
}

func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	fill := func(v *time.Duration, def time.Duration) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&t.ReleaseHold, d.ReleaseHold)
	fill(&t.HalfPressHold, d.HalfPressHold)
	fill(&t.AFLockSettle, d.AFLockSettle)
	fill(&t.AFReleaseSettle, d.AFReleaseSettle)
	fill(&t.PrioritySettle, d.PrioritySettle)
	fill(&t.HalfPressSettle, d.HalfPressSettle)
	fill(&t.FullPressHold, d.FullPressHold)
	fill(&t.ReleaseSettle, d.ReleaseSettle)
	fill(&t.ContinuousSettle, d.ContinuousSettle)
	fill(&t.ContinuousHold, d.ContinuousHold)
	fill(&t.WBStepSettle, d.WBStepSettle)
	fill(&t.WBModeSettle, d.WBModeSettle)
	fill(&t.WBToggle, d.WBToggle)
	fill(&t.WBStandbyPoll, d.WBStandbyPoll)
	fill(&t.WBCaptureSettle, d.WBCaptureSettle)
	fill(&t.PositionSettle, d.PositionSettle)
	fill(&t.FocusAreaSettle, d.FocusAreaSettle)
	fill(&t.FormatPoll, d.FormatPoll)
	fill(&t.GetSettle, d.GetSettle)
	fill(&t.SetSettle, d.SetSettle)
	fill(&t.WaitPoll, d.WaitPoll)
	if t.WBStandbyAttempts <= 0 {
		t.WBStandbyAttempts = d.WBStandbyAttempts
	}
	if t.WaitAttempts <= 0 {
		t.WaitAttempts = d.WaitAttempts
	}
	return t
}
