package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

// fakeDevice records every write and command in order.
type fakeDevice struct {
	mu       sync.Mutex
	calls    []string
	writes   []sdk.RawProperty
	settings []uint32
	fail     map[string]error
}

func (d *fakeDevice) record(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, key)
	return d.fail[key]
}

func (d *fakeDevice) SetProperty(p sdk.RawProperty) error {
	d.mu.Lock()
	d.writes = append(d.writes, p)
	d.mu.Unlock()
	return d.record(fmt.Sprintf("set %s=%d", property.Code(p.Code), p.Current))
}

func (d *fakeDevice) SendCommand(id sdk.CommandID, param sdk.CommandParam) error {
	return d.record(fmt.Sprintf("cmd %s %s", id, param))
}

func (d *fakeDevice) SetDeviceSetting(key sdk.SettingKey, value uint32) error {
	d.mu.Lock()
	d.settings = append(d.settings, value)
	d.mu.Unlock()
	return d.record(fmt.Sprintf("setting %d=%d", key, value))
}

func (d *fakeDevice) log() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) writesTo(c property.Code) []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []uint64
	for _, w := range d.writes {
		if property.Code(w.Code) == c {
			out = append(out, w.Current)
		}
	}
	return out
}

// fakeProps is a scripted property cache. readings, when set for a code,
// are consumed one per Load of that code.
type fakeProps struct {
	mu       sync.Mutex
	values   map[property.Code]uint64
	writable map[property.Code]bool
	possible map[property.Code][]uint64
	readings map[property.Code][]uint64
	zoom     []int64
	loadErr  error
	loads    int
	onLoad   func(n int)
}

func newFakeProps() *fakeProps {
	return &fakeProps{
		values:   map[property.Code]uint64{},
		writable: map[property.Code]bool{},
		possible: map[property.Code][]uint64{},
		readings: map[property.Code][]uint64{},
	}
}

func (p *fakeProps) Load(codes ...property.Code) error {
	p.mu.Lock()
	p.loads++
	n := p.loads
	hook := p.onLoad
	for _, c := range codes {
		if r := p.readings[c]; len(r) > 0 {
			p.values[c] = r[0]
			p.readings[c] = r[1:]
		}
	}
	err := p.loadErr
	p.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return err
}

func (p *fakeProps) Get(c property.Code) (property.Property, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	spec, ok := property.Lookup(c)
	if !ok {
		return property.Property{}, false
	}
	raw, ok := p.values[c]
	if !ok {
		return property.Property{}, false
	}
	prop := property.Property{Code: c, Kind: spec.Kind, Current: spec.Decode(raw), Writable: p.writable[c]}
	for _, v := range p.possible[c] {
		prop.Possible = append(prop.Possible, spec.Decode(v))
	}
	return prop, true
}

func (p *fakeProps) CurrentRaw(c property.Code) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[c]
	return v, ok
}

func (p *fakeProps) Writable(c property.Code) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writable[c]
}

func (p *fakeProps) Possible(c property.Code) []property.Value {
	prop, _ := p.Get(c)
	return prop.Possible
}

func (p *fakeProps) ZoomSpeedRange() (lo, hi int64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.zoom) < 2 {
		return 0, 0, false
	}
	return p.zoom[0], p.zoom[1], true
}

type fakeLink struct{ down atomic.Bool }

func (l *fakeLink) Connected() bool { return !l.down.Load() }

// script is an Input replaying fixed answers, then io.EOF.
type script []string

func (s *script) Prompt(string) (string, error) {
	if len(*s) == 0 {
		return "", io.EOF
	}
	a := (*s)[0]
	*s = (*s)[1:]
	return a, nil
}

type harness struct {
	seq    *Sequencer
	dev    *fakeDevice
	props  *fakeProps
	link   *fakeLink
	sleeps []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{dev: &fakeDevice{fail: map[string]error{}}, props: newFakeProps(), link: &fakeLink{}}
	h.seq = New(h.dev, h.props, h.link, Timings{}, debug.Discard())
	h.seq.sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	return h
}

func outcome(t *testing.T, err error) *SequenceError {
	t.Helper()
	var serr *SequenceError
	require.True(t, errors.As(err, &serr), "want *SequenceError, got %v", err)
	return serr
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name     string
		readings []uint64
		doneAt   int
	}{
		{"never starts", []uint64{0, 0, 0}, -1},
		{"short format", []uint64{0, 5, 0}, 2},
		{"typical", []uint64{0, 10, 35, 100, 0}, 4},
		{"already running", []uint64{40, 80, 0, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fp formatProgress
			got := -1
			for i, r := range tt.readings {
				if fp.observe(r) {
					got = i
					break
				}
			}
			assert.Equal(t, tt.doneAt, got)
		})
	}
}

func formatReady(p *fakeProps) {
	p.values[property.MediaSLOT1FormatEnableStatus] = property.Enable
	p.values[property.MediaSLOT2FormatEnableStatus] = property.Disable
	p.values[property.MediaSLOT1QuickFormatEnableStatus] = property.Enable
	p.values[property.MediaSLOT2QuickFormatEnableStatus] = property.Disable
	p.writable[property.MediaSLOT1QuickFormatEnableStatus] = true
}

func TestFormatMedia_WaitsForZeroAfterStart(t *testing.T) {
	h := newHarness(t)
	formatReady(h.props)
	h.props.readings[property.MediaFormatProgressRate] = []uint64{0, 0, 20, 60, 0}

	require.NoError(t, h.seq.FormatMedia(context.Background(), 1, false))

	assert.Equal(t, []string{"cmd MediaFormat Up"}, h.dev.log())
	assert.Len(t, h.sleeps, 4)
	for _, d := range h.sleeps {
		assert.Equal(t, 250*time.Millisecond, d)
	}
}

func TestFormatMedia_QuickSlot1(t *testing.T) {
	h := newHarness(t)
	formatReady(h.props)
	h.props.readings[property.MediaFormatProgressRate] = []uint64{5, 0}

	require.NoError(t, h.seq.FormatMedia(context.Background(), 1, true))
	assert.Equal(t, []string{"cmd MediaQuickFormat Up"}, h.dev.log())
}

func TestFormatMedia_Rejections(t *testing.T) {
	h := newHarness(t)
	formatReady(h.props)

	assert.ErrorIs(t, h.seq.FormatMedia(context.Background(), 2, false), ErrNotSupported)
	assert.ErrorIs(t, h.seq.FormatMedia(context.Background(), 3, false), ErrCancelled)

	h.props.writable[property.MediaSLOT1QuickFormatEnableStatus] = false
	assert.ErrorIs(t, h.seq.FormatMedia(context.Background(), 1, true), ErrNotSupported)

	h.props.values[property.MediaSLOT1FormatEnableStatus] = property.Disable
	assert.ErrorIs(t, h.seq.FormatMedia(context.Background(), 1, false), ErrNotSupported)

	assert.Empty(t, h.dev.log())
}

func TestFormatMedia_DisconnectEndsPolling(t *testing.T) {
	h := newHarness(t)
	formatReady(h.props)
	h.props.onLoad = func(n int) {
		if n == 4 {
			h.link.down.Store(true)
		}
	}

	err := h.seq.FormatMedia(context.Background(), 1, false)
	serr := outcome(t, err)
	assert.Equal(t, OutcomeCancelled, serr.Outcome)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestFormatMedia_TransportErrorEndsPolling(t *testing.T) {
	h := newHarness(t)
	formatReady(h.props)
	h.props.onLoad = func(n int) {
		if n == 2 {
			h.props.mu.Lock()
			h.props.loadErr = sdk.ErrDeviceBusy
			h.props.mu.Unlock()
		}
	}

	err := h.seq.FormatMedia(context.Background(), 1, false)
	assert.ErrorIs(t, err, sdk.ErrDeviceBusy)
	assert.Equal(t, OutcomeFailed, outcome(t, err).Outcome)
}

func TestCustomWhiteBalance_GivesUpAfterFiveAttempts(t *testing.T) {
	h := newHarness(t)
	h.props.values[property.CustomWBCaptureOperation] = property.Disable

	err := h.seq.CustomWhiteBalance(context.Background(), 320, 240)

	serr := outcome(t, err)
	assert.Equal(t, OutcomeTimedOut, serr.Outcome)
	assert.ErrorIs(t, err, ErrTimedOut)

	presses := 0
	for _, v := range h.dev.writesTo(property.CustomWBCaptureStandby) {
		if v == property.CustomWBDown {
			presses++
		}
	}
	assert.Equal(t, 5, presses)
	assert.Empty(t, h.dev.writesTo(property.CustomWBCapture))
	assert.Empty(t, h.dev.writesTo(property.CustomWBCaptureStandbyCancel))
}

func TestCustomWhiteBalance_Calibrates(t *testing.T) {
	h := newHarness(t)
	h.props.readings[property.CustomWBCaptureOperation] = []uint64{property.Disable, property.Disable, property.Enable}

	var steps []PendingStep
	h.seq.Observe(func(p PendingStep) { steps = append(steps, p) })

	require.NoError(t, h.seq.CustomWhiteBalance(context.Background(), 100, 50))

	assert.Equal(t, []uint64{property.PriorityPCRemote}, h.dev.writesTo(property.PriorityKeySettings))
	assert.Equal(t, []uint64{property.ExposureProgramAuto}, h.dev.writesTo(property.ExposureProgramMode))
	assert.Equal(t, []uint64{property.WBCustom1}, h.dev.writesTo(property.WhiteBalance))
	assert.Len(t, h.dev.writesTo(property.CustomWBCaptureStandby), 6)
	assert.Equal(t, []uint64{100<<16 | 50}, h.dev.writesTo(property.CustomWBCapture))
	assert.Equal(t, []uint64{property.CustomWBDown, property.CustomWBUp},
		h.dev.writesTo(property.CustomWBCaptureStandbyCancel))

	var retries int
	for _, s := range steps {
		if s.Name == "standby check" && s.Retries > retries {
			retries = s.Retries
		}
	}
	assert.Equal(t, 2, retries)
	assert.Contains(t, h.sleeps, 5*time.Second)
}

func TestCustomWhiteBalance_PositionOutOfRange(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.seq.CustomWhiteBalance(context.Background(), 640, 0), ErrCancelled)
	assert.ErrorIs(t, h.seq.CustomWhiteBalance(context.Background(), 0, -1), ErrCancelled)
	assert.Empty(t, h.dev.log())
}

func TestZoom_RangedInput(t *testing.T) {
	tests := []struct {
		name   string
		input  script
		writes []uint64
	}{
		{"above range", script{"8"}, []uint64{0}},
		{"not a number", script{"abc"}, []uint64{0}},
		{"one speed then stop", script{"3", "x"}, []uint64{3, 0}},
		{"negative speed", script{"-7", "-8"}, []uint64{0xF9, 0}},
		{"end of input stops", script{"2"}, []uint64{2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.props.zoom = []int64{-7, 7}
			in := tt.input

			require.NoError(t, h.seq.Zoom(context.Background(), &in))
			assert.Equal(t, tt.writes, h.dev.writesTo(property.ZoomOperation))
		})
	}
}

func TestZoom_ExactlyOneWriteOfThree(t *testing.T) {
	h := newHarness(t)
	h.props.zoom = []int64{-7, 7}
	in := script{"3", "abc"}

	require.NoError(t, h.seq.Zoom(context.Background(), &in))
	threes := 0
	for _, v := range h.dev.writesTo(property.ZoomOperation) {
		if v == 3 {
			threes++
		}
	}
	assert.Equal(t, 1, threes)
}

func TestZoom_DiscreteMode(t *testing.T) {
	h := newHarness(t)
	in := script{"2", "1", "0", "-1"}

	require.NoError(t, h.seq.Zoom(context.Background(), &in))
	assert.Equal(t, []uint64{1, 0xFF, 0}, h.dev.writesTo(property.ZoomOperation))
}

func TestZoomStep(t *testing.T) {
	v, ok := zoomStep(" 7 ", -7, 7, true)
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok = zoomStep("0", -7, 7, true)
	assert.True(t, ok)

	v, ok = zoomStep("3", 0, 0, false)
	assert.False(t, ok)
	assert.Equal(t, int64(property.ZoomStop), v)
}

func TestContinuousShooting_PrerequisiteFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.dev.fail[fmt.Sprintf("set DriveMode=%d", property.DriveContinuousHi)] = sdk.ErrDeviceBusy

	err := h.seq.ContinuousShooting(context.Background())
	assert.ErrorIs(t, err, sdk.ErrDeviceBusy)
	assert.Equal(t, OutcomeFailed, outcome(t, err).Outcome)
	for _, c := range h.dev.log() {
		assert.NotContains(t, c, "cmd Release")
	}
}

func TestContinuousShooting_Sequence(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.seq.ContinuousShooting(context.Background()))
	assert.Equal(t, []string{
		fmt.Sprintf("set PriorityKeySettings=%d", property.PriorityPCRemote),
		fmt.Sprintf("set DriveMode=%d", property.DriveContinuousHi),
		"cmd Release Down",
		"cmd Release Up",
	}, h.dev.log())
	assert.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond}, h.sleeps)
}

func TestHalfFullRelease_Timing(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.seq.Shoot(context.Background()))

	assert.Equal(t, []string{
		fmt.Sprintf("set PriorityKeySettings=%d", property.PriorityPCRemote),
		fmt.Sprintf("set S1=%d", property.LockLocked),
		"cmd Release Down",
		"cmd Release Up",
		fmt.Sprintf("set S1=%d", property.LockUnlocked),
	}, h.dev.log())
	assert.Equal(t, []time.Duration{
		2 * time.Second, 1200 * time.Millisecond, 2 * time.Second, 200 * time.Millisecond, 200 * time.Millisecond,
	}, h.sleeps)
}

func TestHalfFullRelease_UnlocksAfterReleaseFailure(t *testing.T) {
	h := newHarness(t)
	h.dev.fail["cmd Release Down"] = sdk.ErrDeviceBusy

	err := h.seq.HalfFullRelease(context.Background())
	assert.ErrorIs(t, err, sdk.ErrDeviceBusy)

	calls := h.dev.log()
	assert.Equal(t, fmt.Sprintf("set S1=%d", property.LockUnlocked), calls[len(calls)-1])
	assert.NotContains(t, calls, "cmd Release Up")
}

func TestRelease(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.seq.Release(context.Background()))
	assert.Equal(t, []string{"cmd Release Down", "cmd Release Up"}, h.dev.log())
	assert.Equal(t, []time.Duration{35 * time.Millisecond}, h.sleeps)
}

func TestS1Shooting_RefusesManualFocus(t *testing.T) {
	h := newHarness(t)
	h.props.values[property.FocusMode] = property.FocusMF
	assert.ErrorIs(t, h.seq.S1Shooting(context.Background()), ErrManualFocus)
	assert.ErrorIs(t, h.seq.AFShutter(context.Background()), ErrManualFocus)
	assert.Empty(t, h.dev.log())
}

func TestAFShutter(t *testing.T) {
	h := newHarness(t)
	h.props.values[property.FocusMode] = property.FocusAFS
	require.NoError(t, h.seq.AFShutter(context.Background()))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 35 * time.Millisecond, time.Second}, h.sleeps)
	assert.Equal(t, []uint64{property.LockLocked, property.LockUnlocked}, h.dev.writesTo(property.S1))
}

func TestSequence_RequiresConnection(t *testing.T) {
	h := newHarness(t)
	h.link.down.Store(true)

	err := h.seq.Release(context.Background())
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.Equal(t, OutcomeCancelled, outcome(t, err).Outcome)
	assert.Empty(t, h.dev.log())
}

func TestSequence_ContextCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.seq.ContinuousShooting(ctx), context.Canceled)
	assert.Empty(t, h.dev.log())
}

func TestPresetFocus(t *testing.T) {
	h := newHarness(t)
	h.props.values[property.ZoomAndFocusPositionSave] = 0
	h.props.writable[property.ZoomAndFocusPositionSave] = true
	h.props.possible[property.ZoomAndFocusPositionSave] = []uint64{1, 2, 3}

	assert.ErrorIs(t, h.seq.PresetFocus(context.Background(), PresetSave, 9), ErrCancelled)
	assert.ErrorIs(t, h.seq.PresetFocus(context.Background(), PresetLoad, 1), ErrNotSupported)
	assert.Empty(t, h.dev.log())

	require.NoError(t, h.seq.PresetFocus(context.Background(), PresetSave, 2))
	require.Len(t, h.dev.writes, 1)
	assert.Equal(t, sdk.TypeUInt8, h.dev.writes[0].ValueType)
	assert.Equal(t, uint64(2), h.dev.writes[0].Current)
}

func TestPresetFocus_NotSupported(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.seq.PresetFocus(context.Background(), PresetSave, 1), ErrNotSupported)
}

func TestSetAFAreaPosition(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.seq.SetAFAreaPosition(context.Background(), 639, 479))
	assert.Equal(t, []uint64{property.AreaFlexibleSpotS}, h.dev.writesTo(property.FocusArea))
	assert.Equal(t, []uint64{639<<16 | 479}, h.dev.writesTo(property.AFAreaPosition))
	assert.Equal(t, sdk.TypeUInt32, h.dev.writes[1].ValueType)
}

func TestLock(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.seq.Lock(context.Background(), property.AEL, true))
	require.NoError(t, h.seq.Lock(context.Background(), property.AEL, false))
	assert.Equal(t, []uint64{property.LockLocked, property.LockUnlocked}, h.dev.writesTo(property.AEL))
	assert.ErrorIs(t, h.seq.Lock(context.Background(), property.FNumber, true), ErrNotSupported)
}

func TestMovieRecord(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.seq.MovieRecord(context.Background(), sdk.ParamDown))
	assert.Equal(t, []string{"cmd MovieRecord Down"}, h.dev.log())
}

func TestSetFromPossible(t *testing.T) {
	h := newHarness(t)
	h.props.values[property.FNumber] = 560
	h.props.writable[property.FNumber] = true
	h.props.possible[property.FNumber] = []uint64{280, 400, 560}

	require.NoError(t, h.seq.SetFromPossible(context.Background(), property.FNumber, 1))
	assert.Equal(t, []uint64{400}, h.dev.writesTo(property.FNumber))
	assert.ErrorIs(t, h.seq.SetFromPossible(context.Background(), property.FNumber, 3), ErrCancelled)

	h.props.writable[property.FNumber] = false
	assert.ErrorIs(t, h.seq.SetFromPossible(context.Background(), property.FNumber, 0), property.ErrNotWritable)
}

func TestSetValueAndGetValue(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.seq.SetValue(context.Background(), property.ExposureBiasCompensation, uint64(0xFFFF&-1000)))
	require.Len(t, h.dev.writes, 1)
	assert.Equal(t, sdk.TypeInt16, h.dev.writes[0].ValueType)
	assert.Equal(t, []time.Duration{time.Second}, h.sleeps)

	h.props.values[property.FNumber] = 800
	v, err := h.seq.GetValue(context.Background(), property.FNumber)
	require.NoError(t, err)
	assert.Equal(t, "F8.0", v.String())
	assert.Equal(t, 400*time.Millisecond, h.sleeps[1])

	_, err = h.seq.GetValue(context.Background(), property.BatteryRemain)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestWaitForValue(t *testing.T) {
	h := newHarness(t)
	h.props.readings[property.RecordingState] = []uint64{0, 0, 1}
	require.NoError(t, h.seq.WaitForValue(context.Background(), property.RecordingState, 1))
	assert.Len(t, h.sleeps, 2)

	h = newHarness(t)
	h.props.values[property.RecordingState] = 0
	err := h.seq.WaitForValue(context.Background(), property.RecordingState, 1)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, OutcomeTimedOut, outcome(t, err).Outcome)
	assert.Len(t, h.sleeps, 20)
}

func TestToggleLiveView(t *testing.T) {
	h := newHarness(t)
	h.props.values[property.LiveViewStatus] = 1

	on, err := h.seq.ToggleLiveView(context.Background())
	require.NoError(t, err)
	assert.True(t, on)

	h.props.values[property.LiveViewStatus] = 2
	on, err = h.seq.ToggleLiveView(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, []uint32{1, 0}, h.dev.settings)
}

func TestObserver_StepIndexesIncrease(t *testing.T) {
	h := newHarness(t)
	var steps []PendingStep
	h.seq.Observe(func(p PendingStep) { steps = append(steps, p) })

	require.NoError(t, h.seq.Release(context.Background()))
	require.Len(t, steps, 4)
	assert.Equal(t, 1, steps[0].Index)
	assert.Equal(t, OutcomePending, steps[0].Outcome)
	assert.Equal(t, OutcomeSuccess, steps[1].Outcome)
	assert.Equal(t, 2, steps[3].Index)
	assert.Equal(t, "release", steps[3].Sequence)
}

func TestDefaultTimingsFillZeroes(t *testing.T) {
	got := Timings{ReleaseHold: time.Millisecond}.withDefaults()
	assert.Equal(t, time.Millisecond, got.ReleaseHold)
	assert.Equal(t, 5, got.WBStandbyAttempts)
	assert.Equal(t, 250*time.Millisecond, got.FormatPoll)
}
