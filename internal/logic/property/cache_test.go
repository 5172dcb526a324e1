package property

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
)

// fakeSource serves a mutable property table and records requests.
type fakeSource struct {
	mu       sync.Mutex
	props    map[uint32]sdk.RawProperty
	err      error
	selected [][]uint32
	full     int
}

func newFakeSource(props ...sdk.RawProperty) *fakeSource {
	s := &fakeSource{props: make(map[uint32]sdk.RawProperty)}
	for _, p := range props {
		s.props[p.Code] = p
	}
	return s
}

func (s *fakeSource) set(p sdk.RawProperty) {
	s.mu.Lock()
	s.props[p.Code] = p
	s.mu.Unlock()
}

func (s *fakeSource) AllProperties() ([]sdk.RawProperty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]sdk.RawProperty, 0, len(s.props))
	for _, p := range s.props {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeSource) SelectedProperties(codes []uint32) ([]sdk.RawProperty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append(s.selected, codes)
	if s.err != nil {
		return nil, s.err
	}
	var out []sdk.RawProperty
	for _, c := range codes {
		if p, ok := s.props[c]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func rawProp(code Code, current uint64, settable bool, possible ...uint64) sdk.RawProperty {
	spec, _ := Lookup(code)
	return sdk.RawProperty{
		Code:      uint32(code),
		ValueType: spec.Kind.DataType(),
		Settable:  settable,
		Current:   current,
		Values:    spec.Kind.Pack(possible...),
	}
}

func TestCache_FullLoad(t *testing.T) {
	src := newFakeSource(
		rawProp(FNumber, 560, true, 400, 560, 800),
		rawProp(IsoSensitivity, ISOAuto, false),
		rawProp(ZoomSpeedRange, 0xF9, false, 0xF9, 0x07),
	)
	c := NewCache(src)
	require.NoError(t, c.Load())

	p, ok := c.Get(FNumber)
	require.True(t, ok)
	assert.Equal(t, Aperture(560), p.Current)
	assert.True(t, p.Writable)
	assert.Equal(t, []Value{Aperture(400), Aperture(560), Aperture(800)}, p.Possible)
	assert.True(t, p.Contains(Aperture(800)))

	iso, _ := c.Current(IsoSensitivity)
	assert.True(t, iso.(ISO).Auto())
	assert.False(t, c.Writable(IsoSensitivity))
	assert.Empty(t, c.Possible(IsoSensitivity))

	lo, hi, ok := c.ZoomSpeedRange()
	assert.True(t, ok)
	assert.Equal(t, int64(-7), lo)
	assert.Equal(t, int64(7), hi)
	assert.Equal(t, 1, src.full)
}

func TestCache_IncrementalNeverEvicts(t *testing.T) {
	src := newFakeSource(
		rawProp(FNumber, 560, true),
		rawProp(ShutterSpeed, 1<<16|250, true),
		rawProp(WhiteBalance, WBAuto, true),
	)
	c := NewCache(src)
	require.NoError(t, c.Load())
	require.Equal(t, 3, c.Len())

	src.set(rawProp(FNumber, 800, true))
	require.NoError(t, c.Load(FNumber))

	assert.Equal(t, [][]uint32{{uint32(FNumber)}}, src.selected)
	assert.Equal(t, 3, c.Len())
	v, _ := c.Current(FNumber)
	assert.Equal(t, Aperture(800), v)
	v, ok := c.Current(ShutterSpeed)
	require.True(t, ok)
	assert.Equal(t, Shutter{1, 250}, v)
	_, ok = c.Get(WhiteBalance)
	assert.True(t, ok)
}

func TestCache_IncrementalMissingCodeKeepsEntry(t *testing.T) {
	src := newFakeSource(rawProp(FocusMode, FocusAFS, true))
	c := NewCache(src)
	require.NoError(t, c.Load())

	delete(src.props, uint32(FocusMode))
	require.NoError(t, c.Load(FocusMode))

	v, ok := c.Current(FocusMode)
	require.True(t, ok)
	assert.True(t, v.(Enum).Is(FocusAFS))
}

func TestCache_TransportErrorLeavesCacheUntouched(t *testing.T) {
	src := newFakeSource(rawProp(FNumber, 560, true))
	c := NewCache(src)
	require.NoError(t, c.Load())

	src.err = sdk.ErrDeviceBusy
	err := c.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdk.ErrDeviceBusy))

	v, ok := c.Current(FNumber)
	require.True(t, ok)
	assert.Equal(t, Aperture(560), v)
	assert.Equal(t, uint64(1), c.Loads())
}

func TestCache_DecodeErrorCommitsNothing(t *testing.T) {
	good := rawProp(FNumber, 560, true)
	bad := rawProp(ShutterSpeed, 1<<16|60, true)
	bad.Values = []byte{1, 2, 3}
	src := newFakeSource(good, bad)
	c := NewCache(src)

	assert.Error(t, c.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_UnsupportedCodesIgnored(t *testing.T) {
	src := newFakeSource(
		sdk.RawProperty{Code: 0xBEEF, Current: 1, Values: []byte{1, 2, 3}},
		rawProp(FNumber, 560, true),
	)
	c := NewCache(src)
	require.NoError(t, c.Load())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(Code(0xBEEF))
	assert.False(t, ok)
}

// The possible list is only re-decoded when its size changes.
func TestCache_PossibleRefreshIsCountBased(t *testing.T) {
	src := newFakeSource(rawProp(FNumber, 560, true, 400, 560))
	c := NewCache(src)
	require.NoError(t, c.Load())

	src.set(rawProp(FNumber, 560, true, 800, 1100))
	require.NoError(t, c.Load(FNumber))
	assert.Equal(t, []Value{Aperture(400), Aperture(560)}, c.Possible(FNumber))

	src.set(rawProp(FNumber, 560, true, 800, 1100, 1600))
	require.NoError(t, c.Load(FNumber))
	assert.Equal(t, []Value{Aperture(800), Aperture(1100), Aperture(1600)}, c.Possible(FNumber))
}

func TestCache_CurrentOutsidePossibleIsTolerated(t *testing.T) {
	src := newFakeSource(rawProp(WhiteBalance, WBCustom1, true, WBAuto, WBDaylight))
	c := NewCache(src)
	require.NoError(t, c.Load())
	p, _ := c.Get(WhiteBalance)
	assert.False(t, p.Contains(p.Current))
}

func TestCache_ModeAndReset(t *testing.T) {
	src := newFakeSource(rawProp(SdkControlMode, ControlContentsTransfer, false))
	c := NewCache(src)
	assert.Equal(t, sdk.ModeRemote, c.Mode())
	require.NoError(t, c.Load())
	assert.Equal(t, sdk.ModeContentsTransfer, c.Mode())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, sdk.ModeRemote, c.Mode())
}

func TestCache_ZoomSpeedRangeAbsent(t *testing.T) {
	src := newFakeSource(rawProp(ZoomSpeedRange, 0, false, 0))
	c := NewCache(src)
	require.NoError(t, c.Load())
	_, _, ok := c.ZoomSpeedRange()
	assert.False(t, ok)
}

func TestCache_ConcurrentLoadAndRead(t *testing.T) {
	src := newFakeSource(rawProp(FNumber, 560, true, 400, 560))
	c := NewCache(src)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Load(FNumber)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Snapshot()
				_, _ = c.Get(FNumber)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}
