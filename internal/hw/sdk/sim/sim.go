// Package sim is a simulated camera transport. It keeps a property table,
// answers commands the way a body would, and delivers callbacks from its own
// goroutine. It registers itself as the "sim" transport.
package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

func init() {
	sdk.Register("sim", func() (sdk.Transport, error) { return New(), nil })
}

// jpegStub is a minimal SOI/EOI framed payload used for every image.
var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

type prop struct {
	value    uint64
	settable bool
	possible []uint64
}

type content struct {
	handle sdk.ContentHandle
	folder sdk.FolderHandle
	name   string
}

// Camera is the simulated device.
type Camera struct {
	// ConnectErr, when set, makes Connect fail with it.
	ConnectErr error
	// StandbyRejects is the number of custom white balance standby requests
	// that are ignored before the body enters standby.
	StandbyRejects int
	// Latency delays each callback.
	Latency time.Duration

	mu         sync.Mutex
	props      map[property.Code]*prop
	handle     sdk.Handle
	nextHandle sdk.Handle
	released   bool
	mode       sdk.Mode
	queue      chan func(sdk.Callbacks)
	done       chan struct{}
	savePath   string
	prefix     string
	index      int
	contents   []content
	format     []uint64
	writes     []sdk.RawProperty
	commands   []sdk.CommandID
}

// New returns a camera in its power-on state.
func New() *Camera {
	c := &Camera{nextHandle: 1, props: make(map[property.Code]*prop)}
	c.reset()
	return c
}

func (c *Camera) define(code property.Code, value uint64, settable bool, possible ...uint64) {
	c.props[code] = &prop{value: value, settable: settable, possible: possible}
}

func ev(stops float64) uint64 { return uint64(int64(stops * 1000)) }

func (c *Camera) reset() {
	for _, code := range []property.Code{property.S1, property.S2, property.AEL, property.FEL, property.AFL, property.AWBL} {
		c.define(code, property.LockUnlocked, true, property.LockUnlocked, property.LockLocked)
	}
	c.define(property.FNumber, 560, true, 280, 400, 560, 800, 1100, 1600)
	c.define(property.ExposureBiasCompensation, 0, true, ev(-2), ev(-1), 0, ev(1), ev(2))
	c.define(property.ShutterSpeed, 1<<16|125, true, 1<<16|1000, 1<<16|250, 1<<16|125, 1<<16|60, 1<<16|30)
	c.define(property.IsoSensitivity, property.ISOAuto, true, property.ISOAuto, 100, 200, 400, 800, 1600, 3200)
	c.define(property.ExposureProgramMode, property.ExposureProgramAuto, true,
		property.ExposureManual, property.ExposureProgramAuto, property.ExposureAperturePrio, property.ExposureShutterPrio)
	c.define(property.WhiteBalance, property.WBAuto, true,
		property.WBAuto, property.WBDaylight, property.WBCloudy, property.WBTungsten, property.WBCustom1)
	c.define(property.FocusMode, property.FocusAFS, true, property.FocusMF, property.FocusAFS, property.FocusAFC)
	c.define(property.DriveMode, property.DriveSingle, true,
		property.DriveSingle, property.DriveContinuousHi, property.DriveContinuousLo)
	c.define(property.FocusArea, property.AreaWide, true,
		property.AreaWide, property.AreaCenter, property.AreaFlexibleSpotS)
	c.define(property.PriorityKeySettings, property.PriorityCameraPosition, true,
		property.PriorityCameraPosition, property.PriorityPCRemote)
	c.define(property.LiveViewImageQuality, 2, true, 1, 2)
	c.define(property.AFAreaPosition, 320<<16|240, true)
	c.define(property.CustomWBCaptureStandby, property.CustomWBUp, true)
	c.define(property.CustomWBCaptureStandbyCancel, property.CustomWBUp, true)
	c.define(property.CustomWBCapture, 0, true)
	c.define(property.CustomWBExecutionState, property.CustomWBStateInvalid, false)
	c.define(property.CustomWBCaptureOperation, property.Disable, false)
	c.define(property.ZoomOperation, 0, true, 0xFF, 0, 1)
	c.define(property.ZoomSpeedRange, 0, false, 0xF9, 0x07)
	c.define(property.ZoomSetting, 1, true, 1, 3)
	c.define(property.ZoomOperationStatus, property.Enable, false)
	c.define(property.ZoomTypeStatus, 1, false)
	c.define(property.ZoomBarInformation, 0, false)
	c.define(property.RemoconZoomSpeedType, 1, true, 1, 2)
	c.define(property.ZoomAndFocusPositionSave, 0, true, 1, 2, 3)
	c.define(property.ZoomAndFocusPositionLoad, 0, true, 1, 2, 3)
	c.define(property.BatteryRemain, 87, false)
	c.define(property.RecordingState, 0, false)
	c.define(property.LiveViewStatus, 1, false)
	c.define(property.MediaSLOT1Status, 1, false)
	c.define(property.MediaSLOT2Status, 0, false)
	c.define(property.MediaSLOT1RemainingNumber, 999, false)
	c.define(property.MediaSLOT1FormatEnableStatus, property.Enable, false)
	c.define(property.MediaSLOT2FormatEnableStatus, property.Disable, false)
	c.define(property.MediaSLOT1QuickFormatEnableStatus, property.Enable, true)
	c.define(property.MediaSLOT2QuickFormatEnableStatus, property.Disable, false)
	c.define(property.MediaFormatProgressRate, 0, false)
	c.define(property.SdkControlMode, property.ControlRemote, false)
	c.define(property.ContentsTransferStatus, 0, false)
}

// DisableZoomSpeedRange makes the body report no continuous zoom range.
func (c *Camera) DisableZoomSpeedRange() {
	c.mu.Lock()
	c.props[property.ZoomSpeedRange].possible = nil
	c.mu.Unlock()
}

// Value returns the raw current value of code.
func (c *Camera) Value(code property.Code) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.props[code]; ok {
		return p.value
	}
	return 0
}

// Writes returns every property write received, in order.
func (c *Camera) Writes() []sdk.RawProperty {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sdk.RawProperty(nil), c.writes...)
}

// Commands returns every command received, in order.
func (c *Camera) Commands() []sdk.CommandID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sdk.CommandID(nil), c.commands...)
}

// Change sets a property from the body side and notifies the host.
func (c *Camera) Change(code property.Code, value uint64) {
	c.mu.Lock()
	if p, ok := c.props[code]; ok {
		p.value = value
	}
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnPropertyChangedCodes([]uint32{uint32(code)}) })
	c.mu.Unlock()
}

// Drop simulates the body going away (cable pulled, power off).
func (c *Camera) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnDisconnected(sdk.ErrConnectDisconnected) })
	c.stopLocked()
}

// Warn delivers a warning callback.
func (c *Camera) Warn(code sdk.Status) {
	c.mu.Lock()
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnWarning(code) })
	c.mu.Unlock()
}

// Fail delivers an error callback.
func (c *Camera) Fail(code sdk.Status) {
	c.mu.Lock()
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnError(code) })
	c.mu.Unlock()
}

func (c *Camera) emitLocked(fn func(sdk.Callbacks)) {
	if c.queue == nil {
		return
	}
	c.queue <- fn
}

func (c *Camera) notifyLocked(codes ...property.Code) {
	raw := make([]uint32, len(codes))
	for i, code := range codes {
		raw[i] = uint32(code)
	}
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnPropertyChangedCodes(raw) })
}

func (c *Camera) stopLocked() {
	if c.queue == nil {
		return
	}
	close(c.queue)
	c.queue = nil
}

func (c *Camera) loop(queue <-chan func(sdk.Callbacks), cb sdk.Callbacks, done chan<- struct{}) {
	defer close(done)
	for fn := range queue {
		if c.Latency > 0 {
			time.Sleep(c.Latency)
		}
		fn(cb)
	}
}

// Wait blocks until every callback of the last session has been delivered.
func (c *Camera) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Camera) checkLocked(h sdk.Handle) error {
	if h == 0 || h != c.handle || c.released {
		return sdk.ErrGenericInvalidHandle
	}
	return nil
}

func (c *Camera) Connect(mode sdk.Mode, cb sdk.Callbacks) (sdk.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConnectErr != nil {
		return 0, c.ConnectErr
	}
	if c.queue != nil {
		return 0, sdk.ErrConnectRejected
	}
	c.handle = c.nextHandle
	c.nextHandle++
	c.released = false
	c.mode = mode
	if mode == sdk.ModeContentsTransfer {
		c.props[property.SdkControlMode].value = property.ControlContentsTransfer
		c.props[property.ContentsTransferStatus].value = 1
	} else {
		c.props[property.SdkControlMode].value = property.ControlRemote
		c.props[property.ContentsTransferStatus].value = 0
	}

	c.queue = make(chan func(sdk.Callbacks), 256)
	c.done = make(chan struct{})
	go c.loop(c.queue, cb, c.done)
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnConnected() })
	return c.handle, nil
}

func (c *Camera) Disconnect(h sdk.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return err
	}
	if c.queue == nil {
		return sdk.ErrConnectDisconnected
	}
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnDisconnected(sdk.OK) })
	c.stopLocked()
	return nil
}

func (c *Camera) ReleaseDevice(h sdk.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return err
	}
	c.released = true
	c.stopLocked()
	return nil
}

func (c *Camera) rawLocked(code property.Code) (sdk.RawProperty, bool) {
	p, ok := c.props[code]
	if !ok {
		return sdk.RawProperty{}, false
	}
	spec, _ := property.Lookup(code)
	if code == property.MediaFormatProgressRate && len(c.format) > 0 {
		p.value, c.format = c.format[0], c.format[1:]
	}
	return sdk.RawProperty{
		Code:      uint32(code),
		ValueType: spec.Kind.DataType(),
		Settable:  p.settable,
		Current:   p.value & spec.Kind.Mask(),
		Values:    spec.Kind.Pack(p.possible...),
	}, true
}

func (c *Camera) GetDeviceProperties(h sdk.Handle) ([]sdk.RawProperty, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return nil, err
	}
	codes := make([]property.Code, 0, len(c.props))
	for code := range c.props {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	out := make([]sdk.RawProperty, 0, len(codes))
	for _, code := range codes {
		r, _ := c.rawLocked(code)
		out = append(out, r)
	}
	return out, nil
}

func (c *Camera) GetSelectDeviceProperties(h sdk.Handle, codes []uint32) ([]sdk.RawProperty, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return nil, err
	}
	out := make([]sdk.RawProperty, 0, len(codes))
	for _, code := range codes {
		if r, ok := c.rawLocked(property.Code(code)); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Camera) SetDeviceProperty(h sdk.Handle, r sdk.RawProperty) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return err
	}
	code := property.Code(r.Code)
	p, ok := c.props[code]
	if !ok {
		return sdk.ErrGenericNotSupported
	}
	if !p.settable {
		return sdk.ErrAPIInvalidCalled
	}
	c.writes = append(c.writes, r)
	p.value = r.Current

	switch code {
	case property.CustomWBCaptureStandby:
		if r.Current == property.CustomWBUp && c.props[property.CustomWBCaptureOperation].value != property.Enable {
			if c.StandbyRejects > 0 {
				c.StandbyRejects--
				break
			}
			c.props[property.CustomWBCaptureOperation].value = property.Enable
			c.props[property.CustomWBExecutionState].value = property.CustomWBStateStandby
			c.notifyLocked(property.CustomWBCaptureOperation, property.CustomWBExecutionState)
		}
	case property.CustomWBCaptureStandbyCancel:
		if r.Current == property.CustomWBUp {
			c.props[property.CustomWBCaptureOperation].value = property.Disable
			c.props[property.CustomWBExecutionState].value = property.CustomWBStateInvalid
			c.notifyLocked(property.CustomWBCaptureOperation, property.CustomWBExecutionState)
		}
	case property.CustomWBCapture:
		c.props[property.CustomWBExecutionState].value = property.CustomWBStateCapturing
		c.notifyLocked(property.CustomWBExecutionState)
	case property.ZoomOperation:
		bar := c.props[property.ZoomBarInformation]
		step := int64(int8(r.Current))
		bar.value = uint64(max(0, int64(bar.value)+step))
		c.notifyLocked(property.ZoomOperation, property.ZoomBarInformation)
	default:
		c.notifyLocked(code)
	}
	return nil
}

func (c *Camera) SendCommand(h sdk.Handle, id sdk.CommandID, param sdk.CommandParam) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return err
	}
	c.commands = append(c.commands, id)

	switch id {
	case sdk.CmdRelease:
		if param == sdk.ParamUp {
			return c.shootLocked()
		}
	case sdk.CmdMovieRecord:
		rec := c.props[property.RecordingState]
		if param == sdk.ParamDown {
			rec.value = 1
		} else {
			rec.value = 0
		}
		c.notifyLocked(property.RecordingState)
	case sdk.CmdMediaFormat, sdk.CmdMediaQuickFormat:
		slot := property.MediaSLOT1FormatEnableStatus
		if param == sdk.ParamDown {
			slot = property.MediaSLOT2FormatEnableStatus
		}
		if c.props[slot].value != property.Enable {
			return sdk.ErrAPIInvalidCalled
		}
		c.format = []uint64{0, 10, 35, 60, 85, 100, 0}
		c.contents = nil
	case sdk.CmdCancelMediaFormat:
		c.format = nil
		c.props[property.MediaFormatProgressRate].value = 0
	}
	return nil
}

func (c *Camera) shootLocked() error {
	c.index++
	name := fmt.Sprintf("%sDSC%05d.JPG", c.prefix, c.index)
	c.contents = append(c.contents, content{
		handle: sdk.ContentHandle(len(c.contents) + 1),
		folder: 1,
		name:   name,
	})
	if c.mode != sdk.ModeRemote || c.savePath == "" {
		return nil
	}
	path := filepath.Join(c.savePath, name)
	if err := os.WriteFile(path, jpegStub, 0o644); err != nil {
		return sdk.ErrGeneric
	}
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnCompleteDownload(path) })
	return nil
}

func (c *Camera) SetSaveInfo(h sdk.Handle, path, prefix string, startIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return err
	}
	c.savePath = path
	c.prefix = prefix
	if startIndex >= 0 {
		c.index = startIndex
	}
	return nil
}

func (c *Camera) SetDeviceSetting(h sdk.Handle, key sdk.SettingKey, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return err
	}
	if key != sdk.SettingEnableLiveView {
		return sdk.ErrGenericNotSupported
	}
	if value != 0 {
		c.props[property.LiveViewStatus].value = 2
	} else {
		c.props[property.LiveViewStatus].value = 1
	}
	c.notifyLocked(property.LiveViewStatus)
	return nil
}

func (c *Camera) GetLiveViewImage(h sdk.Handle) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return nil, err
	}
	if c.props[property.LiveViewStatus].value != 2 {
		return nil, sdk.WarnFrameNotUpdated
	}
	return append([]byte(nil), jpegStub...), nil
}

func (c *Camera) GetLiveViewProperties(h sdk.Handle) ([]sdk.RawProperty, error) {
	return c.GetSelectDeviceProperties(h, []uint32{uint32(property.FocusArea), uint32(property.AFAreaPosition)})
}

func (c *Camera) GetDateFolderList(h sdk.Handle) ([]sdk.DateFolder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return nil, err
	}
	if c.mode != sdk.ModeContentsTransfer {
		return nil, sdk.ErrAPIInvalidCalled
	}
	if len(c.contents) == 0 {
		return nil, nil
	}
	now := time.Now()
	return []sdk.DateFolder{{Handle: 1, Year: now.Year(), Month: int(now.Month()), Day: now.Day()}}, nil
}

func (c *Camera) GetContentsHandleList(h sdk.Handle, folder sdk.FolderHandle) ([]sdk.ContentHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return nil, err
	}
	var out []sdk.ContentHandle
	for _, ct := range c.contents {
		if ct.folder == folder {
			out = append(out, ct.handle)
		}
	}
	return out, nil
}

func (c *Camera) findLocked(handle sdk.ContentHandle) (content, bool) {
	for _, ct := range c.contents {
		if ct.handle == handle {
			return ct, true
		}
	}
	return content{}, false
}

func (c *Camera) GetContentsDetailInfo(h sdk.Handle, handle sdk.ContentHandle) (sdk.ContentInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return sdk.ContentInfo{}, err
	}
	ct, ok := c.findLocked(handle)
	if !ok {
		return sdk.ContentInfo{}, sdk.ErrGenericInvalidParam
	}
	return sdk.ContentInfo{
		Handle: ct.handle,
		Folder: ct.folder,
		Files:  []sdk.ContentFile{{Path: "/DCIM/100MSDCF/" + ct.name, Size: uint64(len(jpegStub))}},
	}, nil
}

func (c *Camera) PullContentsFile(h sdk.Handle, handle sdk.ContentHandle, size sdk.PullSize) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return err
	}
	ct, ok := c.findLocked(handle)
	if !ok {
		c.emitLocked(func(cb sdk.Callbacks) {
			cb.OnContentsTransfer(sdk.NotifyContentsTransferInvalidHandle, handle, "")
		})
		return nil
	}
	name := ct.name
	if size == sdk.PullScreennail2M {
		name = "SN_" + name
	}
	path := filepath.Join(c.savePath, name)
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnContentsTransfer(sdk.NotifyContentsTransferStart, handle, "") })
	if err := os.WriteFile(path, jpegStub, 0o644); err != nil {
		c.emitLocked(func(cb sdk.Callbacks) { cb.OnContentsTransfer(sdk.NotifyContentsTransferFailed, handle, path) })
		return nil
	}
	c.emitLocked(func(cb sdk.Callbacks) { cb.OnContentsTransfer(sdk.NotifyContentsTransferComplete, handle, path) })
	return nil
}

func (c *Camera) GetContentsThumbnailImage(h sdk.Handle, handle sdk.ContentHandle) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(h); err != nil {
		return nil, err
	}
	if _, ok := c.findLocked(handle); !ok {
		return nil, sdk.ErrGenericInvalidParam
	}
	return append([]byte(nil), jpegStub...), nil
}

var _ sdk.Transport = (*Camera)(nil)
