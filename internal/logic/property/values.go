package property

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a decoded property value. Raw returns the bit pattern sent back
// to the device; it may carry bits above the property width, which the
// encoder masks off.
type Value interface {
	Raw() uint64
	String() string
}

// Uint is a plain unsigned quantity.
type Uint uint64

func (v Uint) Raw() uint64    { return uint64(v) }
func (v Uint) String() string { return strconv.FormatUint(uint64(v), 10) }

// Int is a plain signed quantity.
type Int int64

func (v Int) Raw() uint64    { return uint64(v) }
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// EV is an exposure offset in thousandths of a stop.
type EV int64

func (v EV) Raw() uint64 { return uint64(v) }
func (v EV) String() string {
	return fmt.Sprintf("%+.1fEV", float64(v)/1000)
}

// Aperture is an f-number; the raw value is the f-number times 100.
type Aperture uint16

const (
	ApertureUnknown Aperture = 0xFFFE
	ApertureNothing Aperture = 0xFFFF
)

var fNumberSteps = map[Aperture]string{
	100: "F1.0", 110: "F1.1", 120: "F1.2", 140: "F1.4", 160: "F1.6", 180: "F1.8",
	200: "F2.0", 220: "F2.2", 250: "F2.5", 280: "F2.8", 320: "F3.2", 350: "F3.5",
	400: "F4.0", 450: "F4.5", 500: "F5.0", 560: "F5.6", 630: "F6.3", 710: "F7.1",
	800: "F8.0", 900: "F9.0", 1000: "F10", 1100: "F11", 1300: "F13", 1400: "F14",
	1600: "F16", 1800: "F18", 2000: "F20", 2200: "F22", 2500: "F25", 2900: "F29",
	3200: "F32",
}

func (v Aperture) Raw() uint64 { return uint64(v) }
func (v Aperture) String() string {
	if v == ApertureUnknown || v == ApertureNothing {
		return "--"
	}
	if s, ok := fNumberSteps[v]; ok {
		return s
	}
	if v >= 1000 {
		return fmt.Sprintf("F%d", (v+50)/100)
	}
	return fmt.Sprintf("F%.1f", float64(v)/100)
}

// Shutter packs numerator and denominator in the high and low 16 bits.
// Zero means bulb.
type Shutter struct {
	Num uint16
	Den uint16
}

// Bulb is the open-ended shutter setting.
var Bulb = Shutter{}

func (v Shutter) Raw() uint64 { return uint64(v.Num)<<16 | uint64(v.Den) }
func (v Shutter) String() string {
	switch {
	case v == Bulb:
		return "Bulb"
	case v.Den == 0:
		return "--"
	case v.Num == 1 && v.Den > 1:
		return fmt.Sprintf("1/%d", v.Den)
	case v.Num%v.Den == 0:
		return fmt.Sprintf("%d\"", v.Num/v.Den)
	default:
		return fmt.Sprintf("%.1f\"", float64(v.Num)/float64(v.Den))
	}
}

// ISOMode is the tag carried in the top byte of an ISO value.
type ISOMode uint8

const (
	ISONormal ISOMode = iota
	ISOMultiFrameNR
	ISOMultiFrameNRHigh
)

// ISOAuto is the sensitivity field reported for automatic ISO.
const ISOAuto = 0xFFFFFF

// ISO is a tagged sensitivity: mode in bits 24-31, value in bits 0-23.
type ISO struct {
	Mode        ISOMode
	Sensitivity uint32
}

func (v ISO) Auto() bool  { return v.Sensitivity == ISOAuto }
func (v ISO) Raw() uint64 { return uint64(v.Mode)<<24 | uint64(v.Sensitivity&0xFFFFFF) }
func (v ISO) String() string {
	s := "ISO " + strconv.FormatUint(uint64(v.Sensitivity), 10)
	if v.Auto() {
		s = "ISO AUTO"
	}
	switch v.Mode {
	case ISONormal:
		return s
	case ISOMultiFrameNR:
		return "Multi Frame NR " + s
	case ISOMultiFrameNRHigh:
		return "Multi Frame NR High " + s
	default:
		return fmt.Sprintf("mode %d %s", v.Mode, s)
	}
}

// Position packs an X/Y coordinate pair as x<<16|y.
type Position struct {
	X uint16
	Y uint16
}

func (v Position) Raw() uint64    { return uint64(v.X)<<16 | uint64(v.Y) }
func (v Position) String() string { return fmt.Sprintf("(%d,%d)", v.X, v.Y) }

// EnumSet names the values of an enumerated property.
type EnumSet struct {
	Name   string
	values map[uint64]string
}

func newEnumSet(name string, values map[uint64]string) *EnumSet {
	return &EnumSet{Name: name, values: values}
}

// Lookup resolves a value name, case-insensitively.
func (s *EnumSet) Lookup(name string) (Enum, bool) {
	for v, n := range s.values {
		if strings.EqualFold(n, name) {
			return Enum{Set: s, V: v}, true
		}
	}
	return Enum{}, false
}

// Names lists the known value names in raw order.
func (s *EnumSet) Names() []string {
	keys := make([]uint64, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = s.values[k]
	}
	return names
}

// Value builds an Enum member from a raw value.
func (s *EnumSet) Value(v uint64) Enum { return Enum{Set: s, V: v} }

// Enum is a member of an EnumSet. Unnamed raw values are kept as-is.
type Enum struct {
	Set *EnumSet
	V   uint64
}

func (v Enum) Raw() uint64 { return v.V }
func (v Enum) String() string {
	if v.Set != nil {
		if n, ok := v.Set.values[v.V]; ok {
			return n
		}
	}
	return fmt.Sprintf("0x%X", v.V)
}

// Is reports whether v holds raw value r.
func (v Enum) Is(r uint64) bool { return v.V == r }

// Lock indicator values.
const (
	LockUnknown  = 0x0000
	LockUnlocked = 0x0001
	LockLocked   = 0x0002
)

// Priority key values.
const (
	PriorityCameraPosition = 0x0001
	PriorityPCRemote       = 0x0002
)

// Exposure program values.
const (
	ExposureManual        = 0x00000001
	ExposureProgramAuto   = 0x00000002
	ExposureAperturePrio  = 0x00000003
	ExposureShutterPrio   = 0x00000004
	ExposureProgramCreate = 0x00000005
	ExposureProgramAction = 0x00000006
	ExposurePortrait      = 0x00000007
	ExposureAuto          = 0x00008000
	ExposureAutoPlus      = 0x00008001
	ExposureMovieP        = 0x00008050
	ExposureMovieA        = 0x00008051
	ExposureMovieS        = 0x00008052
	ExposureMovieM        = 0x00008053
)

// Drive mode values.
const (
	DriveSingle         = 0x00000001
	DriveContinuousHi   = 0x00010001
	DriveContinuousHiP  = 0x00010002
	DriveContinuousLo   = 0x00010004
	DriveContinuousMid  = 0x00010005
	DriveSelfTimer10s   = 0x00030001
	DriveSelfTimer2s    = 0x00030003
	DriveBracketCont3Ev = 0x00040301
)

// White balance values.
const (
	WBAuto           = 0x0000
	WBUnderwaterAuto = 0x0001
	WBDaylight       = 0x0011
	WBShadow         = 0x0012
	WBCloudy         = 0x0013
	WBTungsten       = 0x0014
	WBFluorWarmWhite = 0x0020
	WBFluorCoolWhite = 0x0021
	WBFluorDayWhite  = 0x0022
	WBFluorDaylight  = 0x0023
	WBFlash          = 0x0030
	WBColorTemp      = 0x0100
	WBCustom1        = 0x0101
	WBCustom2        = 0x0102
	WBCustom3        = 0x0103
	WBCustom         = 0x0104
)

// Focus mode values.
const (
	FocusMF  = 0x0001
	FocusAFS = 0x0002
	FocusAFC = 0x0003
	FocusAFA = 0x0004
	FocusAFD = 0x0005
	FocusDMF = 0x0006
	FocusPF  = 0x0007
)

// Focus area values.
const (
	AreaUnknown          = 0x0000
	AreaWide             = 0x0001
	AreaZone             = 0x0002
	AreaCenter           = 0x0003
	AreaFlexibleSpotS    = 0x0004
	AreaFlexibleSpotM    = 0x0005
	AreaFlexibleSpotL    = 0x0006
	AreaExpandFlexible   = 0x0007
	AreaFlexibleSpot     = 0x0008
	AreaTrackingWide     = 0x0011
	AreaTrackingFlexible = 0x0014
)

// Enable/disable style status values.
const (
	Disable = 0x00
	Enable  = 0x01
)

// Custom white balance button and state values.
const (
	CustomWBUp   = 0x0001
	CustomWBDown = 0x0002

	CustomWBStateInvalid   = 0x0000
	CustomWBStateStandby   = 0x0001
	CustomWBStateCapturing = 0x0002
	CustomWBStateOperating = 0x0003
)

// Zoom operation values used in discrete mode.
const (
	ZoomWide = -1
	ZoomStop = 0
	ZoomTele = 1
)

// SDK control mode values.
const (
	ControlRemote           = 0x00000000
	ControlContentsTransfer = 0x00000001
)

var (
	LockIndicators = newEnumSet("LockIndicator", map[uint64]string{
		LockUnknown: "Unknown", LockUnlocked: "Unlocked", LockLocked: "Locked",
	})
	PriorityKeys = newEnumSet("PriorityKey", map[uint64]string{
		PriorityCameraPosition: "CameraPosition", PriorityPCRemote: "PCRemote",
	})
	ExposurePrograms = newEnumSet("ExposureProgram", map[uint64]string{
		ExposureManual: "M_Manual", ExposureProgramAuto: "P_Auto", ExposureAperturePrio: "A_AperturePriority",
		ExposureShutterPrio: "S_ShutterSpeedPriority", ExposureProgramCreate: "Program_Creative",
		ExposureProgramAction: "Program_Action", ExposurePortrait: "Portrait", ExposureAuto: "Auto",
		ExposureAutoPlus: "Auto_Plus", ExposureMovieP: "Movie_P", ExposureMovieA: "Movie_A",
		ExposureMovieS: "Movie_S", ExposureMovieM: "Movie_M",
	})
	DriveModes = newEnumSet("DriveMode", map[uint64]string{
		DriveSingle: "Single_Shooting", DriveContinuousHi: "Continuous_Hi", DriveContinuousHiP: "Continuous_Hi_Plus",
		DriveContinuousLo: "Continuous_Lo", DriveContinuousMid: "Continuous_Mid", DriveSelfTimer10s: "SelfTimer_10s",
		DriveSelfTimer2s: "SelfTimer_2s", DriveBracketCont3Ev: "Continuous_Bracket_0.3Ev_3pics",
	})
	WhiteBalances = newEnumSet("WhiteBalance", map[uint64]string{
		WBAuto: "AWB", WBUnderwaterAuto: "Underwater_Auto", WBDaylight: "Daylight", WBShadow: "Shadow",
		WBCloudy: "Cloudy", WBTungsten: "Tungsten", WBFluorWarmWhite: "Fluorescent_WarmWhite",
		WBFluorCoolWhite: "Fluorescent_CoolWhite", WBFluorDayWhite: "Fluorescent_DayWhite",
		WBFluorDaylight: "Fluorescent_Daylight", WBFlash: "Flash", WBColorTemp: "ColorTemp",
		WBCustom1: "Custom_1", WBCustom2: "Custom_2", WBCustom3: "Custom_3", WBCustom: "Custom",
	})
	FocusModes = newEnumSet("FocusMode", map[uint64]string{
		FocusMF: "MF", FocusAFS: "AF_S", FocusAFC: "AF_C", FocusAFA: "AF_A", FocusAFD: "AF_D",
		FocusDMF: "DMF", FocusPF: "PF",
	})
	FocusAreas = newEnumSet("FocusArea", map[uint64]string{
		AreaUnknown: "Unknown", AreaWide: "Wide", AreaZone: "Zone", AreaCenter: "Center",
		AreaFlexibleSpotS: "Flexible_Spot_S", AreaFlexibleSpotM: "Flexible_Spot_M",
		AreaFlexibleSpotL: "Flexible_Spot_L", AreaExpandFlexible: "Expand_Flexible_Spot",
		AreaFlexibleSpot: "Flexible_Spot", AreaTrackingWide: "Tracking_Wide",
		AreaTrackingFlexible: "Tracking_Flexible_Spot",
	})
	EnableStatuses = newEnumSet("EnableStatus", map[uint64]string{
		Disable: "Disable", Enable: "Enable",
	})
	OnOff = newEnumSet("OnOff", map[uint64]string{0: "OFF", 1: "ON"})
	LiveViewQualities = newEnumSet("LiveViewQuality", map[uint64]string{
		1: "Low", 2: "High",
	})
	LiveViewStatuses = newEnumSet("LiveViewStatus", map[uint64]string{
		0: "NotSupport", 1: "Disable", 2: "Enable",
	})
	ZoomSettings = newEnumSet("ZoomSetting", map[uint64]string{
		1: "OpticalZoomOnly", 2: "SmartZoomOnly", 3: "On_ClearImageZoom", 4: "On_DigitalZoom",
	})
	ZoomTypes = newEnumSet("ZoomType", map[uint64]string{
		1: "OpticalZoom", 2: "SmartZoom", 3: "ClearImageZoom", 4: "DigitalZoom",
	})
	ZoomSpeedTypes = newEnumSet("RemoconZoomSpeedType", map[uint64]string{
		0: "Invalid", 1: "Variable", 2: "Fixed",
	})
	CustomWBButtons = newEnumSet("CustomWBButton", map[uint64]string{
		CustomWBUp: "Up", CustomWBDown: "Down",
	})
	CustomWBStates = newEnumSet("CustomWBExecutionState", map[uint64]string{
		CustomWBStateInvalid: "Invalid", CustomWBStateStandby: "Standby",
		CustomWBStateCapturing: "Capturing", CustomWBStateOperating: "OperatingCamera",
	})
	ControlModes = newEnumSet("SdkControlMode", map[uint64]string{
		ControlRemote: "Remote", ControlContentsTransfer: "ContentsTransfer",
	})
	RecordingStates = newEnumSet("RecordingState", map[uint64]string{
		0: "Not_Recording", 1: "Recording", 2: "Recording_Failed",
	})
	MediaStatuses = newEnumSet("MediaStatus", map[uint64]string{
		0: "NoCard", 1: "OK", 2: "Error", 3: "Formatting",
	})
	FileTypes = newEnumSet("FileType", map[uint64]string{
		0: "None", 1: "Jpeg", 2: "Raw", 3: "RawJpeg", 4: "RawHeif", 5: "Heif",
	})
)
