package property

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownProperty is returned for codes with no registry entry.
var ErrUnknownProperty = errors.New("property: unknown property")

// Domain decodes a raw element (already reduced to the property width) into
// a typed value.
type Domain func(k Kind, raw uint64) Value

// Spec describes how one property code is decoded and encoded.
type Spec struct {
	Code   Code
	Kind   Kind
	Domain Domain
	// Enum is set for enumerated properties.
	Enum *EnumSet
}

var registry = map[Code]Spec{}

func register(k Kind, d Domain, codes ...Code) {
	for _, c := range codes {
		if _, dup := registry[c]; dup {
			panic(fmt.Sprintf("property: %s registered twice", c))
		}
		registry[c] = Spec{Code: c, Kind: k, Domain: d}
	}
}

func registerEnum(k Kind, set *EnumSet, codes ...Code) {
	register(k, enumDomain(set), codes...)
	for _, c := range codes {
		s := registry[c]
		s.Enum = set
		registry[c] = s
	}
}

func uintDomain(_ Kind, raw uint64) Value { return Uint(raw) }
func intDomain(k Kind, raw uint64) Value { return Int(k.signExtend(raw)) }
func evDomain(k Kind, raw uint64) Value  { return EV(k.signExtend(raw)) }

func fNumberDomain(_ Kind, raw uint64) Value { return Aperture(raw) }

func shutterDomain(_ Kind, raw uint64) Value {
	return Shutter{Num: uint16(raw >> 16), Den: uint16(raw)}
}

func isoDomain(_ Kind, raw uint64) Value {
	return ISO{Mode: ISOMode(raw >> 24), Sensitivity: uint32(raw & 0xFFFFFF)}
}

func positionDomain(_ Kind, raw uint64) Value {
	return Position{X: uint16(raw >> 16), Y: uint16(raw)}
}

func enumDomain(set *EnumSet) Domain {
	return func(_ Kind, raw uint64) Value { return set.Value(raw) }
}

func init() {
	registerEnum(Uint16, LockIndicators, S1, AEL, FEL, AFL, AWBL, S2)

	register(Uint16, fNumberDomain, FNumber)
	register(Int16, evDomain, ExposureBiasCompensation, FlashCompensation)
	register(Uint32, shutterDomain, ShutterSpeed)
	register(Uint32, isoDomain, IsoSensitivity)
	registerEnum(Uint32, ExposurePrograms, ExposureProgramMode)
	registerEnum(Uint16, FileTypes, FileType)
	registerEnum(Uint16, WhiteBalances, WhiteBalance)
	registerEnum(Uint16, FocusModes, FocusMode)
	registerEnum(Uint32, DriveModes, DriveMode)
	registerEnum(Uint16, FocusAreas, FocusArea)
	registerEnum(Uint16, PriorityKeys, PriorityKeySettings)
	registerEnum(Uint16, LiveViewQualities, LiveViewImageQuality)
	registerEnum(Uint16, CustomWBButtons, CustomWBCaptureStandby, CustomWBCaptureStandbyCancel)
	registerEnum(Uint8, ZoomSettings, ZoomSetting)
	registerEnum(Uint8, ZoomSpeedTypes, RemoconZoomSpeedType)
	registerEnum(Uint8, OnOff, IntervalRecMode, RAWJPCSaveImage)
	registerEnum(Uint8, FileTypes, MediaSLOT1FileType, MediaSLOT2FileType)
	register(Uint16, uintDomain,
		JpegQuality, MeteringMode, FlashMode, WirelessFlash, RedEyeReduction, DRO,
		ImageSize, AspectRatio, Colortemp, ColorTuningAB, ColorTuningGM,
		LiveViewDisplayEffect, StillImageStoreDestination, MovieFileFormat,
		MovieRecordingSetting)
	register(Uint32, uintDomain, PictureEffect, ZoomScale)
	register(Uint64, uintDomain, FocusMagnifierSetting, DateTimeSettings)
	register(Int16, intDomain, NearFar)
	register(Uint32, positionDomain, AFAreaPosition, CustomWBCapture)
	register(Int8, intDomain, ZoomOperation)
	register(Uint8, uintDomain,
		MovieRecordingFrameRateSetting, CompressionFileFormatStill,
		MediaSLOT1JpegQuality, MediaSLOT2JpegQuality, MediaSLOT1ImageSize,
		MediaSLOT2ImageSize, RAWFileCompressionType, MediaSLOT1RAWFileCompressionType,
		MediaSLOT2RAWFileCompressionType, ZoomAndFocusPositionSave,
		ZoomAndFocusPositionLoad, StillImageTransSize)

	register(Uint16, uintDomain, SnapshotInfo, BatteryRemain, MediaFormatProgressRate, ContentsTransferProgress)
	register(Uint32, uintDomain,
		BatteryLevel, EstimatePictureSize, FocusIndication, MediaSLOT1RemainingNumber,
		MediaSLOT1RemainingTime, MediaSLOT2RemainingNumber, MediaSLOT2RemainingTime,
		LiveViewArea, ZoomBarInformation)
	register(Uint64, uintDomain, CustomWBCapturableArea, CustomWBCaptureFrameSize)
	registerEnum(Uint16, RecordingStates, RecordingState)
	registerEnum(Uint16, LiveViewStatuses, LiveViewStatus)
	registerEnum(Uint16, MediaStatuses, MediaSLOT1Status, MediaSLOT2Status)
	registerEnum(Uint8, EnableStatuses,
		MediaSLOT1FormatEnableStatus, MediaSLOT2FormatEnableStatus,
		MediaSLOT1QuickFormatEnableStatus, MediaSLOT2QuickFormatEnableStatus,
		CancelMediaFormatEnableStatus, ZoomOperationStatus,
		ContentsTransferCancelEnableStatus)
	registerEnum(Uint8, OnOff, IntervalRecStatus)
	registerEnum(Uint16, CustomWBStates, CustomWBExecutionState)
	registerEnum(Uint16, EnableStatuses, CustomWBCaptureOperation)
	registerEnum(Uint8, ZoomTypes, ZoomTypeStatus)
	register(Int8, intDomain, ZoomSpeedRange)
	registerEnum(Uint32, ControlModes, SdkControlMode)
	registerEnum(Uint16, OnOff, ContentsTransferStatus)
}

// Lookup returns the registry entry for c.
func Lookup(c Code) (Spec, bool) {
	s, ok := registry[c]
	return s, ok
}

// Supported returns every registered code in ascending order.
func Supported() []Code {
	codes := make([]Code, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Decode turns a raw element of property c into a typed value.
func (s Spec) Decode(raw uint64) Value {
	return s.Domain(s.Kind, raw&s.Kind.Mask())
}
