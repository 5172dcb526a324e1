package property

//go:generate go run ../../../cmd/propgen -in codes.go -out codes_gen.go

// Code is the stable numeric identifier of a device property.
type Code uint32

// Lock indicators.
const (
	Undefined Code = iota
	S1
	AEL
	FEL
	AFL
	AWBL
)

// Settable properties.
const (
	FNumber Code = iota + 0x0100
	ExposureBiasCompensation
	FlashCompensation
	ShutterSpeed
	IsoSensitivity
	ExposureProgramMode
	FileType
	JpegQuality
	WhiteBalance
	FocusMode
	MeteringMode
	FlashMode
	WirelessFlash
	RedEyeReduction
	DriveMode
	DRO
	ImageSize
	AspectRatio
	PictureEffect
	FocusArea
	Colortemp
	ColorTuningAB
	ColorTuningGM
	LiveViewDisplayEffect
	StillImageStoreDestination
	PriorityKeySettings
	FocusMagnifierSetting
	DateTimeSettings
	NearFar
	AFAreaPosition
	ZoomScale
	ZoomSetting
	ZoomOperation
	MovieFileFormat
	MovieRecordingSetting
	MovieRecordingFrameRateSetting
	CompressionFileFormatStill
	MediaSLOT1FileType
	MediaSLOT2FileType
	MediaSLOT1JpegQuality
	MediaSLOT2JpegQuality
	MediaSLOT1ImageSize
	MediaSLOT2ImageSize
	RAWFileCompressionType
	MediaSLOT1RAWFileCompressionType
	MediaSLOT2RAWFileCompressionType
	ZoomAndFocusPositionSave
	ZoomAndFocusPositionLoad
	S2
	IntervalRecMode
	StillImageTransSize
	RAWJPCSaveImage
	LiveViewImageQuality
	CustomWBCaptureStandby
	CustomWBCaptureStandbyCancel
	CustomWBCapture
	RemoconZoomSpeedType
)

// Read-only status properties.
const (
	GetOnly Code = iota + 0x0700
	SnapshotInfo
	BatteryRemain
	BatteryLevel
	EstimatePictureSize
	RecordingState
	LiveViewStatus
	FocusIndication
	MediaSLOT1Status
	MediaSLOT1RemainingNumber
	MediaSLOT1RemainingTime
	MediaSLOT1FormatEnableStatus
	MediaSLOT2Status
	MediaSLOT2FormatEnableStatus
	MediaSLOT2RemainingNumber
	MediaSLOT2RemainingTime
	MediaFormatProgressRate
	LiveViewArea
	IntervalRecStatus
	CustomWBExecutionState
	CustomWBCapturableArea
	CustomWBCaptureFrameSize
	CustomWBCaptureOperation
	ZoomOperationStatus
	ZoomBarInformation
	ZoomTypeStatus
	MediaSLOT1QuickFormatEnableStatus
	MediaSLOT2QuickFormatEnableStatus
	CancelMediaFormatEnableStatus
	ZoomSpeedRange
	SdkControlMode
	ContentsTransferStatus
	ContentsTransferCancelEnableStatus
	ContentsTransferProgress
	MaxVal
)
