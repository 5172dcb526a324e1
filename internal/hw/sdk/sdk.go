// Package sdk describes the device-control library surface: the calls the
// application makes into a transport and the callbacks the transport makes
// back, on its own goroutine.
package sdk

// Handle identifies one open device session. Zero is never a live handle.
type Handle uint64

// Mode selects what a session is opened for.
type Mode int

const (
	ModeRemote Mode = iota
	ModeContentsTransfer
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeContentsTransfer:
		return "contents-transfer"
	default:
		return "unknown"
	}
}

// DataType is the wire type tag attached to a property value.
type DataType uint32

const (
	TypeUndefined DataType = 0x0000
	TypeUInt8     DataType = 0x0001
	TypeUInt16    DataType = 0x0002
	TypeUInt32    DataType = 0x0003
	TypeUInt64    DataType = 0x0004

	TypeSignBit  DataType = 0x1000
	TypeArrayBit DataType = 0x2000
	TypeRangeBit DataType = 0x4000

	TypeInt8  = TypeSignBit | TypeUInt8
	TypeInt16 = TypeSignBit | TypeUInt16
	TypeInt32 = TypeSignBit | TypeUInt32
	TypeInt64 = TypeSignBit | TypeUInt64

	TypeUInt8Array  = TypeArrayBit | TypeUInt8
	TypeUInt16Array = TypeArrayBit | TypeUInt16
	TypeUInt32Array = TypeArrayBit | TypeUInt32
	TypeInt8Array   = TypeArrayBit | TypeInt8

	TypeInt8Range = TypeRangeBit | TypeInt8

	TypeString DataType = 0xFFFF
)

// RawProperty is one property record as exchanged with the transport.
// Values holds the possible-value array packed little-endian; its element
// width is not carried by the record.
type RawProperty struct {
	Code      uint32
	ValueType DataType
	Settable  bool
	Current   uint64
	Values    []byte
}

// CommandID names a one-shot device command.
type CommandID uint32

const (
	CmdRelease CommandID = iota
	CmdMovieRecord
	CmdCancelShooting
	CmdS1andRelease
	CmdMediaFormat
	CmdMediaQuickFormat
	CmdCancelMediaFormat
	CmdCancelContentsTransfer
)

var commandNames = map[CommandID]string{
	CmdRelease:                "Release",
	CmdMovieRecord:            "MovieRecord",
	CmdCancelShooting:         "CancelShooting",
	CmdS1andRelease:           "S1andRelease",
	CmdMediaFormat:            "MediaFormat",
	CmdMediaQuickFormat:       "MediaQuickFormat",
	CmdCancelMediaFormat:      "CancelMediaFormat",
	CmdCancelContentsTransfer: "CancelContentsTransfer",
}

func (c CommandID) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return "Command(?)"
}

// CommandParam is the argument of a command. For media commands Up selects
// slot 1 and Down selects slot 2.
type CommandParam uint32

const (
	ParamUp   CommandParam = 0x0000
	ParamDown CommandParam = 0x0001
)

func (p CommandParam) String() string {
	if p == ParamDown {
		return "Down"
	}
	return "Up"
}

// SettingKey names a host-side device setting.
type SettingKey uint32

const (
	SettingEnableLiveView SettingKey = iota + 1
)

// PullSize selects the rendition of a content file to pull.
type PullSize int

const (
	PullOriginal PullSize = iota
	PullScreennail2M
)

// FolderHandle and ContentHandle identify stored media on the device.
type (
	FolderHandle  uint32
	ContentHandle uint32
)

// DateFolder is one dated folder on the recording media.
type DateFolder struct {
	Handle FolderHandle
	Year   int
	Month  int
	Day    int
}

// ContentFile is one file belonging to a content item.
type ContentFile struct {
	Path string
	Size uint64
}

// ContentInfo is the detail record of a content item.
type ContentInfo struct {
	Handle ContentHandle
	Folder FolderHandle
	Files  []ContentFile
}

// Transport is the synchronous device-control surface. Every failing call
// returns a Status.
type Transport interface {
	Connect(mode Mode, cb Callbacks) (Handle, error)
	Disconnect(h Handle) error
	ReleaseDevice(h Handle) error

	GetDeviceProperties(h Handle) ([]RawProperty, error)
	GetSelectDeviceProperties(h Handle, codes []uint32) ([]RawProperty, error)
	SetDeviceProperty(h Handle, p RawProperty) error
	SendCommand(h Handle, id CommandID, param CommandParam) error
	SetSaveInfo(h Handle, path, prefix string, startIndex int) error
	SetDeviceSetting(h Handle, key SettingKey, value uint32) error

	GetLiveViewImage(h Handle) ([]byte, error)
	GetLiveViewProperties(h Handle) ([]RawProperty, error)

	GetDateFolderList(h Handle) ([]DateFolder, error)
	GetContentsHandleList(h Handle, folder FolderHandle) ([]ContentHandle, error)
	GetContentsDetailInfo(h Handle, content ContentHandle) (ContentInfo, error)
	PullContentsFile(h Handle, content ContentHandle, size PullSize) error
	GetContentsThumbnailImage(h Handle, content ContentHandle) ([]byte, error)
}

// Callbacks is invoked by a transport from its own goroutine.
type Callbacks interface {
	OnConnected()
	OnDisconnected(code Status)
	OnPropertyChanged()
	OnPropertyChangedCodes(codes []uint32)
	OnLvPropertyChanged()
	OnLvPropertyChangedCodes(codes []uint32)
	OnWarning(code Status)
	OnError(code Status)
	OnContentsTransfer(notify Status, content ContentHandle, filename string)
	OnCompleteDownload(filename string)
}
