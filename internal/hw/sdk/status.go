package sdk

import "fmt"

// Status is a result, warning or notification code reported by a transport.
// Error codes implement error.
type Status uint32

const (
	OK Status = 0x0000

	ErrGeneric              Status = 0x8000
	ErrGenericInvalidHandle Status = 0x8001
	ErrGenericInvalidParam  Status = 0x8002
	ErrGenericNotSupported  Status = 0x8003

	ErrConnect             Status = 0x8200
	ErrConnectTimeOut      Status = 0x8201
	ErrConnectDisconnected Status = 0x8202
	ErrConnectRejected     Status = 0x8203

	ErrMemory Status = 0x8300

	ErrAPIInvalidCalled Status = 0x8400

	ErrDevice     Status = 0x8800
	ErrDeviceBusy Status = 0x8801

	WarnUnknown                          Status = 0x20000
	WarnConnectReconnected               Status = 0x20001
	WarnConnectReconnecting              Status = 0x20002
	WarnFrameNotUpdated                  Status = 0x20010
	WarnMemoryInsufficient               Status = 0x20011
	WarnContentsTransferModeInvalid      Status = 0x20020
	WarnContentsTransferModeDeviceBusy   Status = 0x20021
	WarnContentsTransferModeStatusError  Status = 0x20022
	WarnContentsTransferModeCanceledByUI Status = 0x20023

	NotifyContentsTransferStart         Status = 0x30001
	NotifyContentsTransferComplete      Status = 0x30002
	NotifyContentsTransferFailed        Status = 0x30003
	NotifyContentsTransferStorageFull   Status = 0x30004
	NotifyContentsTransferCanceled      Status = 0x30005
	NotifyContentsTransferInvalidHandle Status = 0x30006
)

const (
	errorFirst   Status = 0x8000
	errorLast    Status = 0xFFFF
	warningFirst Status = 0x20000
	warningLast  Status = 0x2FFFF
	notifyFirst  Status = 0x30000
	notifyLast   Status = 0x3FFFF
)

var statusText = map[Status]string{
	OK:                                   "success",
	ErrGeneric:                           "generic error",
	ErrGenericInvalidHandle:              "invalid device handle",
	ErrGenericInvalidParam:               "invalid parameter",
	ErrGenericNotSupported:               "not supported",
	ErrConnect:                           "connect error",
	ErrConnectTimeOut:                    "connect timed out",
	ErrConnectDisconnected:               "device disconnected",
	ErrConnectRejected:                   "connection rejected",
	ErrMemory:                            "out of memory",
	ErrAPIInvalidCalled:                  "call not valid in this state",
	ErrDevice:                            "device error",
	ErrDeviceBusy:                        "device busy",
	WarnUnknown:                          "unknown warning",
	WarnConnectReconnected:               "reconnected",
	WarnConnectReconnecting:              "reconnecting",
	WarnFrameNotUpdated:                  "live view frame not updated",
	WarnMemoryInsufficient:               "live view buffer too small",
	WarnContentsTransferModeInvalid:      "contents transfer mode invalid",
	WarnContentsTransferModeDeviceBusy:   "contents transfer mode device busy",
	WarnContentsTransferModeStatusError:  "contents transfer mode status error",
	WarnContentsTransferModeCanceledByUI: "contents transfer canceled from device",
	NotifyContentsTransferStart:          "contents transfer started",
	NotifyContentsTransferComplete:       "contents transfer complete",
	NotifyContentsTransferFailed:         "contents transfer failed",
	NotifyContentsTransferStorageFull:    "contents transfer failed: storage full",
	NotifyContentsTransferCanceled:       "contents transfer canceled",
	NotifyContentsTransferInvalidHandle:  "contents transfer failed: invalid handle",
}

// Failed reports whether s is an error code.
func (s Status) Failed() bool { return s >= errorFirst && s <= errorLast }

// IsWarning reports whether s is a warning code.
func (s Status) IsWarning() bool { return s >= warningFirst && s <= warningLast }

// IsNotify reports whether s is a notification code.
func (s Status) IsNotify() bool { return s >= notifyFirst && s <= notifyLast }

// Category returns the error family (high byte) of an error code.
func (s Status) Category() Status {
	if !s.Failed() {
		return OK
	}
	return s & 0xFF00
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("status 0x%X", uint32(s))
}

func (s Status) Error() string {
	return fmt.Sprintf("sdk: %s (0x%X)", s.String(), uint32(s))
}

// Check turns a raw status into an error, nil on success.
func Check(s Status) error {
	if s.Failed() {
		return s
	}
	return nil
}
