package events

import "github.com/cjeanneret/remocam/internal/hw/sdk"

// Action is what the interactive flow should do after a notification.
type Action int

const (
	// ActionIgnore drops the notification silently.
	ActionIgnore Action = iota
	// ActionNotify shows the message; the current flow stays valid.
	ActionNotify
	// ActionRetry means the connect attempt failed but may be repeated.
	ActionRetry
	// ActionReturnToMenu means the current flow is no longer valid.
	ActionReturnToMenu
	// ActionSuppress means the condition is already reported elsewhere.
	ActionSuppress
)

func (a Action) String() string {
	switch a {
	case ActionNotify:
		return "notify"
	case ActionRetry:
		return "retry"
	case ActionReturnToMenu:
		return "return-to-menu"
	case ActionSuppress:
		return "suppress"
	default:
		return "ignore"
	}
}

// Guidance is the classified outcome of a warning, error or disconnection.
type Guidance struct {
	Action  Action
	Message string
}

// Recoverable reports whether the session can continue.
func (g Guidance) Recoverable() bool { return g.Action != ActionReturnToMenu }

// ClassifyWarning maps an asynchronous warning code to guidance.
func ClassifyWarning(code sdk.Status) Guidance {
	switch code {
	case sdk.WarnConnectReconnecting:
		return Guidance{ActionNotify, "connection lost, reconnecting"}
	case sdk.WarnConnectReconnected:
		return Guidance{ActionNotify, "reconnected"}
	case sdk.WarnContentsTransferModeInvalid,
		sdk.WarnContentsTransferModeDeviceBusy,
		sdk.WarnContentsTransferModeStatusError:
		return Guidance{ActionNotify, "cannot transfer contents in the current camera state"}
	case sdk.WarnContentsTransferModeCanceledByUI:
		return Guidance{ActionNotify, "contents transfer canceled from the camera"}
	}
	return Guidance{Action: ActionIgnore}
}

// ClassifyError maps an asynchronous error code to guidance.
func ClassifyError(code sdk.Status) Guidance {
	switch code {
	case sdk.ErrConnectTimeOut:
		return Guidance{ActionRetry, "connection timed out, check the cable and connect again"}
	case sdk.ErrConnectDisconnected:
		return Guidance{Action: ActionSuppress}
	}
	return Guidance{ActionReturnToMenu, code.String() + ", return to the top menu"}
}

// ClassifyDisconnect maps a connection loss to guidance. Operator-requested
// disconnections need none.
func ClassifyDisconnect(code sdk.Status, requested bool, mode sdk.Mode) Guidance {
	if requested {
		return Guidance{Action: ActionIgnore}
	}
	if mode == sdk.ModeContentsTransfer {
		return Guidance{ActionReturnToMenu, "camera left contents transfer mode, return to the top menu"}
	}
	if code.Failed() {
		return Guidance{ActionReturnToMenu, "camera disconnected (" + code.String() + "), return to the top menu"}
	}
	return Guidance{ActionReturnToMenu, "camera disconnected, return to the top menu"}
}
