// Package events turns the transport's asynchronous callbacks into ordered
// updates of the property cache and the session state.
//
// The transport calls an Adapter from its own thread. The adapter only
// enqueues; a single Dispatcher goroutine drains the queue and applies every
// mutation, then publishes an Event to the registered observers.
package events

import (
	"fmt"
	"time"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

// Kind identifies a notification.
type Kind int

const (
	KindConnected Kind = iota + 1
	KindDisconnected
	KindPropertyChanged
	KindLiveViewChanged
	KindWarning
	KindError
	KindContentsTransfer
	KindDownloadComplete
)

func (k Kind) String() string {
	switch k {
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	case KindPropertyChanged:
		return "property-changed"
	case KindLiveViewChanged:
		return "liveview-changed"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	case KindContentsTransfer:
		return "contents-transfer"
	case KindDownloadComplete:
		return "download-complete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Notification is one callback as queued by the adapter.
type Notification struct {
	Kind     Kind
	Codes    []uint32
	Status   sdk.Status
	Content  sdk.ContentHandle
	Filename string
	Time     time.Time
	TraceID  string
}

// Event is a notification after the dispatcher applied it.
type Event struct {
	Kind      Kind
	Time      time.Time
	TraceID   string
	SessionID string

	// Codes lists the refreshed properties. Empty on a full reload.
	Codes    []property.Code
	Status   sdk.Status
	Content  sdk.ContentHandle
	Filename string

	// Requested is set on KindDisconnected when the operator asked for it.
	Requested bool
	Guidance  Guidance
	// Err is the refresh failure, if the cache could not be reloaded.
	Err error
}

// Full reports whether a property event reloaded the whole cache.
func (e Event) Full() bool { return e.Kind == KindPropertyChanged && len(e.Codes) == 0 }

func (e Event) String() string {
	s := e.Kind.String()
	switch e.Kind {
	case KindPropertyChanged, KindLiveViewChanged:
		if len(e.Codes) == 0 {
			s += " all"
		} else {
			s += fmt.Sprintf(" %v", e.Codes)
		}
	case KindDisconnected, KindWarning, KindError:
		s += " " + e.Status.String()
	case KindContentsTransfer:
		s += fmt.Sprintf(" %s handle=%d %s", e.Status, e.Content, e.Filename)
	case KindDownloadComplete:
		s += " " + e.Filename
	}
	if e.Guidance.Message != "" {
		s += ": " + e.Guidance.Message
	}
	return s
}

// Observer receives events on the dispatcher goroutine. It must not block.
type Observer func(Event)
