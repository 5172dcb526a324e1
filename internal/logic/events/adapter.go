package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
)

// DefaultQueueSize is used when the configured size is not positive.
const DefaultQueueSize = 64

// Adapter is the callback surface handed to the transport. Property change
// notifications never block the calling thread: when the queue is full the
// adapter raises a pending full reload instead. Every other notification
// waits for room in the queue, or is dropped once the dispatcher stopped.
type Adapter struct {
	queue chan Notification
	stop  chan struct{}
	once  sync.Once
	now   func() time.Time

	pendingFull atomic.Bool
	received    atomic.Uint64
	coalesced   atomic.Uint64
	lost        atomic.Uint64
}

// NewAdapter creates an adapter with a queue of size entries.
func NewAdapter(size int) *Adapter {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Adapter{
		queue: make(chan Notification, size),
		stop:  make(chan struct{}),
		now:   time.Now,
	}
}

// Stats is a snapshot of the adapter counters.
type Stats struct {
	Received  uint64
	Coalesced uint64
	Lost      uint64
	Queued    int
}

// Stats returns the adapter counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		Received:  a.received.Load(),
		Coalesced: a.coalesced.Load(),
		Lost:      a.lost.Load(),
		Queued:    len(a.queue),
	}
}

func (a *Adapter) close() {
	a.once.Do(func() { close(a.stop) })
}

func (a *Adapter) stamp(n Notification) Notification {
	a.received.Add(1)
	n.Time = a.now()
	n.TraceID = uuid.NewString()
	return n
}

// put blocks until n is queued or the dispatcher stopped.
func (a *Adapter) put(n Notification) {
	n = a.stamp(n)
	select {
	case <-a.stop:
		a.lost.Add(1)
		return
	default:
	}
	select {
	case a.queue <- n:
	case <-a.stop:
		a.lost.Add(1)
	}
}

// offer queues n without blocking. A property change that does not fit
// turns into a pending full reload; a live view change is dropped.
func (a *Adapter) offer(n Notification) {
	n = a.stamp(n)
	select {
	case <-a.stop:
		a.lost.Add(1)
		return
	default:
	}
	select {
	case a.queue <- n:
	default:
		if n.Kind == KindPropertyChanged {
			a.pendingFull.Store(true)
		}
		a.coalesced.Add(1)
	}
}

// takePendingFull reports and clears the pending full reload.
func (a *Adapter) takePendingFull() bool { return a.pendingFull.Swap(false) }

func (a *Adapter) OnConnected() { a.put(Notification{Kind: KindConnected}) }

func (a *Adapter) OnDisconnected(code sdk.Status) {
	a.put(Notification{Kind: KindDisconnected, Status: code})
}

func (a *Adapter) OnPropertyChanged() { a.offer(Notification{Kind: KindPropertyChanged}) }

func (a *Adapter) OnPropertyChangedCodes(codes []uint32) {
	a.offer(Notification{Kind: KindPropertyChanged, Codes: append([]uint32(nil), codes...)})
}

func (a *Adapter) OnLvPropertyChanged() { a.offer(Notification{Kind: KindLiveViewChanged}) }

func (a *Adapter) OnLvPropertyChangedCodes(codes []uint32) {
	a.offer(Notification{Kind: KindLiveViewChanged, Codes: append([]uint32(nil), codes...)})
}

func (a *Adapter) OnWarning(code sdk.Status) { a.put(Notification{Kind: KindWarning, Status: code}) }

func (a *Adapter) OnError(code sdk.Status) { a.put(Notification{Kind: KindError, Status: code}) }

func (a *Adapter) OnContentsTransfer(notify sdk.Status, h sdk.ContentHandle, filename string) {
	a.put(Notification{Kind: KindContentsTransfer, Status: notify, Content: h, Filename: filename})
}

func (a *Adapter) OnCompleteDownload(filename string) {
	a.put(Notification{Kind: KindDownloadComplete, Filename: filename})
}

var _ sdk.Callbacks = (*Adapter)(nil)
