package events

import (
	"context"
	"sync"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/hw/session"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

// Cache is the part of the property cache the dispatcher refreshes.
type Cache interface {
	Load(codes ...property.Code) error
	Reset()
	Mode() sdk.Mode
}

// Session is the part of the connection manager the dispatcher drives.
type Session interface {
	MarkConnected() bool
	MarkDisconnected() bool
	State() session.State
	ID() string
}

// Options configures a Dispatcher.
type Options struct {
	QueueSize int
	// AutoExit closes Done at the first completed download.
	AutoExit bool
}

// Dispatcher is the single consumer of the adapter queue.
type Dispatcher struct {
	adapter *Adapter
	cache   Cache
	sess    Session
	log     *debug.Logger
	opts    Options

	mu        sync.RWMutex
	observers []Observer

	downloads chan string
	done      chan struct{}
	doneOnce  sync.Once
}

// New creates a dispatcher feeding cache and sess.
func New(opts Options, cache Cache, sess Session, log *debug.Logger) *Dispatcher {
	return &Dispatcher{
		adapter:   NewAdapter(opts.QueueSize),
		cache:     cache,
		sess:      sess,
		log:       log,
		opts:      opts,
		downloads: make(chan string, 16),
		done:      make(chan struct{}),
	}
}

// Callbacks returns the surface to hand to the transport on connect.
func (d *Dispatcher) Callbacks() sdk.Callbacks { return d.adapter }

// Stats returns the adapter queue counters.
func (d *Dispatcher) Stats() Stats { return d.adapter.Stats() }

// Subscribe registers an observer. Observers run on the dispatcher goroutine
// in registration order.
func (d *Dispatcher) Subscribe(obs Observer) {
	d.mu.Lock()
	d.observers = append(d.observers, obs)
	d.mu.Unlock()
}

// Downloads delivers the path of every completed download. Paths are dropped
// when nobody reads them.
func (d *Dispatcher) Downloads() <-chan string { return d.downloads }

// Done is closed at the first completed download when AutoExit is set.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Run drains the queue until ctx is done. Callbacks arriving afterwards are
// counted as lost and never block the transport.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.adapter.close()
	for {
		select {
		case <-ctx.Done():
			d.log.Verbose("dispatcher stopped: %v", ctx.Err())
			return ctx.Err()
		case n := <-d.adapter.queue:
			d.apply(n)
			if d.adapter.takePendingFull() {
				d.apply(d.adapter.stamp(Notification{Kind: KindPropertyChanged}))
			}
		}
	}
}

func (d *Dispatcher) apply(n Notification) {
	ev := Event{
		Kind:     n.Kind,
		Time:     n.Time,
		TraceID:  n.TraceID,
		Status:   n.Status,
		Content:  n.Content,
		Filename: n.Filename,
		Codes:    toCodes(n.Codes),
	}

	switch n.Kind {
	case KindConnected:
		if !d.sess.MarkConnected() {
			d.log.Verbose("connected notification without a connect in flight")
		}
		ev.Err = d.cache.Load()

	case KindDisconnected:
		mode := d.cache.Mode()
		ev.Requested = d.sess.MarkDisconnected()
		d.cache.Reset()
		ev.Guidance = ClassifyDisconnect(n.Status, ev.Requested, mode)

	case KindPropertyChanged:
		if d.sess.State() == session.Disconnected {
			d.log.Trace("property change after disconnect ignored")
			return
		}
		ev.Err = d.cache.Load(ev.Codes...)

	case KindLiveViewChanged:
		// The bulk form is publish only. Listed codes that are also device
		// properties are refreshed in the cache.
		codes := cached(ev.Codes)
		if len(codes) == 0 || d.sess.State() == session.Disconnected {
			break
		}
		ev.Err = d.cache.Load(codes...)

	case KindWarning:
		ev.Guidance = ClassifyWarning(n.Status)

	case KindError:
		ev.Guidance = ClassifyError(n.Status)

	case KindDownloadComplete:
		select {
		case d.downloads <- n.Filename:
		default:
		}
		if d.opts.AutoExit {
			d.doneOnce.Do(func() { close(d.done) })
		}
	}

	ev.SessionID = d.sess.ID()
	d.logEvent(ev)
	d.publish(ev)
}

func (d *Dispatcher) logEvent(ev Event) {
	switch {
	case ev.Err != nil:
		d.log.Warn("%s: refresh failed: %v", ev.Kind, ev.Err)
	case ev.Guidance.Action == ActionIgnore || ev.Guidance.Action == ActionSuppress:
		d.log.Trace("event %s trace=%s", ev, ev.TraceID)
	case ev.Guidance.Recoverable():
		d.log.Info("%s", ev.Guidance.Message)
	default:
		d.log.Warn("%s", ev.Guidance.Message)
	}
}

func (d *Dispatcher) publish(ev Event) {
	d.mu.RLock()
	obs := d.observers
	d.mu.RUnlock()
	for _, o := range obs {
		o(ev)
	}
}

func cached(codes []property.Code) []property.Code {
	var out []property.Code
	for _, c := range codes {
		if _, ok := property.Lookup(c); ok {
			out = append(out, c)
		}
	}
	return out
}

func toCodes(raw []uint32) []property.Code {
	if len(raw) == 0 {
		return nil
	}
	codes := make([]property.Code, len(raw))
	for i, c := range raw {
		codes[i] = property.Code(c)
	}
	return codes
}
