// Package session owns the single live device session: the connect,
// disconnect and release lifecycle, the device handle, and the connection
// state shared with the event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
)

// State is the connection state of the session.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	ErrNotConnected     = errors.New("session: not connected")
	ErrAlreadyConnected = errors.New("session: already connected")
	ErrReleased         = errors.New("session: device handle already released")
)

// SaveInfo is where the device deposits transferred files.
type SaveInfo struct {
	Path       string
	Prefix     string
	StartIndex int
}

// Manager is the connection manager. State changes come from the caller
// (Connect, Disconnect, Release) and from the event loop (MarkConnected,
// MarkDisconnected).
type Manager struct {
	tr   sdk.Transport
	save SaveInfo
	log  *debug.Logger

	state     atomic.Int32
	requested atomic.Bool

	mu      sync.Mutex
	handle  sdk.Handle
	id      string
	changed chan struct{}
}

// NewManager creates a manager for transport tr.
func NewManager(tr sdk.Transport, save SaveInfo, log *debug.Logger) *Manager {
	return &Manager{
		tr:      tr,
		save:    save,
		log:     log,
		changed: make(chan struct{}),
	}
}

// State returns the current connection state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Connected reports whether the device acknowledged the session and it has
// not been lost since.
func (m *Manager) Connected() bool { return m.State() == Connected }

// ID returns the identifier of the current or last session.
func (m *Manager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Handle returns the live device handle, zero when none.
func (m *Manager) Handle() sdk.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// DisconnectRequested reports whether the operator asked for the current
// disconnection.
func (m *Manager) DisconnectRequested() bool { return m.requested.Load() }

// Connect opens a session. The state stays Connecting until the transport
// acknowledges through MarkConnected. A failed connect returns the manager
// to Disconnected; retrying is up to the caller. A handle left over from a
// device-initiated disconnect is released first.
func (m *Manager) Connect(mode sdk.Mode, cb sdk.Callbacks) error {
	if !m.transition(Disconnected, Connecting) {
		return fmt.Errorf("%w (state %s)", ErrAlreadyConnected, m.State())
	}
	m.requested.Store(false)
	m.releaseStale()

	m.log.Trace("transport Connect mode=%s", mode)
	h, err := m.tr.Connect(mode, cb)
	if err != nil {
		m.set(Disconnected)
		return fmt.Errorf("connect: %w", err)
	}

	m.mu.Lock()
	m.handle = h
	m.id = uuid.NewString()
	m.mu.Unlock()
	m.log.Info("session %s opened (handle=%d, mode=%s)", m.ID(), h, mode)

	if err := m.tr.SetSaveInfo(h, m.save.Path, m.save.Prefix, m.save.StartIndex); err != nil {
		m.log.Warn("set save info %q: %v", m.save.Path, err)
	}
	return nil
}

// MarkConnected applies the transport's connection acknowledgement. It
// returns false when no connect was in flight.
func (m *Manager) MarkConnected() bool {
	ok := m.transition(Connecting, Connected)
	if ok {
		m.log.Live("session %s connected", m.ID())
	}
	return ok
}

// MarkDisconnected applies a disconnection reported by the transport. It
// always wins over the current state and reports whether the operator
// requested it.
func (m *Manager) MarkDisconnected() (requested bool) {
	prev := m.set(Disconnected)
	requested = m.requested.Load()
	m.log.Live("session %s disconnected (was %s, requested=%v)", m.ID(), prev, requested)
	return requested
}

// Disconnect asks the transport to drop the session. The requested flag is
// raised before the call so the asynchronous notification can tell an
// operator disconnect from a device-initiated one.
func (m *Manager) Disconnect() error {
	prev := m.State()
	if prev != Connected && prev != Connecting {
		return ErrNotConnected
	}
	if !m.transition(prev, Disconnecting) {
		return ErrNotConnected
	}
	m.requested.Store(true)

	h := m.Handle()
	m.log.Trace("transport Disconnect handle=%d", h)
	if err := m.tr.Disconnect(h); err != nil {
		m.requested.Store(false)
		m.transition(Disconnecting, prev)
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Release finalizes the session handle. Calling it again after the handle
// is gone returns ErrReleased without touching the transport.
func (m *Manager) Release() error {
	m.mu.Lock()
	h := m.handle
	m.handle = 0
	m.mu.Unlock()

	if h == 0 {
		return ErrReleased
	}
	m.set(Disconnected)
	m.log.Trace("transport ReleaseDevice handle=%d", h)
	if err := m.tr.ReleaseDevice(h); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

func (m *Manager) releaseStale() {
	m.mu.Lock()
	h := m.handle
	m.handle = 0
	m.mu.Unlock()
	if h == 0 {
		return
	}
	m.log.Verbose("releasing stale session %s (handle=%d)", m.ID(), h)
	if err := m.tr.ReleaseDevice(h); err != nil {
		m.log.Warn("release stale handle %d: %v", h, err)
	}
}

// WaitConnected blocks until the session is acknowledged, the connect
// attempt ends in Disconnected, or ctx is done.
func (m *Manager) WaitConnected(ctx context.Context) error {
	for {
		m.mu.Lock()
		ch := m.changed
		m.mu.Unlock()

		switch m.State() {
		case Connected:
			return nil
		case Disconnected, Disconnecting:
			return ErrNotConnected
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitDisconnected blocks until the session reaches Disconnected or ctx is
// done.
func (m *Manager) WaitDisconnected(ctx context.Context) error {
	for {
		ch := m.Changed()
		if m.State() == Disconnected {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Changed returns a channel closed at the next state change.
func (m *Manager) Changed() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed
}

func (m *Manager) transition(from, to State) bool {
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	m.notify()
	return true
}

func (m *Manager) set(to State) State {
	prev := State(m.state.Swap(int32(to)))
	if prev != to {
		m.notify()
	}
	return prev
}

func (m *Manager) notify() {
	m.mu.Lock()
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()
}
