package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/remocam/internal/logic/events"
)

// StatusEvent is one message on the SSE stream. Log lines carry only Msg;
// dispatcher events also carry Kind and the fields that apply.
type StatusEvent struct {
	Time     string `json:"t"`
	Level    string `json:"l,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Msg      string `json:"msg"`
	Filename string `json:"file,omitempty"`
	Codes    int    `json:"codes,omitempty"`
	Action   string `json:"action,omitempty"`
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients returns the number of subscribed clients.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends a log line to all subscribed clients.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// Observe forwards a dispatcher event. Register it with
// Dispatcher.Subscribe; it never blocks.
func (b *StatusBroadcaster) Observe(e events.Event) {
	evt := StatusEvent{
		Kind:     e.Kind.String(),
		Msg:      e.String(),
		Filename: e.Filename,
		Codes:    len(e.Codes),
		Level:    "info",
	}
	if e.Guidance.Action != events.ActionIgnore {
		evt.Action = e.Guidance.Action.String()
	}
	switch {
	case e.Err != nil:
		evt.Level = "error"
		evt.Msg += ": " + e.Err.Error()
	case e.Kind == events.KindError || e.Guidance.Action == events.ActionReturnToMenu:
		evt.Level = "error"
	case e.Kind == events.KindWarning:
		evt.Level = "warn"
	}
	b.send(evt)
}

// Slow clients miss messages rather than stall the sender.
func (b *StatusBroadcaster) send(evt StatusEvent) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with Logger.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if msg := strings.TrimSpace(line); msg != "" {
			w.b.BroadcastMsg(msg)
		}
	}
	return len(p), nil
}
