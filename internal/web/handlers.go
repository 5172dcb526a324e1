package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/camera"
	"github.com/cjeanneret/remocam/internal/logic/property"
	"github.com/cjeanneret/remocam/internal/remote"
)

// StateResponse is the body of GET /state.
type StateResponse struct {
	State      string `json:"state"`
	Mode       string `json:"mode"`
	Session    string `json:"session,omitempty"`
	Capturing  bool   `json:"capturing"`
	Properties int    `json:"properties"`
	Received   uint64 `json:"events_received"`
	Coalesced  uint64 `json:"events_coalesced"`
	Lost       uint64 `json:"events_lost"`
}

// PropertyResponse is one property as served by /properties.
type PropertyResponse struct {
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	Kind     string   `json:"kind"`
	Value    string   `json:"value"`
	Raw      uint64   `json:"raw"`
	Writable bool     `json:"writable"`
	Possible []string `json:"possible,omitempty"`
}

func newPropertyResponse(p property.Property) PropertyResponse {
	out := PropertyResponse{
		Name:     p.Code.String(),
		Code:     fmt.Sprintf("0x%04X", uint32(p.Code)),
		Kind:     p.Kind.String(),
		Writable: p.Writable,
	}
	if p.Current != nil {
		out.Value = p.Current.String()
		out.Raw = p.Current.Raw()
	}
	for _, v := range p.Possible {
		out.Possible = append(out.Possible, v.String())
	}
	return out
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Remote      *remote.Remote
	// Camera takes the shot for POST /capture. Nil answers 503.
	Camera camera.Camera

	log       *debug.Logger
	runningMu sync.Mutex
	running   bool
	// wg tracks the capture goroutine.
	wg       sync.WaitGroup
	staticFS fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, r *remote.Remote, cam camera.Camera, staticFS fs.FS, log *debug.Logger) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Remote:      r,
		Camera:      cam,
		staticFS:    staticFS,
		log:         log,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Capturing reports whether a POST /capture shot is still running.
func (h *Handlers) Capturing() bool {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()
	return h.running
}

// Wait blocks until the running capture, if any, has returned.
func (h *Handlers) Wait() { h.wg.Wait() }

// HandleState handles GET /state.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	st := h.Remote.Dispatcher.Stats()
	writeJSON(w, http.StatusOK, StateResponse{
		State:      h.Remote.Session.State().String(),
		Mode:       h.Remote.Mode().String(),
		Session:    h.Remote.Session.ID(),
		Capturing:  h.Capturing(),
		Properties: h.Remote.Cache.Len(),
		Received:   st.Received,
		Coalesced:  st.Coalesced,
		Lost:       st.Lost,
	})
}

// HandleProperties handles GET /properties.
func (h *Handlers) HandleProperties(w http.ResponseWriter, r *http.Request) {
	snap := h.Remote.Cache.Snapshot()
	out := make([]PropertyResponse, 0, len(snap))
	for _, p := range snap {
		out = append(out, newPropertyResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleProperty handles GET /properties/{name}. The name is matched like
// the console does: case-insensitive, underscores allowed.
func (h *Handlers) HandleProperty(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	code, ok := property.ByName(name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown property %q", name), http.StatusNotFound)
		return
	}
	p, ok := h.Remote.Cache.Get(code)
	if !ok {
		http.Error(w, fmt.Sprintf("%s is not reported by the camera", code), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newPropertyResponse(p))
}

// HandleCapture handles POST /capture: one shot, run in the background.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if h.Camera == nil {
		http.Error(w, "capture not configured", http.StatusServiceUnavailable)
		return
	}
	if !h.Remote.Session.Connected() {
		http.Error(w, "camera not connected", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "capture already in progress", http.StatusConflict)
		return
	}
	h.running = true
	h.runningMu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		if err := h.Camera.Shoot(context.Background()); err != nil {
			h.Broadcaster.Broadcast("error", "Capture failed: "+err.Error())
			h.log.Warn("web: capture failed: %v", err)
		} else {
			h.Broadcaster.Broadcast("info", "Capture complete")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleEventStream handles GET /events/stream for SSE.
func (h *Handlers) HandleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
