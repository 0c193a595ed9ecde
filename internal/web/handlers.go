package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/logic/provision"
	"github.com/cjeanneret/BlindGo/internal/status"
)

const (
	maxCommandBytes  = 1 << 10
	maxSettingsBytes = 4 << 10
	maxTravelSeconds = 86400
)

// SubmitFunc queues a raw remote command. It reports false when the
// command queue is full.
type SubmitFunc func(cmd string) bool

// StatusSource is the retained status feed (status.Hub).
type StatusSource interface {
	Last() (string, bool)
	Subscribe(p status.Publisher) func()
}

// Provisioning gates settings changes to setup mode.
type Provisioning interface {
	Active() bool
	Apply(fn func() error) error
}

// Settings holds the installation parameters editable in setup mode.
type Settings struct {
	MaxPosSeconds     int  `json:"max_pos_s"`
	InvertZero        bool `json:"invert_zero"`
	InvertSwitch      bool `json:"invert_switch"`
	DisableManualLock bool `json:"disable_manual_lock"`
}

// SaveSettingsFunc persists settings. Changes take effect after restart.
type SaveSettingsFunc func(s Settings) error

// ValidateSettings checks settings received from a client.
func ValidateSettings(s Settings) error {
	if s.MaxPosSeconds < 1 || s.MaxPosSeconds > maxTravelSeconds {
		return fmt.Errorf("max_pos_s must be between 1 and %d", maxTravelSeconds)
	}
	return nil
}

// Deps groups what the handlers need from the rest of the program.
// Nil members disable the routes that depend on them (503).
type Deps struct {
	Broadcaster  *StatusBroadcaster
	Submit       SubmitFunc
	Status       StatusSource
	Provisioning Provisioning
	Settings     Settings
	SaveSettings SaveSettingsFunc
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Deps
	staticFS fs.FS
	upgrader websocket.Upgrader
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(deps Deps, staticFS fs.FS) *Handlers {
	if deps.Broadcaster == nil {
		deps.Broadcaster = NewStatusBroadcaster()
	}
	return &Handlers{
		Deps:     deps,
		staticFS: staticFS,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// LAN appliance, no browser origin policy to enforce.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
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

// HandleCommand handles POST /command. The body is the raw command text,
// e.g. "mva30" or "set".
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "command too large", http.StatusRequestEntityTooLarge)
		return
	}
	cmd := strings.TrimSpace(string(body))
	if cmd == "" {
		http.Error(w, "empty command", http.StatusBadRequest)
		return
	}
	if h.Submit == nil {
		http.Error(w, "commands not configured", http.StatusServiceUnavailable)
		return
	}
	if !h.Submit(cmd) {
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status       string `json:"status"`
	Provisioning bool   `json:"provisioning"`
}

// HandleStatus handles GET /status with the retained position status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.Status == nil {
		http.Error(w, "status not configured", http.StatusServiceUnavailable)
		return
	}
	last, ok := h.Status.Last()
	if !ok {
		http.Error(w, "no status yet", http.StatusServiceUnavailable)
		return
	}
	resp := StatusResponse{Status: last}
	if h.Provisioning != nil {
		resp.Provisioning = h.Provisioning.Active()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSettings returns the current installation settings as JSON.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings)
}

// HandleSetup handles POST /setup. Settings are only accepted while the
// device is in setup mode.
func (h *Handlers) HandleSetup(w http.ResponseWriter, r *http.Request) {
	if h.Provisioning == nil || h.SaveSettings == nil {
		http.Error(w, "setup not configured", http.StatusServiceUnavailable)
		return
	}

	var s Settings
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBytes)).Decode(&s); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateSettings(s); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Provisioning.Apply(func() error { return h.SaveSettings(s) })
	switch {
	case errors.Is(err, provision.ErrNotActive):
		http.Error(w, "not in setup mode", http.StatusForbidden)
		return
	case err != nil:
		log.Printf("saving settings: %v", err)
		http.Error(w, "could not save settings", http.StatusInternalServerError)
		return
	}

	h.Broadcaster.BroadcastMsg("Settings saved, restart to apply")
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	id := uuid.NewString()
	debug.Live("sse %s connected from %s", id, r.RemoteAddr)
	defer debug.Live("sse %s disconnected", id)

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	if h.Status != nil {
		if last, ok := h.Status.Last(); ok {
			if payload, err := encodeEvent(LevelStatus, last); err == nil {
				w.Write([]byte("data: " + payload + "\n\n"))
			}
		}
	}
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
