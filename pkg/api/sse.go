package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yourusername/bgledger/pkg/engine"
)

// Events streams the game record as Server-Sent Events.
// GET /api/games/{id}/events
//
// Every accepted action produces a "record" event carrying the GameView. The
// stream ends with a "done" event once the game is finished. Idle streams get
// a comment line every keep-alive interval.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	l, id, ok := h.game(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "NO_STREAMING")
		return
	}
	if h.limiter != nil {
		if !h.limiter.TryAcquireStream() {
			writeError(w, http.StatusServiceUnavailable, "too many streams", "SERVER_BUSY")
			return
		}
		defer h.limiter.ReleaseStream()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	records, cancel := l.Subscribe()
	defer cancel()
	ticker := h.clock.NewTicker(h.keepAlive, "sse", "keepalive")
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case raw, ok := <-records:
			if !ok {
				return
			}
			snap, err := engine.Decode(raw)
			if err != nil {
				writeSSEEvent(w, "error", ErrorResponse{Error: err.Error(), Code: "DECODE"})
				flusher.Flush()
				return
			}
			writeSSEEvent(w, "record", NewGameView(id, snap))
			if snap.Status == engine.StatusFinished {
				writeSSEEvent(w, "done", nil)
				flusher.Flush()
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data any) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}
