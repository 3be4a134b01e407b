package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/pkg/engine"
)

// maxActionSize bounds submitted bodies; the largest action is a Move.
const maxActionSize = 64

// CounterHeader carries the record counter next to raw record bytes.
const CounterHeader = "X-Record-Counter"

// Handlers holds the HTTP handlers and the game store.
type Handlers struct {
	store     *ledger.Store
	version   string
	limiter   *Limiter
	logger    *log.Logger
	clock     quartz.Clock
	keepAlive time.Duration
}

// NewHandlers creates handlers over store. A nil limiter leaves requests
// unbounded.
func NewHandlers(store *ledger.Store, version string, limiter *Limiter, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handlers{
		store:     store,
		version:   version,
		limiter:   limiter,
		logger:    logger,
		clock:     quartz.NewReal(),
		keepAlive: 15 * time.Second,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// writeLedgerError maps ledger and engine errors to status codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNoRecord):
		writeError(w, http.StatusNotFound, err.Error(), "NO_RECORD")
	case errors.Is(err, ledger.ErrMalformedAction):
		writeError(w, http.StatusBadRequest, err.Error(), "MALFORMED_ACTION")
	case engine.IsMoveError(err):
		writeError(w, http.StatusConflict, err.Error(), "ILLEGAL_MOVE")
	case errors.Is(err, engine.ErrActionNotAllowed):
		writeError(w, http.StatusConflict, err.Error(), "NOT_ALLOWED")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}

// acquire takes a request slot, answering 503 when the client gives up
// before one is free.
func (h *Handlers) acquire(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	if err := h.limiter.AcquireRequest(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
		return false
	}
	return true
}

func (h *Handlers) release() {
	if h.limiter != nil {
		h.limiter.ReleaseRequest()
	}
}

func (h *Handlers) game(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, string, bool) {
	id := r.PathValue("id")
	l, ok := h.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game "+strconv.Quote(id), "UNKNOWN_GAME")
		return nil, id, false
	}
	return l, id, true
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Games:   len(h.store.IDs()),
	}
	if h.limiter != nil {
		stats := h.limiter.Stats()
		resp.Limits = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateGame handles POST /api/games
func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	h.store.Open(id)
	h.logger.Info("game created", "game", id)
	writeJSON(w, http.StatusCreated, CreateGameResponse{ID: id})
}

// ListGames handles GET /api/games
func (h *Handlers) ListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GameListResponse{Games: h.store.IDs()})
}

// Record handles GET /api/games/{id}/record. The body is the raw record.
func (h *Handlers) Record(w http.ResponseWriter, r *http.Request) {
	if !h.acquire(w, r) {
		return
	}
	defer h.release()

	l, _, ok := h.game(w, r)
	if !ok {
		return
	}
	snap, err := l.Snapshot()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(CounterHeader, strconv.FormatUint(uint64(snap.Counter), 10))
	w.WriteHeader(http.StatusOK)
	w.Write(engine.EncodeRecord(snap))
}

// View handles GET /api/games/{id}
func (h *Handlers) View(w http.ResponseWriter, r *http.Request) {
	if !h.acquire(w, r) {
		return
	}
	defer h.release()

	l, id, ok := h.game(w, r)
	if !ok {
		return
	}
	snap, err := l.Snapshot()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewGameView(id, snap))
}

// Submit handles POST /api/games/{id}/actions?party=A with the encoded
// action as the body.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.acquire(w, r) {
		return
	}
	defer h.release()

	party, err := engine.ParsePlayer(r.URL.Query().Get("party"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PARTY")
		return
	}
	l, id, ok := h.game(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "action too large", "MALFORMED_ACTION")
		return
	}

	counter, err := l.Apply(party, body)
	if err != nil {
		h.logger.Debug("action rejected", "game", id, "party", party, "err", err)
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{Counter: counter})
}
