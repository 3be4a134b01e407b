// Package api serves ledger games over HTTP, Server-Sent Events and
// WebSocket.
package api

import "github.com/yourusername/bgledger/pkg/engine"

// ============================================================================
// Request Types
// ============================================================================

// CreateGameResponse is returned by POST /api/games.
type CreateGameResponse struct {
	ID string `json:"id"`
}

// SubmitResponse is returned for an accepted action.
type SubmitResponse struct {
	Counter uint32 `json:"counter"`
}

// ============================================================================
// Response Types
// ============================================================================

// SubMoveView is one sub-move in notation and raw form.
type SubMoveView struct {
	Start    int    `json:"start"`
	Step     int    `json:"step"`
	Notation string `json:"notation"` // e.g. "bar/20", "6/off"
}

// GameView is the JSON rendering of a ledger record.
type GameView struct {
	ID          string        `json:"id"`
	GameID      uint64        `json:"game_id"`
	Status      string        `json:"status"`
	Turn        string        `json:"turn"`
	Winner      string        `json:"winner,omitempty"`
	Dice        [2]int        `json:"dice"`
	Multiplier  int           `json:"multiplier"`
	LastDoubled string        `json:"last_doubled,omitempty"`
	LastMoves   []SubMoveView `json:"last_moves,omitempty"`
	Board       [24]int       `json:"board"` // negative = A, positive = B
	Bar         [2]int        `json:"bar"`
	Off         [2]int        `json:"off"`
	Pips        [2]int        `json:"pips"`
	Counter     uint32        `json:"counter"`
	MaxSubMoves int           `json:"max_sub_moves,omitempty"`
	Constraint  []SubMoveView `json:"constraint,omitempty"`
	PositionID  string        `json:"position_id,omitempty"` // gnubg ID with the turn holder on roll
}

// NewGameView renders s for game id.
func NewGameView(id string, s *engine.Snapshot) GameView {
	v := GameView{
		ID:          id,
		GameID:      s.GameID,
		Status:      s.Status.String(),
		Turn:        s.Turn.String(),
		Dice:        s.Dice,
		Multiplier:  s.Multiplier,
		Board:       s.Position.Board,
		Bar:         s.Position.Bar,
		Off:         s.Position.Off,
		Counter:     s.Counter,
		MaxSubMoves: s.MaxSubMoves,
	}
	if s.Winner.Valid() {
		v.Winner = s.Winner.String()
	}
	if s.LastDoubled.Valid() {
		v.LastDoubled = s.LastDoubled.String()
	}
	v.Pips = [2]int{s.Position.PipCount(engine.PlayerA), s.Position.PipCount(engine.PlayerB)}

	// Last moves were played by the party before the turn flipped, or by
	// the winner when the game ended on a move.
	mover := s.Turn.Opponent()
	if s.Status == engine.StatusFinished {
		mover = s.Winner
	}
	for _, m := range s.LastMoves {
		if !m.IsZero() {
			v.LastMoves = append(v.LastMoves, subMoveView(mover, m))
		}
	}
	for _, m := range s.Constraint {
		v.Constraint = append(v.Constraint, subMoveView(s.Turn, m))
	}
	if s.Turn.Valid() {
		v.PositionID = engine.PositionID(s.Position, s.Turn)
	}
	return v
}

func subMoveView(p engine.Player, m engine.SubMove) SubMoveView {
	return SubMoveView{Start: m.Start, Step: m.Step, Notation: engine.FormatMove(p, m)}
}

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error string `json:"error"`          // Error message
	Code  string `json:"code,omitempty"` // Error code
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Games   int           `json:"games"`
	Limits  *LimiterStats `json:"limits,omitempty"`
}

// GameListResponse lists the games known to the server.
type GameListResponse struct {
	Games []string `json:"games"`
}
