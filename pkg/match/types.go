// Package match records observed ledger games and exports them in the
// Jellyfish MAT text format.
package match

import (
	"github.com/yourusername/bgledger/pkg/engine"
)

// Match is a sequence of games between the same two parties. Player1 is
// party A and Player2 party B.
type Match struct {
	Player1 string
	Player2 string
	Date    string // YYYY-MM-DD
	Event   string
	Place   string
	Games   []*Game
}

// Game is one ledger record from start to finish.
type Game struct {
	Number  int
	GameID  uint64
	Score1  int // party A's score before the game
	Score2  int
	Actions []Action
	Winner  engine.Player
	Points  int // final multiplier awarded to the winner
	Result  GameResult

	Incomplete bool // some actions were not observed
}

// ActionType is the kind of a recorded action.
type ActionType int

const (
	ActionRoll ActionType = iota
	ActionMove
	ActionDouble
	ActionTake
	ActionPass
)

// Action is one recorded game event.
type Action struct {
	Type   ActionType
	Player engine.Player
	Dice   [2]int           // ActionRoll
	Moves  []engine.SubMove // ActionMove
	Value  int              // ActionDouble: cube value offered
}

// GameResult says how a game ended.
type GameResult int

const (
	ResultInProgress GameResult = iota
	ResultSingle                // all checkers borne off
	ResultDrop                  // a double was declined
)

// NewMatch creates an empty match.
func NewMatch(player1, player2 string) *Match {
	return &Match{Player1: player1, Player2: player2}
}

// NewGame appends a new game to m and returns it.
func (m *Match) NewGame(gameID uint64) *Game {
	g := &Game{Number: len(m.Games) + 1, GameID: gameID, Result: ResultInProgress}
	for _, prev := range m.Games {
		switch prev.Winner {
		case engine.PlayerA:
			g.Score1 += prev.Points
		case engine.PlayerB:
			g.Score2 += prev.Points
		}
	}
	m.Games = append(m.Games, g)
	return g
}

// AddRoll records a roll.
func (g *Game) AddRoll(p engine.Player, dice [2]int) {
	g.Actions = append(g.Actions, Action{Type: ActionRoll, Player: p, Dice: dice})
}

// AddMove records a ply. Zero sub-moves records a forfeited roll.
func (g *Game) AddMove(p engine.Player, moves []engine.SubMove) {
	g.Actions = append(g.Actions, Action{Type: ActionMove, Player: p, Moves: moves})
}

// AddDouble records an offer to turn the cube to value.
func (g *Game) AddDouble(p engine.Player, value int) {
	g.Actions = append(g.Actions, Action{Type: ActionDouble, Player: p, Value: value})
}

// AddTake records an accepted double.
func (g *Game) AddTake(p engine.Player) {
	g.Actions = append(g.Actions, Action{Type: ActionTake, Player: p})
}

// AddPass records a declined double.
func (g *Game) AddPass(p engine.Player) {
	g.Actions = append(g.Actions, Action{Type: ActionPass, Player: p})
}

// Finish records the outcome.
func (g *Game) Finish(o engine.Outcome) {
	g.Winner = o.Winner
	g.Points = o.Multiplier
	g.Result = ResultSingle
	if o.Dropped {
		g.Result = ResultDrop
	}
}
