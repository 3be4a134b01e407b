package engine

// CanDouble reports whether p may offer a double on snapshot s: it must be
// p's turn decision, p must not have been the last to double, and the cube
// must be below its cap.
func CanDouble(s *Snapshot, p Player) bool {
	return s.Status == StatusTurnDecision &&
		s.Turn == p &&
		s.LastDoubled != p &&
		s.Multiplier < MaxMultiplier
}

// MayRespond reports whether p is the party that answers a pending double.
func MayRespond(s *Snapshot, p Player) bool {
	return s.Status == StatusDoubleOffered && s.Turn.Opponent() == p
}

// Outcome is the result of a finished game.
type Outcome struct {
	Winner     Player
	Multiplier int
	Dropped    bool // ended by a declined double
}

// OutcomeOf reads the result from a finished snapshot.
func OutcomeOf(s *Snapshot) Outcome {
	if !s.Winner.Valid() {
		return Outcome{Multiplier: s.Multiplier}
	}
	return Outcome{
		Winner:     s.Winner,
		Multiplier: s.Multiplier,
		Dropped:    s.Position.Off[s.Winner.Index()] < CheckersPerSide,
	}
}
