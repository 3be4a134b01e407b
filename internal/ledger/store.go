package ledger

import (
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yourusername/bgledger/internal/randutil"
)

// Store keeps one ledger per game id.
type Store struct {
	mu     sync.RWMutex
	games  map[string]*Ledger
	seed   int64
	opened int64
	logger *log.Logger
}

// NewStore creates a store whose games draw dice from seed-derived sources.
func NewStore(seed int64, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		games:  make(map[string]*Ledger),
		seed:   seed,
		logger: logger,
	}
}

// Get returns the ledger for id.
func (s *Store) Get(id string) (*Ledger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.games[id]
	return l, ok
}

// Open returns the ledger for id, creating it when missing.
func (s *Store) Open(id string) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.games[id]; ok {
		return l
	}
	s.opened++
	l := New(RandomDice(randutil.New(s.seed+s.opened)), s.logger.With("game", id))
	s.games[id] = l
	return l
}

// IDs lists the known game ids in order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
