package external

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/pkg/engine"
)

// Server answers a plain-text line protocol over TCP, for tools that speak
// FIBS board lines rather than the binary record.
//
// Protocol overview:
//   - one command per line, one response per command
//   - "board <game> [A|B]" returns the FIBS board line of a game
//   - "legal board:..." lists the maximal plays for the dice on a board line
type Server struct {
	store    *ledger.Store
	listener net.Listener
	mu       sync.Mutex
	running  bool
	conns    sync.WaitGroup
	options  ServerOptions
	logger   *log.Logger
}

// ServerOptions configures the line protocol server.
type ServerOptions struct {
	Addr          string // Listen address, e.g. ":4321"
	PromptEnabled bool   // Send prompts after responses
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Addr:          ":4321",
		PromptEnabled: true,
	}
}

// NewServer creates a line protocol server over store.
func NewServer(store *ledger.Store, opts ServerOptions, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		store:   store,
		options: opts,
		logger:  logger,
	}
}

// Start begins listening for connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.options.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.options.Addr, err)
	}

	s.listener = listener
	s.running = true
	s.logger.Info("line protocol listening", "addr", listener.Addr())

	go s.acceptLoop()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops accepting connections and waits for open ones to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	err := s.listener.Close()
	s.mu.Unlock()

	s.conns.Wait()
	return err
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			s.logger.Warn("accept failed", "err", err)
			continue
		}

		s.conns.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection handles a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)
	if s.options.PromptEnabled {
		conn.Write([]byte("> "))
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				s.logger.Debug("connection read failed", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		conn.Write([]byte(s.processCommand(line)))

		if cmd := strings.ToLower(line); cmd == "exit" || cmd == "quit" {
			return
		}
		if s.options.PromptEnabled {
			conn.Write([]byte("> "))
		}
	}
}

// processCommand processes a single command and returns the response.
func (s *Server) processCommand(cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "Error: empty command\n"
	}

	switch command := strings.ToLower(parts[0]); command {
	case "version":
		return "bgledger line protocol 1.0\n"

	case "help":
		return helpText

	case "exit", "quit":
		return "Goodbye\n"

	case "games":
		ids := s.store.IDs()
		if len(ids) == 0 {
			return "no games\n"
		}
		return strings.Join(ids, "\n") + "\n"

	case "board":
		return s.handleBoard(parts[1:])

	case "position":
		return s.handlePosition(parts[1:])

	case "legal":
		return handleLegal(cmd)

	default:
		return fmt.Sprintf("Error: unknown command '%s'\n", command)
	}
}

const helpText = `Available commands:
  version               - Show version information
  help                  - Show this help
  games                 - List games
  board <game> [A|B]    - FIBS board line of a game, seen from A by default
  position <game>       - gnubg position ID with the turn holder on roll
  legal <board line>    - Maximal plays for the dice on a FIBS board line
  exit                  - Close connection
`

func (s *Server) snapshot(id string) (*engine.Snapshot, error) {
	l, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown game %s", id)
	}
	return l.Snapshot()
}

// handleBoard handles "board <game> [A|B]".
func (s *Server) handleBoard(args []string) string {
	if len(args) < 1 {
		return "Error: board requires a game id\n"
	}
	you := engine.PlayerA
	if len(args) > 1 {
		p, err := engine.ParsePlayer(args[1])
		if err != nil {
			return fmt.Sprintf("Error: %v\n", err)
		}
		you = p
	}
	snap, err := s.snapshot(args[0])
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	return NewFIBSBoard(snap, you, you.String(), you.Opponent().String()).String() + "\n"
}

// handlePosition handles "position <game>".
func (s *Server) handlePosition(args []string) string {
	if len(args) != 1 {
		return "Error: position requires a game id\n"
	}
	snap, err := s.snapshot(args[0])
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	onRoll := snap.Turn
	if !onRoll.Valid() {
		onRoll = engine.PlayerA
	}
	return engine.PositionID(snap.Position, onRoll) + "\n"
}

// handleLegal lists every maximal play for the dice on a board line, one
// per line, in FIBS notation.
func handleLegal(cmd string) string {
	boardStart := strings.Index(cmd, "board:")
	if boardStart < 0 {
		return "Error: no board specified\n"
	}

	fb, err := ParseFIBSBoard(cmd[boardStart:])
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	if fb.Dice[0] == 0 || fb.Dice[1] == 0 {
		return "Error: no dice rolled\n"
	}
	pos, err := fb.Position()
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	you := fb.You()
	plays := engine.GeneratePlays(pos, you, fb.Dice)
	if len(plays) == 0 || len(plays[0].Moves) == 0 {
		return "cannot move\n"
	}
	var b strings.Builder
	for _, pl := range plays {
		b.WriteString(FormatMove(you, pl.Moves))
		b.WriteByte('\n')
	}
	return b.String()
}
