package external

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/pkg/engine"
)

func startSnapshot() *engine.Snapshot {
	return &engine.Snapshot{
		Status:     engine.StatusMoveInProgress,
		Turn:       engine.PlayerB,
		Dice:       [2]int{3, 1},
		Multiplier: 2,
		Position:   engine.StartingPosition(),
		Counter:    5,
	}
}

func TestNewFIBSBoard(t *testing.T) {
	s := startSnapshot()
	s.LastDoubled = engine.PlayerA

	fb := NewFIBSBoard(s, engine.PlayerB, "bob", "alice")

	if fb.Board[24] != 2 {
		t.Errorf("Board[24] = %d, want 2 (own checkers positive)", fb.Board[24])
	}
	if fb.Board[1] != -2 {
		t.Errorf("Board[1] = %d, want -2", fb.Board[1])
	}
	if fb.Turn != 1 {
		t.Errorf("Turn = %d, want 1", fb.Turn)
	}
	if fb.Dice != [2]int{3, 1} || fb.OppDice != [2]int{} {
		t.Errorf("Dice = %v / %v, want [3 1] / [0 0]", fb.Dice, fb.OppDice)
	}
	if fb.Color != -1 || fb.Direction != -1 {
		t.Errorf("Color/Direction = %d/%d, want -1/-1", fb.Color, fb.Direction)
	}
	if !fb.CanDouble || fb.OppCanDouble {
		t.Errorf("CanDouble/OppCanDouble = %v/%v, want true/false", fb.CanDouble, fb.OppCanDouble)
	}
	if fb.Cube != 2 {
		t.Errorf("Cube = %d, want 2", fb.Cube)
	}
}

func TestFIBSBoardRoundTrip(t *testing.T) {
	s := startSnapshot()
	s.Position.Board[23] = 1 // B: one checker from 24 on the bar
	s.Position.Bar[1] = 1
	s.Position.Board[0] = -1 // A: one checker from 1 borne off
	s.Position.Off[0] = 1

	for _, you := range []engine.Player{engine.PlayerA, engine.PlayerB} {
		line := NewFIBSBoard(s, you, "me", "them").String()
		if got := len(strings.Split(strings.TrimPrefix(line, "board:"), ":")); got != fibsFields {
			t.Fatalf("%s: %d fields, want %d", you, got, fibsFields)
		}

		fb, err := ParseFIBSBoard(line)
		if err != nil {
			t.Fatalf("%s: ParseFIBSBoard error: %v", you, err)
		}
		if fb.You() != you {
			t.Errorf("%s: You() = %s", you, fb.You())
		}
		pos, err := fb.Position()
		if err != nil {
			t.Fatalf("%s: Position error: %v", you, err)
		}
		if pos != s.Position {
			t.Errorf("%s: position mismatch\n got %+v\nwant %+v", you, pos, s.Position)
		}
		if fb.Off != s.Position.Off[you.Index()] {
			t.Errorf("%s: Off = %d, want %d", you, fb.Off, s.Position.Off[you.Index()])
		}
	}
}

func TestParseFIBSBoardMinimal(t *testing.T) {
	parts := make([]string, 32)
	parts[0], parts[1] = "P1", "P2"
	for i := 2; i < 32; i++ {
		parts[i] = "0"
	}
	parts[31] = "1"

	fb, err := ParseFIBSBoard("board:" + strings.Join(parts, ":"))
	if err != nil {
		t.Fatalf("ParseFIBSBoard error: %v", err)
	}
	if fb.Player1 != "P1" || fb.Turn != 1 {
		t.Errorf("Player1/Turn = %q/%d, want P1/1", fb.Player1, fb.Turn)
	}
}

func TestParseFIBSBoardInvalid(t *testing.T) {
	for _, s := range []string{
		"invalid:board",
		"board:a:b:x" + strings.Repeat(":0", 29),
	} {
		if _, err := ParseFIBSBoard(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}

func TestFormatMove(t *testing.T) {
	tests := []struct {
		player engine.Player
		moves  []engine.SubMove
		want   string
	}{
		{engine.PlayerB, []engine.SubMove{{Start: 8, Step: 3}, {Start: 6, Step: 1}}, "8-5 6-5"},
		{engine.PlayerB, []engine.SubMove{{Start: 25, Step: 4}}, "bar-21"},
		{engine.PlayerA, []engine.SubMove{{Start: 0, Step: 3}, {Start: 22, Step: 6}}, "bar-3 22-off"},
		{engine.PlayerB, []engine.SubMove{{Start: 3, Step: 3}, {}}, "3-off"},
	}
	for _, tc := range tests {
		if got := FormatMove(tc.player, tc.moves); got != tc.want {
			t.Errorf("FormatMove(%s, %v) = %q, want %q", tc.player, tc.moves, got, tc.want)
		}
	}
}

func TestProcessCommand(t *testing.T) {
	store := ledger.NewStore(1, nil)
	l := store.Open("g1")
	if _, err := l.Apply(engine.PlayerA, []byte{0, 1, 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("init: %v", err)
	}
	s := NewServer(store, DefaultServerOptions(), nil)

	start := NewFIBSBoard(startSnapshot(), engine.PlayerB, "b", "a").String()

	tests := []struct {
		cmd  string
		want string
	}{
		{"version", "bgledger line protocol 1.0\n"},
		{"games", "g1\n"},
		{"position g1", "4HPwATDgc/ABMA\n"},
		{"board nope", "Error: unknown game nope\n"},
		{"board g1 C", "Error: unknown player \"C\"\n"},
		{"legal", "Error: no board specified\n"},
		{"frobnicate", "Error: unknown command 'frobnicate'\n"},
	}
	for _, tc := range tests {
		if got := s.processCommand(tc.cmd); got != tc.want {
			t.Errorf("processCommand(%q) = %q, want %q", tc.cmd, got, tc.want)
		}
	}

	if got := s.processCommand("board g1 B"); !strings.HasPrefix(got, "board:B:A:0:0:0:") {
		t.Errorf("board g1 B = %q", got)
	}

	legal := strings.Split(strings.TrimSpace(s.processCommand("legal "+start)), "\n")
	plays := engine.GeneratePlays(engine.StartingPosition(), engine.PlayerB, [2]int{3, 1})
	if len(legal) != len(plays) {
		t.Errorf("legal listed %d plays, want %d", len(legal), len(plays))
	}
}

func TestServerConnection(t *testing.T) {
	s := NewServer(ledger.NewStore(1, nil), ServerOptions{Addr: "127.0.0.1:0"}, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	conn.Write([]byte("games\nquit\n"))
	for _, want := range []string{"no games\n", "Goodbye\n"} {
		got, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}
