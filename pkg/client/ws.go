package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/yourusername/bgledger/pkg/api"
	"github.com/yourusername/bgledger/pkg/engine"
)

// Update is one pushed record.
type Update struct {
	Snapshot *engine.Snapshot
	View     api.GameView
}

func (c *Client) wsURL() string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws"
	u.RawQuery = ""
	return u.String()
}

// Watch subscribes to game over WebSocket. The channel receives every record
// the server pushes and is closed when ctx ends, the game finishes or the
// connection drops; the error function then reports why.
func (c *Client) Watch(ctx context.Context, game string) (<-chan Update, func() error, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	payload, _ := json.Marshal(api.WSSubscribe{Game: game})
	if err := conn.WriteJSON(api.WSMessage{Type: "subscribe", ID: "watch", Payload: payload}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Update)
	var readErr error
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(done)
		defer close(out)
		defer conn.Close()
		for {
			var msg struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
				Error   string          `json:"error"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					readErr = err
				}
				return
			}
			switch msg.Type {
			case "error":
				readErr = fmt.Errorf("server: %s", msg.Error)
				return
			case "record":
			default:
				continue
			}

			var rec api.WSRecord
			if err := json.Unmarshal(msg.Payload, &rec); err != nil {
				readErr = err
				return
			}
			snap, err := engine.Decode(rec.Record)
			if err != nil {
				readErr = err
				return
			}
			c.logger.Debug("record pushed", "game", game, "counter", snap.Counter)
			select {
			case out <- Update{Snapshot: snap, View: rec.View}:
			case <-ctx.Done():
				return
			}
			if snap.Status == engine.StatusFinished {
				return
			}
		}
	}()

	return out, func() error {
		<-done
		return readErr
	}, nil
}
