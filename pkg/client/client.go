// Package client talks to the bgledger HTTP API. A Party adapts one side of
// a remote game to the session driver.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yourusername/bgledger/pkg/api"
	"github.com/yourusername/bgledger/pkg/engine"
	"github.com/yourusername/bgledger/pkg/session"
)

// ErrUnknownGame is returned when the server does not know the game id.
var ErrUnknownGame = errors.New("unknown game")

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server: %s (%d %s)", e.Message, e.Status, e.Code)
}

// Client is an HTTP client for one server.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the server at serverURL, e.g. "http://localhost:8080".
func New(serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", serverURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", session.ErrTransient, err)
	}
	return resp, nil
}

// apiError reads the error body of resp. Server-side failures are marked
// transient.
func apiError(resp *http.Response) error {
	e := &APIError{Status: resp.StatusCode, Message: resp.Status}
	var body api.ErrorResponse
	if json.NewDecoder(resp.Body).Decode(&body) == nil {
		e.Code = body.Code
		if body.Error != "" {
			e.Message = body.Error
		}
	}
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %w", session.ErrTransient, e)
	case e.Code == "NO_RECORD":
		return fmt.Errorf("%w: %w", session.ErrNoRecord, e)
	case e.Code == "UNKNOWN_GAME":
		return fmt.Errorf("%w: %w", ErrUnknownGame, e)
	}
	return e
}

func decodeJSON(resp *http.Response, want int, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// CreateGame asks the server for a new game and returns its id.
func (c *Client) CreateGame(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/games", nil, nil)
	if err != nil {
		return "", err
	}
	var created api.CreateGameResponse
	if err := decodeJSON(resp, http.StatusCreated, &created); err != nil {
		return "", err
	}
	c.logger.Debug("created game", "game", created.ID)
	return created.ID, nil
}

// Games lists the game ids known to the server.
func (c *Client) Games(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/games", nil, nil)
	if err != nil {
		return nil, err
	}
	var list api.GameListResponse
	if err := decodeJSON(resp, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return list.Games, nil
}

// View returns the JSON view of a game.
func (c *Client) View(ctx context.Context, game string) (*api.GameView, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(game), nil, nil)
	if err != nil {
		return nil, err
	}
	var v api.GameView
	if err := decodeJSON(resp, http.StatusOK, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Record returns the raw record of a game.
func (c *Client) Record(ctx context.Context, game string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(game)+"/record", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrTransient, err)
	}
	return b, nil
}

// Submit posts an encoded action for party. Rejections by the ledger are
// returned as a confirmed SubmissionError; failures that leave the outcome
// unknown are unconfirmed and wrap ErrTransient.
func (c *Client) Submit(ctx context.Context, game string, party engine.Player, action []byte) (uint32, error) {
	q := url.Values{"party": {party.String()}}
	resp, err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(game)+"/actions", q, action)
	if err != nil {
		return 0, &engine.SubmissionError{Err: err}
	}
	var sr api.SubmitResponse
	if err := decodeJSON(resp, http.StatusOK, &sr); err != nil {
		// Only an explicit non-200 answer from the ledger is a rejection; an
		// unreadable 200 body leaves the outcome unknown.
		var apiErr *APIError
		confirmed := errors.As(err, &apiErr) && !errors.Is(err, session.ErrTransient)
		return 0, &engine.SubmissionError{Confirmed: confirmed, Err: err}
	}
	return sr.Counter, nil
}

// Party is one side of a remote game.
type Party struct {
	client *Client
	game   string
	player engine.Player
}

// Party returns the session source and sink for player in game.
func (c *Client) Party(game string, player engine.Player) *Party {
	return &Party{client: c, game: game, player: player}
}

func (p *Party) Read(ctx context.Context) ([]byte, error) {
	return p.client.Record(ctx, p.game)
}

func (p *Party) Submit(ctx context.Context, action []byte) error {
	_, err := p.client.Submit(ctx, p.game, p.player, action)
	return err
}
