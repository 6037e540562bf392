// Package homeassistant reads the entity, device and area registries
// from a running Home Assistant over its WebSocket API.
package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nugget/hacheck/internal/buildinfo"
	"github.com/nugget/hacheck/internal/config"
)

// DefaultRequestTimeout bounds one command when the caller's context
// carries no earlier deadline.
const DefaultRequestTimeout = 30 * time.Second

// Registry listings on large installations run to tens of megabytes.
const maxMessageSize = 100 << 20

// ErrNotConnected is returned by commands issued before Connect, after
// Close, or after the connection has failed.
var ErrNotConnected = errors.New("websocket not connected")

// WSClient is a request/response client for the Home Assistant
// WebSocket API. Commands are serialised on one connection; it never
// subscribes to events.
type WSClient struct {
	baseURL string
	token   string
	logger  *slog.Logger

	mu     sync.Mutex // guards conn and nextID, held for a whole command
	conn   *websocket.Conn
	nextID int64
}

// frame is any message on the socket. Only the fields hacheck reads are
// decoded.
type frame struct {
	ID      int64           `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *CommandError   `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// CommandError is the error object of an unsuccessful result.
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return e.Code + ": " + e.Message
}

// NewWSClient returns an unconnected client for the instance at baseURL
// (http, https, ws or wss).
func NewWSClient(baseURL, token string, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
	}
}

// websocketURL maps a base URL onto the /api/websocket endpoint.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}

// Connect dials the API and completes the auth handshake.
func (c *WSClient) Connect(ctx context.Context) error {
	endpoint, err := websocketURL(c.baseURL)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{
		ReadBufferSize:   1 << 20,
		WriteBufferSize:  64 << 10,
		HandshakeTimeout: 10 * time.Second,
	}
	header := http.Header{"User-Agent": {buildinfo.UserAgent()}}

	c.logger.Debug("dialing Home Assistant", "url", endpoint)
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	stop := watchContext(ctx, conn)
	err = handshake(conn, c.token)
	stop()
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Debug("Home Assistant authenticated")
	return nil
}

// handshake runs auth_required -> auth -> auth_ok.
func handshake(conn *websocket.Conn, token string) error {
	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("expected auth_required, got %q", hello.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "auth", "access_token": token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	var reply frame
	if err := conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}
	switch reply.Type {
	case "auth_ok":
		return nil
	case "auth_invalid":
		if reply.Message != "" {
			return fmt.Errorf("authentication failed: %s", reply.Message)
		}
		return errors.New("authentication failed")
	default:
		return fmt.Errorf("unexpected auth response %q", reply.Type)
	}
}

// watchContext bounds the reads on conn by ctx and by
// DefaultRequestTimeout. The returned func clears the deadline and must
// be called before conn is used for anything else.
func watchContext(ctx context.Context, conn *websocket.Conn) (stop func()) {
	deadline := time.Now().Add(DefaultRequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	// Expire the read at once on cancellation.
	cancel := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	return func() {
		cancel()
		conn.SetReadDeadline(time.Time{})
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// GetEntityRegistry lists the entity registry.
func (c *WSClient) GetEntityRegistry(ctx context.Context) ([]EntityRegistryEntry, error) {
	var entries []EntityRegistryEntry
	if err := c.command(ctx, "config/entity_registry/list", &entries); err != nil {
		return nil, fmt.Errorf("get entity registry: %w", err)
	}
	return entries, nil
}

// GetDeviceRegistry lists the device registry.
func (c *WSClient) GetDeviceRegistry(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.command(ctx, "config/device_registry/list", &devices); err != nil {
		return nil, fmt.Errorf("get device registry: %w", err)
	}
	return devices, nil
}

// GetAreaRegistry lists the area registry.
func (c *WSClient) GetAreaRegistry(ctx context.Context) ([]Area, error) {
	var areas []Area
	if err := c.command(ctx, "config/area_registry/list", &areas); err != nil {
		return nil, fmt.Errorf("get area registry: %w", err)
	}
	return areas, nil
}

// command sends one command and decodes the matching result into out.
// Frames that are not that result are skipped. A transport failure
// drops the connection so later commands fail fast.
func (c *WSClient) command(ctx context.Context, msgType string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.nextID++
	id := c.nextID

	result, err := c.roundTrip(ctx, id, msgType)
	if err != nil {
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) {
			c.conn.Close()
			c.conn = nil
		}
		return err
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", msgType, err)
	}
	return nil
}

func (c *WSClient) roundTrip(ctx context.Context, id int64, msgType string) (json.RawMessage, error) {
	if err := c.conn.WriteJSON(map[string]any{"id": id, "type": msgType}); err != nil {
		return nil, fmt.Errorf("send %s: %w", msgType, err)
	}

	stop := watchContext(ctx, c.conn)
	defer stop()

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("read %s: %w", msgType, err)
		}
		if f.Type != "result" || f.ID != id {
			c.logger.Log(ctx, config.LevelTrace, "skipping frame", "type", f.Type, "id", f.ID)
			continue
		}
		if !f.Success {
			if f.Error != nil {
				return nil, f.Error
			}
			return nil, fmt.Errorf("%s failed", msgType)
		}
		return f.Result, nil
	}
}
