package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

const (
	DefaultRequestTimeout = 20 * time.Second
	DefaultPollInterval   = 2 * time.Second
	accountObjectsLimit   = 200
)

var ErrClosed = errors.New("ledger client closed")

// RPCError is an error status returned by the node.
type RPCError struct {
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Config struct {
	URL            string
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

type response struct {
	ID           uint64          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
	ErrorMessage string          `json:"error_message"`
}

type reply struct {
	resp response
	err  error
}

// Client speaks the node's websocket API over one lazily dialed connection.
// Requests are correlated by id, so calls from many goroutines share it.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan reply
	nextID  uint64
	closed  bool

	writeMu sync.Mutex
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		logger:  logger.With("module", "xrpl"),
		pending: make(map[uint64]chan reply),
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call sends one command and decodes its result into out.
func (c *Client) call(ctx context.Context, command string, params map[string]any, out any) error {
	if err := domain.ValidateLedgerEndpoint(c.cfg.URL); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	id, ch := c.register()
	defer c.unregister(id)

	req := make(map[string]any, len(params)+2)
	for k, v := range params {
		req[k] = v
	}
	req["id"] = id
	req["command"] = command

	if err := c.write(ctx, conn, req); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", command, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("%s: %w", command, r.err)
		}
		if r.resp.Status == "error" || r.resp.Error != "" {
			return &RPCError{Code: r.resp.Error, Message: r.resp.ErrorMessage}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(r.resp.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", command, err)
		}
		return nil
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial ledger node: %w", err)
	}
	c.conn = conn
	c.logger.Info("connected to ledger node", "url", c.cfg.URL)

	go c.readLoop(conn)
	return conn, nil
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, req map[string]any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	return conn.WriteJSON(req)
}

func (c *Client) register() (uint64, chan reply) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	ch := make(chan reply, 1)
	c.pending[c.nextID] = ch
	return c.nextID, ch
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.dropConn(conn, err)
			return
		}

		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Warn("unreadable ledger message", "error", err)
			continue
		}
		if resp.ID == 0 {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ok {
			ch <- reply{resp: resp}
		}
	}
}

// dropConn fails every in-flight call; the next call dials again.
func (c *Client) dropConn(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
		_ = conn.Close()
	}
	for id, ch := range c.pending {
		ch <- reply{err: fmt.Errorf("connection lost: %w", cause)}
		delete(c.pending, id)
	}
	if !c.closed {
		c.logger.Warn("ledger connection lost", "error", cause)
	}
}
