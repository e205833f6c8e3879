// Package flagservice answers "how far is agent k from its flag" over a
// websocket, one JSON request and one JSON response per query.
package flagservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"

	control "nav-avoid-core/closed_loop/navigation_control"
)

// Request asks for the distance from (X, Y) to the flag of AgentID.
type Request struct {
	Seq     uint64  `json:"seq"`
	AgentID int     `json:"agent_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Response carries the distance, or Error when the service could not answer.
type Response struct {
	Seq      uint64  `json:"seq"`
	Distance float64 `json:"distance"`
	Error    string  `json:"error,omitempty"`
}

// ServiceError is an error reported by the service itself; the connection
// stays usable.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "flag service: " + e.Message
}

// Client keeps one websocket open and redials after any transport error.
// Calls are serialized.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	seq  uint64
}

func NewClient(url string) *Client {
	return &Client{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 2 * time.Second,
		},
	}
}

// DistanceToFlag sends one query. The call is bounded by ctx: its deadline
// becomes the socket deadline and cancellation aborts a pending read.
func (c *Client) DistanceToFlag(ctx context.Context, agent control.AgentID, x, y float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	c.seq++
	req := Request{Seq: c.seq, AgentID: int(agent), X: x, Y: y}
	if err := conn.WriteJSON(req); err != nil {
		c.drop()
		return 0, fmt.Errorf("send query: %w", err)
	}

	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			c.drop()
			if ctxErr := expired(ctx, deadline); ctxErr != nil {
				return 0, fmt.Errorf("read reply: %w", ctxErr)
			}
			return 0, fmt.Errorf("read reply: %w", err)
		}
		// Late replies to earlier queries are skipped.
		if resp.Seq != req.Seq {
			continue
		}
		if resp.Error != "" {
			return 0, &ServiceError{Message: resp.Error}
		}
		return resp.Distance, nil
	}
}

// expired reports the context error, including a deadline that passed
// before the context timer fired.
func expired(ctx context.Context, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	cerr := c.conn.Close()
	c.conn = nil
	return multierr.Combine(werr, cerr)
}
