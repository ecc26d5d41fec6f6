package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// wsConnection is the part of *websocket.Conn a Client uses.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ReadMarker records that readerID has read everything senderID sent them.
type ReadMarker interface {
	MarkRead(ctx context.Context, readerID, senderID string) error
}

// ClientOptions bound a connection's liveness and buffering.
type ClientOptions struct {
	// PongWait is how long the peer may stay silent before it is declared dead.
	PongWait     time.Duration
	WriteWait    time.Duration
	SendBuffer   int
	MaxFrameSize int64
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		SendBuffer:   64,
		MaxFrameSize: 64 << 10,
	}
}

func (o ClientOptions) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}

// Client is one websocket connection. It implements Handle.
type Client struct {
	conn wsConnection
	info ConnInfo
	opts ClientOptions

	send      chan models.ServerEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn wsConnection, info ConnInfo, opts ClientOptions) *Client {
	return &Client{
		conn: conn,
		info: info,
		opts: opts,
		send: make(chan models.ServerEvent, opts.SendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string     { return c.info.ConnID }
func (c *Client) UserID() string { return c.info.UserID }

// Send queues event for the writer. It never blocks; a closed client or a
// full buffer drops the event.
func (c *Client) Send(event models.ServerEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Run pumps frames until the connection fails or goes silent for PongWait.
// The returned error is the one that ended the read loop.
func (c *Client) Run(ctx context.Context, marker ReadMarker) error {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := c.writePump(); err != nil {
			log.Debug("websocket write failed", "conn_id", c.ID(), "err", err)
		}
	}()

	err := c.readPump(ctx, marker)
	c.Close()
	<-writerDone
	return err
}

func (c *Client) readPump(ctx context.Context, marker ReadMarker) error {
	c.conn.SetReadLimit(c.opts.MaxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		c.handleFrame(ctx, data, marker)
	}
}

func (c *Client) writePump() error {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteJSON(event); err != nil {
				c.Close()
				return err
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return err
			}
		case <-c.done:
			return nil
		}
	}
}

// handleFrame dispatches one client frame. Malformed frames are dropped and
// the connection stays open.
func (c *Client) handleFrame(ctx context.Context, data []byte, marker ReadMarker) {
	var event models.ClientEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.discard("invalid json", err)
		return
	}

	switch event.Event {
	case models.EventMessageRead:
		var receipt models.ReadReceipt
		if err := json.Unmarshal(event.Data, &receipt); err != nil {
			c.discard("invalid messageRead payload", err)
			return
		}
		senderID := strings.TrimSpace(receipt.SenderID)
		if senderID == "" {
			c.discard("messageRead without senderId", nil)
			return
		}
		if marker == nil {
			return
		}
		if err := marker.MarkRead(ctx, c.UserID(), senderID); err != nil {
			log.Warn("realtime mark read failed", "reader_id", c.UserID(), "sender_id", senderID, "err", err)
		}
	default:
		c.discard("unknown event "+event.Event, nil)
	}
}

func (c *Client) discard(reason string, err error) {
	observability.IncWSEvent("ws_discarded_frame")
	log.Debug("discarding client frame", "conn_id", c.ID(), "user_id", c.UserID(), "reason", reason, "err", err)
}
