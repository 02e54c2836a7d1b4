package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	maxFrameSize = 64 * 1024
	outboxSize   = 256
)

// Client is one WebSocket connection inside a session room.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	outbox    chan *Message
	SessionID string
	ClientID  string

	// Scene used to seed the room if this client creates it.
	seed url.Values
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID, clientID string, seed url.Values) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		outbox:    make(chan *Message, outboxSize),
		SessionID: sessionID,
		ClientID:  clientID,
		seed:      seed,
	}
}

// Serve registers the client and pumps the connection until either side
// goes away. Incoming messages are applied in arrival order.
func (c *Client) Serve(ctx context.Context) {
	c.hub.Register(c)
	go c.writeLoop(ctx)

	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxFrameSize)
	for {
		msg, err := c.read(ctx)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			slog.Warn("undecodable message", "error", err, "client", c.ClientID)
			c.Send(newMessage(TypeOpNack, NackPayload{Reason: "malformed message"}))
			continue
		case err != nil:
			if !closedNormally(err) {
				slog.Debug("read error", "error", err, "client", c.ClientID)
			}
			return
		}
		c.hub.handleMessage(c, msg)
	}
}

func (c *Client) read(ctx context.Context) (*Message, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	// Identity comes from the connection, never from the payload.
	msg.ClientID = c.ClientID
	msg.SessionID = c.SessionID
	return &msg, nil
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

func (c *Client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case msg, ok := <-c.outbox:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(wctx, c.conn, msg)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg for the client. A client whose outbox is full misses the
// message; the next scene.state brings it back in sync.
func (c *Client) Send(msg *Message) {
	select {
	case c.outbox <- msg:
	default:
		slog.Warn("client outbox full, dropping message", "client", c.ClientID, "type", msg.Type)
	}
}
