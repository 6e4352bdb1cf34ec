package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"claw-colosseum/internal/matchmaking"
)

// Client is one socket. It doubles as the queue connection handle of the
// agent that joined through it.
type Client struct {
	srv  *Server
	conn *websocket.Conn
	out  chan []byte

	mu      sync.Mutex
	agentID string
	subs    map[string]func()
	closed  bool
}

func newClient(srv *Server, conn *websocket.Conn) *Client {
	return &Client{
		srv:  srv,
		conn: conn,
		out:  make(chan []byte, sendBuffer),
		subs: map[string]func(){},
	}
}

// Notify receives matchmaking events. A found match subscribes the client to
// the match feed so the participant sees the fight without asking; a match
// that fails before it is queued drops that subscription again.
func (c *Client) Notify(event string, payload any) {
	c.send(event, "", payload)
	m, _ := payload.(map[string]any)
	matchID, _ := m["matchId"].(string)
	if matchID == "" {
		return
	}
	switch event {
	case matchmaking.EventMatchFound:
		c.follow(matchID)
	case matchmaking.EventMatchFailed:
		c.unfollow(matchID)
	}
}

func (c *Client) setAgent(agentID string) {
	c.mu.Lock()
	c.agentID = agentID
	c.mu.Unlock()
}

func (c *Client) agent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agentID
}

func (c *Client) follow(matchID string) {
	c.mu.Lock()
	if c.closed || c.subs[matchID] != nil {
		c.mu.Unlock()
		return
	}
	ch, cancel := c.srv.feed.Subscribe(matchID)
	c.subs[matchID] = cancel
	c.mu.Unlock()

	go func() {
		for ev := range ch {
			c.send(ev.Event, ev.EventID, ev.Data)
		}
		c.mu.Lock()
		delete(c.subs, matchID)
		c.mu.Unlock()
		cancel()
	}()
}

func (c *Client) unfollow(matchID string) {
	c.mu.Lock()
	cancel := c.subs[matchID]
	delete(c.subs, matchID)
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Client) send(msgType, eventID string, data any) {
	raw, err := json.Marshal(ServerMessage{
		Type:            msgType,
		ProtocolVersion: ProtocolVersion,
		TimestampMS:     time.Now().UnixMilli(),
		EventID:         eventID,
		Data:            data,
	})
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- raw:
	default:
		metricWSDroppedMessages.Add(1)
	}
}

func (c *Client) sendError(code, message string) {
	c.send(TypeError, "", ErrorData{Code: code, Message: message})
}

func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = map[string]func(){}
	close(c.out)
	c.mu.Unlock()
	for _, cancel := range subs {
		cancel()
	}
	_ = c.conn.Close()
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
