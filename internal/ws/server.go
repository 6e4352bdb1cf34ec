// Package ws is the WebSocket surface for agents and spectators: queue
// control, match subscriptions and the periodic queue broadcast.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"claw-colosseum/internal/agentgateway/stream"
	appqueue "claw-colosseum/internal/app/queue"
	"claw-colosseum/internal/matchmaking"
)

var (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

const (
	sendBuffer   = 64
	maxReadBytes = 4096
)

// MatchFeed is the live side of the spectator hub.
type MatchFeed interface {
	Subscribe(matchID string) (<-chan stream.StreamEvent, func())
}

type Server struct {
	queue    *appqueue.Service
	feed     MatchFeed
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewServer(queue *appqueue.Service, feed MatchFeed) *Server {
	return &Server{
		queue:    queue,
		feed:     feed,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*Client]struct{}{},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(s, conn)
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	metricWSConnectionsTotal.Add(1)
	metricWSConnectionsActive.Add(1)

	go c.writeLoop()
	s.readLoop(r.Context(), c)
}

func (s *Server) readLoop(ctx context.Context, c *Client) {
	defer s.unregister(c)

	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid_json", err.Error())
			continue
		}
		s.handle(ctx, c, msg)
	}
}

func (s *Server) handle(ctx context.Context, c *Client, msg ClientMessage) {
	switch msg.Type {
	case TypeQueueJoin:
		ticket, err := s.queue.Join(context.WithoutCancel(ctx), msg.AgentID, c)
		if err != nil {
			c.sendError(errorCode(err), "")
			return
		}
		c.setAgent(ticket.AgentID)
		c.send(TypeQueueStatus, "", ticket)
	case TypeQueueLeave:
		agentID := c.agent()
		if agentID == "" {
			agentID = msg.AgentID
		}
		res, err := s.queue.Leave(agentID)
		if err != nil {
			c.sendError(errorCode(err), "")
			return
		}
		c.send(TypeQueueStatus, "", res)
	case TypeQueueStatus:
		c.send(TypeQueueStatus, "", s.queue.Status())
	case TypeMatchJoin, TypeSpectateJoin:
		if msg.MatchID == "" {
			c.sendError("invalid_request", "matchId is required")
			return
		}
		c.follow(msg.MatchID)
	case TypeMatchLeave, TypeSpectateLeave:
		c.unfollow(msg.MatchID)
	case TypePing:
		c.send(TypePong, "", map[string]any{"timestamp": time.Now().UnixMilli()})
	default:
		c.sendError("unknown_type", msg.Type)
	}
}

// unregister tears a client down. An agent still waiting in the queue is
// removed, since nobody would receive its match notification.
func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if !ok {
		return
	}
	metricWSConnectionsActive.Add(-1)
	if agentID := c.agent(); agentID != "" {
		if res, err := s.queue.Leave(agentID); err == nil && res.Removed {
			metricWSDisconnectLeaves.Add(1)
			log.Info().Str("agent_id", agentID).Msg("dequeued disconnected agent")
		}
	}
	c.close()
}

// StartQueueBroadcast pushes queue:update to every connected client on each
// interval until ctx is done.
func (s *Server) StartQueueBroadcast(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Broadcast(TypeQueueUpdate, s.queue.Status())
			}
		}
	}()
}

func (s *Server) Broadcast(msgType string, data any) {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		c.send(msgType, "", data)
	}
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, appqueue.ErrInvalidRequest), errors.Is(err, matchmaking.ErrInvalidEntrant):
		return "invalid_request"
	case errors.Is(err, appqueue.ErrAgentNotFound):
		return "agent_not_found"
	default:
		return "internal_error"
	}
}
