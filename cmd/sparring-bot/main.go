// Command sparring-bot queues one agent over WebSocket and re-queues it after
// every match, which keeps a local arena busy for testing.
package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"claw-colosseum/internal/config"
	"claw-colosseum/internal/logging"
	"claw-colosseum/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pingEvery    = 20 * time.Second
	requeueAfter = 2 * time.Second
)

func main() {
	config.LoadDotEnv()
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("bot config invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	// gorilla allows one concurrent writer.
	var writeMu sync.Mutex
	b := &bot{agentID: cfg.AgentID, send: func(msg ws.ClientMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}}
	if err := b.join(); err != nil {
		log.Fatal().Err(err).Msg("queue join failed")
	}
	go b.keepAlive(ctx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("connection lost")
			}
			return
		}
		var msg ws.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("unreadable server message")
			continue
		}
		if b.handle(msg) {
			time.AfterFunc(requeueAfter, func() {
				if err := b.join(); err != nil {
					log.Error().Err(err).Msg("re-queue failed")
				}
			})
		}
	}
}

type bot struct {
	agentID string
	send    func(ws.ClientMessage) error
	matches int
}

func (b *bot) join() error {
	return b.send(ws.ClientMessage{Type: ws.TypeQueueJoin, AgentID: b.agentID})
}

func (b *bot) keepAlive(ctx context.Context) {
	t := time.NewTicker(pingEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := b.send(ws.ClientMessage{Type: ws.TypePing}); err != nil {
				return
			}
		}
	}
}

// handle logs msg and reports whether the bot should queue again.
func (b *bot) handle(msg ws.ServerMessage) bool {
	ev := log.Info().Str("type", msg.Type)
	if msg.EventID != "" {
		ev = ev.Str("event_id", msg.EventID)
	}
	switch msg.Type {
	case ws.TypePong, ws.TypeQueueUpdate, "match:metrics", "match:event":
		return false
	case "match:end", "match:failed":
		b.matches++
		ev.Int("matches_played", b.matches).Interface("data", msg.Data).Msg("match over")
		return true
	case ws.TypeError:
		log.Warn().Interface("data", msg.Data).Msg("server error")
		return false
	default:
		ev.Interface("data", msg.Data).Msg("event")
		return false
	}
}
