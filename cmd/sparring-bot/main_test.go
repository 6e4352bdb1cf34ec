package main

import (
	"testing"

	"claw-colosseum/internal/ws"
)

func TestBotRequeuesAfterMatch(t *testing.T) {
	var sent []ws.ClientMessage
	b := &bot{agentID: "a1", send: func(m ws.ClientMessage) error {
		sent = append(sent, m)
		return nil
	}}
	if err := b.join(); err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(sent) != 1 || sent[0].Type != ws.TypeQueueJoin || sent[0].AgentID != "a1" {
		t.Fatalf("unexpected join: %+v", sent)
	}

	for _, typ := range []string{"queue:joined", "match:found", "match:start", "match:metrics", ws.TypePong} {
		if b.handle(ws.ServerMessage{Type: typ}) {
			t.Fatalf("%s should not trigger a re-queue", typ)
		}
	}
	if !b.handle(ws.ServerMessage{Type: "match:end"}) || !b.handle(ws.ServerMessage{Type: "match:failed"}) {
		t.Fatal("finished matches should trigger a re-queue")
	}
	if b.matches != 2 {
		t.Fatalf("matches = %d, want 2", b.matches)
	}
}
