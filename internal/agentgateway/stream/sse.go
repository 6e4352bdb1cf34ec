package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrStreamUnsupported = errors.New("stream_not_supported")

// SetSSEHeaders disables proxy buffering and caching for an event stream.
func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
}

func WriteSSE(w http.ResponseWriter, ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.EventID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.EventID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

// Serve writes buf to w as server-sent events: first whatever the buffer can
// replay after the request's Last-Event-ID, then live events and a ping every
// pingEvery. It returns when the client goes away or buf is closed.
func Serve(w http.ResponseWriter, r *http.Request, buf *EventBuffer, topic string, pingEvery time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamUnsupported
	}
	SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	var sent int64
	for _, ev := range buf.ReplayAfter(r.Header.Get("Last-Event-ID")) {
		if err := WriteSSE(w, ev); err != nil {
			return nil
		}
		sent = eventSeq(ev)
	}
	flusher.Flush()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if eventSeq(ev) <= sent {
				continue
			}
			if err := WriteSSE(w, ev); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ticker.C:
			now := time.Now().UnixMilli()
			ping := StreamEvent{Event: "ping", Topic: topic, ServerTS: now, Data: map[string]any{"ts": now}}
			if err := WriteSSE(w, ping); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
