// Package broadcaster fans out topic-addressed events to subscribed WebSocket clients.
// Grounded on the pack's fanout server (Agentchow-HFTKalshiGo/internal/fanout), which the
// teacher has no equivalent of; adopted wholesale since the teacher carries no WebSocket
// transport of its own. spec.md §4.6: topics are scrape_progress, odds_updates,
// risk_alerts, unmapped_alerts.
package broadcaster

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	subscriberSendBuf = 256
	writeDeadline     = 5 * time.Second
	pongWait          = 30 * time.Second
	pingInterval      = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Publisher is the one-way dependency the write queue holds onto. Hub
// satisfies it; Noop satisfies it for tests and for runs with broadcasting disabled.
// spec.md §9 Design Note on one-way dependency, no cyclic references.
type Publisher interface {
	Publish(topic string, payload any)
}

// envelope is the wire shape of every message this hub sends, verbatim from spec.md §6:
// {type, timestamp, data}. Type carries the topic name the subscriber filtered on.
type envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Hub owns the set of connected subscribers and republishes topic payloads to every
// subscriber subscribed to that topic.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Subscriber]struct{})}
}

// Publish marshals payload and enqueues it to every subscriber subscribed to topic. A
// subscriber whose outbound buffer is full is dropped rather than blocking the publisher
// — the backpressure policy from spec.md §4.6.
func (h *Hub) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("broadcaster: marshal payload failed", "topic", topic, "error", err)
		return
	}
	env, err := json.Marshal(envelope{Type: topic, Timestamp: time.Now(), Data: data})
	if err != nil {
		slog.Error("broadcaster: marshal envelope failed", "topic", topic, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subscribers {
		if !s.wantsTopic(topic) {
			continue
		}
		select {
		case s.send <- env:
		default:
			delete(h.subscribers, s)
			if s.conn != nil {
				s.conn.Close()
			}
			slog.Warn("broadcaster: dropping slow subscriber", "topic", topic)
		}
	}
}

// HandleWS upgrades the connection and registers a Subscriber for the topics named in
// ?topics=a,b,c (all topics if omitted).
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("broadcaster: upgrade failed", "error", err)
		return
	}

	sub := newSubscriber(conn, parseTopics(r.URL.Query().Get("topics")))
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	go h.writePump(sub)
	go h.readPump(sub)
}

func (h *Hub) writePump(s *Subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.remove(s)
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-s.done:
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(s *Subscriber) {
	defer close(s.done)

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(s *Subscriber) {
	h.mu.Lock()
	delete(h.subscribers, s)
	h.mu.Unlock()
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func parseTopics(raw string) map[string]bool {
	if raw == "" {
		return nil // nil means "all topics", checked in wantsTopic
	}
	out := make(map[string]bool)
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				out[raw[start:i]] = true
			}
			start = i + 1
		}
	}
	return out
}
