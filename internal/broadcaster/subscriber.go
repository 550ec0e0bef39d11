package broadcaster

import "github.com/gorilla/websocket"

// Subscriber is one connected WebSocket client's write pump state, filtered to the topics
// it asked for at connect time.
type Subscriber struct {
	conn   *websocket.Conn
	topics map[string]bool // nil == subscribed to every topic
	send   chan []byte
	done   chan struct{}
}

func newSubscriber(conn *websocket.Conn, topics map[string]bool) *Subscriber {
	return &Subscriber{
		conn:   conn,
		topics: topics,
		send:   make(chan []byte, subscriberSendBuf),
		done:   make(chan struct{}),
	}
}

func (s *Subscriber) wantsTopic(topic string) bool {
	if s.topics == nil {
		return true
	}
	return s.topics[topic]
}
