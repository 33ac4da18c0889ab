package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/milodocs/pagekit/eventbus"
)

// eventFrame is the wire shape for one bus event pushed over the websocket.
type eventFrame struct {
	Channel   string `json:"channel"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

const (
	eventBufferSize   = 64
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

// handleEvents upgrades the connection and streams every bus event to the
// client as JSON frames. Slow clients drop frames rather than stall the bus.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("event stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	frames := make(chan eventFrame, eventBufferSize)
	sub := s.bus.On(eventbus.ChannelAll, func(evt eventbus.Event) {
		frame := eventFrame{
			Channel:   evt.Channel,
			Payload:   evt.Payload,
			Timestamp: time.Now().UnixMilli(),
		}
		select {
		case frames <- frame:
		default:
			// Slow consumer: drop rather than block the emitter.
		}
	})
	defer sub.Cancel()

	// Reader goroutine: we ignore client frames but need the read loop to
	// detect disconnects and service control messages.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-frames:
			data, err := json.Marshal(frame)
			if err != nil {
				s.logger.Warn("event frame marshal failed", "channel", frame.Channel, "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
