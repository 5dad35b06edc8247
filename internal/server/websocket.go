package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/logging"
	"github.com/muurk/yeesearch/internal/search"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Events buffered per subscriber before it is considered too slow
	sendBuffer = 32
)

// Event is one message on the /api/events stream
type Event struct {
	Type  string     `json:"type"`
	Time  time.Time  `json:"time"`
	Light light.Info `json:"light"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// subscriber is one websocket client
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans events out to every subscriber. Slow subscribers are dropped
// rather than allowed to stall discovery.
type hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[*subscriber]struct{})}
}

func (h *hub) add(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}

func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- data:
		default:
			logging.Warn("Dropping slow event subscriber", zap.String("remote_addr", sub.conn.RemoteAddr().String()))
			delete(h.subscribers, sub)
			close(sub.send)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// publishFound is the search found observer
func (s *Server) publishFound(d search.Device) {
	data, err := json.Marshal(Event{Type: "found", Time: time.Now(), Light: d.Info()})
	if err != nil {
		logging.Error("Failed to encode found event", zap.Error(err))
		return
	}
	s.hub.broadcast(data)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	s.hub.add(sub)
	logging.Info("Event subscriber connected", zap.String("remote_addr", r.RemoteAddr))

	go s.writePump(sub)
	s.readPump(sub)
}

// readPump discards client messages and detects disconnects
func (s *Server) readPump(sub *subscriber) {
	defer func() {
		s.hub.remove(sub)
		_ = sub.conn.Close()
		logging.Info("Event subscriber disconnected", zap.String("remote_addr", sub.conn.RemoteAddr().String()))
	}()

	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on the connection
func (s *Server) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
