package apihttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsQueueSize  = 16
)

// wsEvent is the frame pushed to subscribers.
type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// catalogEvent announces that a new catalog table is live.
type catalogEvent struct {
	Generation uint64 `json:"generation"`
	Entries    int    `json:"entries"`
}

type wsSubscriber struct {
	conn  *websocket.Conn
	queue chan []byte
}

// wsHub fans catalog events out to websocket subscribers. A subscriber
// whose queue is full is disconnected rather than slowing the others.
type wsHub struct {
	mu     sync.Mutex
	subs   map[*wsSubscriber]struct{}
	closed bool
	logger *slog.Logger
}

func newWSHub(logger *slog.Logger) *wsHub {
	return &wsHub{
		subs:   make(map[*wsSubscriber]struct{}),
		logger: logger,
	}
}

// attach starts serving conn. It reports false once the hub is closed.
func (h *wsHub) attach(conn *websocket.Conn) bool {
	sub := &wsSubscriber{conn: conn, queue: make(chan []byte, wsQueueSize)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.subs[sub] = struct{}{}
	total := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("ws subscriber attached", slog.Int("total", total))
	go h.writeLoop(sub)
	go h.readLoop(sub)
	return true
}

// detach removes sub and closes its queue; the write loop then says
// goodbye and closes the connection.
func (h *wsHub) detach(sub *wsSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(sub)
}

func (h *wsHub) detachLocked(sub *wsSubscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.queue)
}

func (h *wsHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast queues a typed JSON event for every subscriber.
func (h *wsHub) Broadcast(eventType string, data any) {
	payload, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("ws marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.queue <- payload:
		default:
			h.logger.Debug("ws subscriber too slow, dropping")
			h.detachLocked(sub)
		}
	}
}

// Close disconnects every subscriber and refuses new ones. Safe to call
// more than once.
func (h *wsHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		h.detachLocked(sub)
	}
}

func (h *wsHub) writeLoop(sub *wsSubscriber) {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		_ = sub.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-sub.queue:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.detach(sub)
				return
			}
		case <-ping.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.detach(sub)
				return
			}
		}
	}
}

// readLoop only services control frames; subscribers never send commands.
func (h *wsHub) readLoop(sub *wsSubscriber) {
	defer h.detach(sub)
	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newUpgrader(allowOrigin func(string) bool) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowOrigin(origin)
		},
	}
}
