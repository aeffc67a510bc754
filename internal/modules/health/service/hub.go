package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	hubBacklog = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub: живая лента решений и сделок по websocket.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, hubBacklog),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					_ = c.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// send не блокирует цикл: если лента не успевает, кадр выбрасывается.
func (h *Hub) send(kind string, data any) {
	b, err := sonic.Marshal(frame{Type: kind, Data: data})
	if err != nil {
		logger.Error("[WS] marshal %s: %v", kind, err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		logger.Warn("[WS] backlog full, %s frame dropped", kind)
	}
}

func (h *Hub) Publish(d models.Decision) { h.send("decision", d) }

func (h *Hub) Record(_ context.Context, rec models.TradeRecord) error {
	h.send("trade", rec)
	return nil
}

// Serve апгрейдит соединение и держит его до первой ошибки чтения.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[WS] upgrade: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				h.mu.Lock()
				if h.clients[conn] {
					delete(h.clients, conn)
					_ = conn.Close()
				}
				h.mu.Unlock()
				return
			}
		}
	}()
}
