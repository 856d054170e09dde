// Package ws maintains websocket subscribers and broadcasts alert
// payloads to them with per-client daily suppression.
package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fevolq/money/internal/cache"
	"github.com/fevolq/money/internal/core"
)

const clientKeyLength = 6

// Hub tracks connected clients and fans payloads out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	cache    *cache.Cache
	loc      *time.Location
	log      *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewHub(c *cache.Cache, loc *time.Location, log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		cache:   c,
		loc:     loc,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

type client struct {
	key  string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (c *client) write(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

// ServeHTTP upgrades the request, registers the client and echoes its
// frames until the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		key:  core.ShortHash(fmt.Sprintf("%s %d", r.RemoteAddr, h.now().UnixNano()), clientKeyLength),
		conn: conn,
	}
	h.register(c)
	defer h.unregister(c)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var data map[string]any
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}
		if err := c.write(data); err != nil {
			return
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.key] = c
	h.mu.Unlock()

	h.log.Info("register ws", zap.String("client", c.key))
	h.Broadcast(userFrame(h.Count()))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.key)
	h.mu.Unlock()
	c.conn.Close()

	h.log.Info("unregister ws", zap.String("client", c.key))
	h.Broadcast(userFrame(h.Count()))
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers a payload to every client.
func (h *Hub) Broadcast(payload any) {
	h.each(func(c *client) {
		if err := c.write(payload); err != nil {
			h.log.Warn("ws send failed", zap.String("client", c.key), zap.Error(err))
		}
	})
}

// BroadcastDedup delivers a payload to every client that has not yet
// received key today. Suppression is per client per day.
func (h *Hub) BroadcastDedup(payload any, key string) {
	h.each(func(c *client) {
		cacheKey := fmt.Sprintf("client:%s:%s", c.key, key)
		if h.cache.Exists(cacheKey) {
			return
		}
		if err := c.write(payload); err != nil {
			h.log.Warn("ws send failed", zap.String("client", c.key), zap.Error(err))
			return
		}
		h.cache.SetExpireToday(cacheKey, true, h.loc)
	})
}

func (h *Hub) each(fn func(*client)) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		fn(c)
	}
}

func userFrame(count int) map[string]any {
	return map[string]any{"type": "user", "value": count}
}
