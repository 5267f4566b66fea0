// Package broadcast fans out leadgen progress events to subscribed clients,
// scoped per tenant (spec.md §4.7 / §6 "Broadcaster").
package broadcast

import (
	"encoding/json"
	"sync"

	"leadgen-pipeline/internal/leadgen"
	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// Client receives marshaled events for a single tenant subscription.
type Client struct {
	tenantID string
	send     chan []byte
}

// Hub is an in-process, per-tenant fan-out broadcaster — generalizes the
// teacher's JobWSHub from "one global client set" to "one client set per
// tenant", since leadgen progress is scoped to the tenant that started the
// job.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  types.Logger
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logging.GetGlobalLogger(),
	}
}

// Broadcast implements leadgen.Broadcaster. Delivery is fire-and-forget: a
// client whose send buffer is full is dropped rather than blocking the
// driver.
func (h *Hub) Broadcast(tenantID string, event leadgen.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to marshal leadgen event", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	clients := h.clients[tenantID]
	var slow []*Client
	for c := range clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			h.removeLocked(c)
		}
		h.mu.Unlock()
	}
}

// Subscribe registers a new client for tenantID and returns it. Callers
// must call Unsubscribe when the connection ends.
func (h *Hub) Subscribe(tenantID string) *Client {
	c := &Client{tenantID: tenantID, send: make(chan []byte, 256)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tenantID] == nil {
		h.clients[tenantID] = make(map[*Client]struct{})
	}
	h.clients[tenantID][c] = struct{}{}
	return c
}

// Unsubscribe removes a client and closes its send channel.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	clients, ok := h.clients[c.tenantID]
	if !ok {
		return
	}
	if _, ok := clients[c]; ok {
		delete(clients, c)
		close(c.send)
	}
	if len(clients) == 0 {
		delete(h.clients, c.tenantID)
	}
}

// ClientCount returns the number of subscribers for tenantID.
func (h *Hub) ClientCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}
