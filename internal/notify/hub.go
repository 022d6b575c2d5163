// Package notify pushes refresh events to connected POS terminals over
// websockets. Events carry no record data: terminals refetch what they show.
package notify

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"tailor-pos/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	InventoryChanged = "inventory.changed"
	CustomersChanged = "customers.changed"
	SaleCreated      = "sales.created"
	SaleUpdated      = "sales.updated"
	LowStock         = "stock.low"
	CatalogChanged   = "catalog.changed"
)

type Event struct {
	Type     string    `json:"type"`
	BranchID string    `json:"branch_id,omitempty"`
	IDs      []string  `json:"ids,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher is what services hold; *Hub implements it
type Publisher interface {
	Publish(ev Event)
}

type Hub struct {
	clients    map[*websocket.Conn]string // conn -> branch filter, "" for all
	clientsMux sync.Mutex
	broadcast  chan Event
	upgrader   websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]string),
		broadcast: make(chan Event, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Publish never blocks the caller; a full queue drops the event
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("[Notify] queue full, dropping %s event", ev.Type)
	}
}

// Run fans events out until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.broadcast:
			h.send(ev)
		}
	}
}

func (h *Hub) send(ev Event) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for conn, branch := range h.clients {
		if branch != "" && ev.BranchID != "" && branch != ev.BranchID {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
	metrics.WebsocketClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	metrics.WebsocketClients.Set(0)
}

// ClientCount is used by the detailed health check
func (h *Hub) ClientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away. ?branch= limits events to one branch.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Notify] websocket upgrade error:", err)
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = r.URL.Query().Get("branch")
	metrics.WebsocketClients.Set(float64(len(h.clients)))
	h.clientsMux.Unlock()

	// terminals never send anything; reading detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			metrics.WebsocketClients.Set(float64(len(h.clients)))
			h.clientsMux.Unlock()
			break
		}
	}
}

// Recorder collects events in memory. Tests use it in place of a Hub.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Type
	}
	return out
}
