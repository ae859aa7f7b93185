// Package stream broadcasts timeline events to attached websocket clients
// so a dashboard can watch a scenario as it runs.
package stream

import (
    "context"
    "log"
    "net/http"
    "sync"
    "time"

    "github.com/gorilla/websocket"

    "github.com/clusterlab/sentinel-harness/pkg/internal/logutil"
    "github.com/clusterlab/sentinel-harness/pkg/timeline"
)

const writeWait = 5 * time.Second

// Hub fans timeline events out to websocket subscribers. Delivery is
// best-effort: a client that cannot keep up is dropped, never the run.
type Hub struct {
    upgrader websocket.Upgrader
    logger   *log.Logger

    mu      sync.Mutex
    clients map[*websocket.Conn]struct{}
}

// NewHub constructs a hub. logger may be nil.
func NewHub(logger *log.Logger) *Hub {
    return &Hub{
        upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
        logger:   logger,
        clients:  make(map[*websocket.Conn]struct{}),
    }
}

// ServeHTTP upgrades the request and registers the client. The read loop
// exists only to notice the peer going away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
    conn, err := h.upgrader.Upgrade(w, r, nil)
    if err != nil {
        logutil.Warnf(h.logger, "stream: upgrade: %v", err)
        return
    }
    h.mu.Lock()
    h.clients[conn] = struct{}{}
    h.mu.Unlock()
    go func() {
        for {
            if _, _, err := conn.ReadMessage(); err != nil {
                h.drop(conn)
                return
            }
        }
    }()
}

func (h *Hub) drop(conn *websocket.Conn) {
    h.mu.Lock()
    if _, ok := h.clients[conn]; ok {
        delete(h.clients, conn)
        _ = conn.Close()
    }
    h.mu.Unlock()
}

// Broadcast sends one event to every client as JSON.
func (h *Hub) Broadcast(e timeline.Event) {
    h.mu.Lock()
    conns := make([]*websocket.Conn, 0, len(h.clients))
    for c := range h.clients {
        conns = append(conns, c)
    }
    h.mu.Unlock()
    for _, c := range conns {
        _ = c.SetWriteDeadline(time.Now().Add(writeWait))
        if err := c.WriteJSON(e); err != nil {
            h.drop(c)
        }
    }
}

// Run pumps events from the channel until ctx is done, then closes every
// client.
func (h *Hub) Run(ctx context.Context, events <-chan timeline.Event) {
    for {
        select {
        case <-ctx.Done():
            h.mu.Lock()
            for c := range h.clients {
                _ = c.Close()
                delete(h.clients, c)
            }
            h.mu.Unlock()
            return
        case e, ok := <-events:
            if !ok {
                return
            }
            h.Broadcast(e)
        }
    }
}
