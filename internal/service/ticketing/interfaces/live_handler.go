package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ticketing/internal/pkg/logger"
	"ticketing/internal/pkg/metrics"
	"ticketing/internal/service/ticketing/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// LiveHub fans TicketsIssued out to websocket subscribers of the same event.
// It implements port.TicketPublisher.
type LiveHub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*liveClient]struct{}
}

type liveClient struct {
	hub     *LiveHub
	eventID string
	conn    *websocket.Conn
	send    chan []byte
	once    sync.Once
}

func NewLiveHub() *LiveHub {
	return &LiveHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]map[*liveClient]struct{}),
	}
}

// PublishTicketsIssued never blocks; a subscriber whose buffer is full is disconnected.
func (h *LiveHub) PublishTicketsIssued(ctx context.Context, event domain.TicketsIssued) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.mu.RLock()
	var slow []*liveClient
	for c := range h.clients[event.EventID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Ctx(ctx).Warn().Str("event_id", c.eventID).Msg("dropping slow live subscriber")
		h.unregister(c)
	}
	return nil
}

// Subscribers returns the number of open connections for eventID.
func (h *LiveHub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[eventID])
}

// Close disconnects every subscriber.
func (h *LiveHub) Close(context.Context) error {
	h.mu.RLock()
	var all []*liveClient
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.unregister(c)
	}
	return nil
}

func (h *LiveHub) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request, eventID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &liveClient{hub: h, eventID: eventID, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(c)
	logger.Ctx(ctx).Info().Str("event_id", eventID).Msg("live subscriber connected")

	go c.writePump()
	go c.readPump()
}

func (h *LiveHub) register(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.eventID]
	if !ok {
		set = make(map[*liveClient]struct{})
		h.clients[c.eventID] = set
	}
	set[c] = struct{}{}
	metrics.LiveSubscribers.Inc()
}

func (h *LiveHub) unregister(c *liveClient) {
	c.once.Do(func() {
		h.mu.Lock()
		if set, ok := h.clients[c.eventID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.eventID)
			}
		}
		h.mu.Unlock()
		close(c.send)
		metrics.LiveSubscribers.Dec()
	})
}

// writePump owns every write to the connection.
func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				return
			}
		}
	}
}

// readPump discards client frames and notices disconnects.
func (c *liveClient) readPump() {
	defer c.hub.unregister(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *TicketingHandler) subscribeLive(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	h.live.serveWS(ctx, w, r, event.ID)
}
