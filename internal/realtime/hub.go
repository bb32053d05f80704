// Package realtime is the room-based fan-out channel: clients join a room
// keyed by class id and receive attendance updates and chat messages
// broadcast to it. Delivery is best effort and at most once; clients treat
// a reconnect as "refetch full state" through the REST endpoints.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"schoolattend/internal/queue"
)

var (
	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolattend_realtime_broadcasts_total",
		Help: "Events broadcast to realtime rooms, by event type.",
	}, []string{"event"})
	sessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schoolattend_realtime_sessions",
		Help: "Currently connected realtime sessions.",
	})
)

// envelope is the wire frame for both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Hub tracks sessions and their room subscriptions.
type Hub struct {
	signingKey string
	issuer     string

	mu    sync.RWMutex
	rooms map[string]map[*session]struct{}
}

// NewHub creates an empty hub. Tokens presented on connect are verified
// with the same signing key as the REST surface.
func NewHub(signingKey, issuer string) *Hub {
	return &Hub{
		signingKey: signingKey,
		issuer:     issuer,
		rooms:      make(map[string]map[*session]struct{}),
	}
}

// Run feeds bus events into room broadcasts until the context ends.
func (h *Hub) Run(ctx context.Context, bus queue.Queue) error {
	msgs, err := bus.Consume(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.Broadcast(msg.Room, msg.Type, msg.Body)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Broadcast sends an event to every session currently in the room. Sessions
// whose send buffer is full are dropped rather than blocking the rest.
func (h *Hub) Broadcast(room, event string, data []byte) {
	env := envelope{Event: event, Data: data}

	h.mu.RLock()
	var stale []*session
	for s := range h.rooms[room] {
		select {
		case s.send <- env:
		default:
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		log.Warn().Str("room", room).Msg("dropping slow realtime session")
		h.drop(s)
	}
	broadcastsTotal.WithLabelValues(event).Inc()
}

// join subscribes a session to a room. A session may join several rooms
// over its lifetime.
func (h *Hub) join(s *session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*session]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
	s.rooms[room] = struct{}{}
}

// drop removes a session from every room and closes its send channel.
func (h *Hub) drop(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for room := range s.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(s.send)
	sessionsGauge.Dec()
}

// handle dispatches one inbound client event.
func (h *Hub) handle(s *session, env envelope) {
	switch env.Event {
	case "joinClass":
		var d struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(env.Data, &d); err == nil && d.Room != "" {
			h.join(s, d.Room)
		}
	case "attendanceMarked":
		// Client-originated save echo: rebroadcast verbatim to the class room.
		var d struct {
			ClassRoom string `json:"classRoom"`
		}
		if err := json.Unmarshal(env.Data, &d); err == nil && d.ClassRoom != "" {
			h.Broadcast(d.ClassRoom, "attendanceUpdate", env.Data)
		}
	case "classMessage":
		// Chat is relayed, never persisted; ordering is arrival order.
		var d struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(env.Data, &d); err == nil && d.Room != "" {
			h.Broadcast(d.Room, "classMessage", env.Data)
		}
	}
}
