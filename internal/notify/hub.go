// Package notify delivers registration facts to connected websocket
// clients. Clients join one room per event; every client also receives the
// reduced list update.
package notify

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Frame types sent to clients.
const (
	FrameConnected   = "connected"
	FrameEventUpdate = "event-update"
	FrameListUpdate  = "events-list-update"
	FrameJoined      = "joined-event"
	FrameLeft        = "left-event"
	FrameError       = "error"
)

// DefaultBuffer is the number of frames queued per subscriber before new
// frames are dropped.
const DefaultBuffer = 64

// Frame is the JSON envelope written to websocket clients.
type Frame struct {
	Type      string `json:"type"`
	EventID   int64  `json:"eventId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Subscriber is one connected client.
type Subscriber struct {
	ID  string
	out chan []byte
}

// C returns the frames queued for this subscriber. It is closed by
// Unregister.
func (s *Subscriber) C() <-chan []byte {
	return s.out
}

// Hub tracks subscribers and the event rooms they joined.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]map[int64]struct{}
	rooms  map[int64]map[*Subscriber]struct{}
	buffer int
	log    *zap.Logger

	dropped atomic.Int64
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// NewHub constructs an empty Hub.
func NewHub(log *zap.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		subs:   make(map[*Subscriber]map[int64]struct{}),
		rooms:  make(map[int64]map[*Subscriber]struct{}),
		buffer: DefaultBuffer,
		log:    log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a subscriber that receives list updates.
func (h *Hub) Register() *Subscriber {
	s := &Subscriber{ID: uuid.NewString(), out: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.subs[s] = make(map[int64]struct{})
	h.mu.Unlock()
	return s
}

// Unregister removes s from every room and closes its queue.
func (h *Hub) Unregister(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.subs[s]
	if !ok {
		return
	}
	for eventID := range joined {
		h.removeFromRoom(s, eventID)
	}
	delete(h.subs, s)
	close(s.out)
}

// Join adds s to the room of eventID.
func (h *Hub) Join(s *Subscriber, eventID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.subs[s]
	if !ok {
		return
	}
	room, ok := h.rooms[eventID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[eventID] = room
	}
	room[s] = struct{}{}
	joined[eventID] = struct{}{}
}

// Leave removes s from the room of eventID.
func (h *Hub) Leave(s *Subscriber, eventID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if joined, ok := h.subs[s]; ok {
		delete(joined, eventID)
	}
	h.removeFromRoom(s, eventID)
}

func (h *Hub) removeFromRoom(s *Subscriber, eventID int64) {
	room, ok := h.rooms[eventID]
	if !ok {
		return
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.rooms, eventID)
	}
}

// RoomSize returns the number of subscribers watching eventID.
func (h *Hub) RoomSize(eventID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// Dropped returns how many frames were discarded for slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Publish sends an event-update frame to the room of n.EventID and an
// events-list-update frame to every subscriber. It never blocks.
func (h *Hub) Publish(n model.Notification) {
	update, err := json.Marshal(Frame{Type: FrameEventUpdate, EventID: n.EventID, Data: n})
	if err != nil {
		h.log.Error("encode event update", zap.Error(err))
		return
	}
	list, err := json.Marshal(Frame{Type: FrameListUpdate, EventID: n.EventID, Data: n.ListUpdate()})
	if err != nil {
		h.log.Error("encode list update", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.rooms[n.EventID] {
		h.offer(s, update)
	}
	for s := range h.subs {
		h.offer(s, list)
	}
}

// send queues a single frame for s.
func (h *Hub) send(s *Subscriber, f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		h.log.Error("encode frame", zap.String("type", f.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.subs[s]; ok {
		h.offer(s, b)
	}
}

// offer must be called with h.mu held.
func (h *Hub) offer(s *Subscriber, b []byte) {
	select {
	case s.out <- b:
	default:
		h.dropped.Add(1)
		h.log.Debug("subscriber queue full, frame dropped", zap.String("session_id", s.ID))
	}
}
