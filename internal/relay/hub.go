package relay

import "sync"

// Hub fans messages out to any number of subscribers (WebSocket writers).
// It keeps the most recent position so new subscribers get an immediate
// last-known-position sample. Slow subscribers drop messages rather than
// stall the fanout.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan []byte
	nextID int
	buffer int
	last   []byte
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 8
	}
	return &Hub{
		subs:   make(map[int]chan []byte),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. If a position has been seen, it is
// queued on the returned channel immediately. The channel is closed by
// Unsubscribe.
func (h *Hub) Subscribe() (int, <-chan []byte) {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	last := h.last
	h.mu.Unlock()
	if last != nil {
		ch <- last
	}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish sends msg to every subscriber. When position is true the message
// also becomes the retained last-known position.
func (h *Hub) Publish(msg []byte, position bool) {
	h.mu.Lock()
	if position {
		h.last = msg
	}
	subs := make([]chan []byte, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// LastPosition returns the retained position message, or nil before the
// first one arrives.
func (h *Hub) LastPosition() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Clients returns the current subscriber count.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
