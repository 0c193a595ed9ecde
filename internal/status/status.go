package status

import "sync"

// Publisher receives status strings.
type Publisher interface {
	Publish(status string)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(status string)

func (f PublisherFunc) Publish(status string) { f(status) }

// Hub fans each status out to its subscribers and retains the last one,
// like a retained broker message. Subscribers must not block: a slow
// consumer drops messages rather than stalling the control loop.
type Hub struct {
	mu     sync.RWMutex
	last   string
	has    bool
	nextID int
	subs   map[int]Publisher
}

// NewHub creates a hub with the given initial subscribers.
func NewHub(pubs ...Publisher) *Hub {
	h := &Hub{subs: make(map[int]Publisher)}
	for _, p := range pubs {
		h.Subscribe(p)
	}
	return h
}

// Subscribe adds p and returns a function that removes it.
func (h *Hub) Subscribe(p Publisher) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = p
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish retains status and forwards it to every subscriber.
func (h *Hub) Publish(status string) {
	h.mu.Lock()
	h.last = status
	h.has = true
	subs := make([]Publisher, 0, len(h.subs))
	for _, p := range h.subs {
		subs = append(subs, p)
	}
	h.mu.Unlock()

	for _, p := range subs {
		p.Publish(status)
	}
}

// Last returns the retained status, if any has been published.
func (h *Hub) Last() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.has
}
