package status

import (
	"sync"
	"testing"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) Publish(s string) {
	r.mu.Lock()
	r.got = append(r.got, s)
	r.mu.Unlock()
}

func TestHub_RetainsLast(t *testing.T) {
	h := NewHub()
	if _, ok := h.Last(); ok {
		t.Fatal("new hub should have no retained status")
	}

	h.Publish("10")
	h.Publish("12.")

	last, ok := h.Last()
	if !ok || last != "12." {
		t.Errorf("Last() = %q, %v; want \"12.\", true", last, ok)
	}
}

func TestHub_FanOut(t *testing.T) {
	r1, r2 := &recorder{}, &recorder{}
	h := NewHub(r1)
	h.Subscribe(r2)

	h.Publish("30")

	for i, r := range []*recorder{r1, r2} {
		if len(r.got) != 1 || r.got[0] != "30" {
			t.Errorf("subscriber %d got %v", i, r.got)
		}
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	r := &recorder{}
	h := NewHub()
	unsub := h.Subscribe(r)

	h.Publish("1")
	unsub()
	h.Publish("2")

	if len(r.got) != 1 {
		t.Errorf("expected 1 message after unsubscribe, got %v", r.got)
	}
}

func TestPublisherFunc(t *testing.T) {
	var got string
	h := NewHub(PublisherFunc(func(s string) { got = s }))
	h.Publish("42.")
	if got != "42." {
		t.Errorf("got %q, want \"42.\"", got)
	}
}
