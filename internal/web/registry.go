package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kyaoi/webcode/internal/embed"
)

// instance is one page view. Its mutex serializes clicks on the state.
type instance struct {
	mu      sync.Mutex
	id      string
	state   *embed.WidgetState
	created time.Time
}

// registry holds the live instances, dropping the oldest beyond limit.
type registry struct {
	mu    sync.Mutex
	limit int
	items map[string]*instance
	order []string
}

func newRegistry(limit int) *registry {
	return &registry{limit: limit, items: make(map[string]*instance)}
}

func (r *registry) add(state *embed.WidgetState) *instance {
	inst := &instance{id: uuid.NewString(), state: state, created: time.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.order) >= r.limit {
		delete(r.items, r.order[0])
		r.order = r.order[1:]
	}
	r.items[inst.id] = inst
	r.order = append(r.order, inst.id)
	return inst
}

func (r *registry) get(id string) (*instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.items[id]
	return inst, ok
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
