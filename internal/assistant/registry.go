package assistant

import (
	"sort"
	"sync"
)

const (
	// Title and Greeting label the assistant panel.
	Title    = "News Assistant"
	Greeting = "Hi! 👋 Need help understanding a news topic?"
)

// Fact is one piece of readable context shared with the assistant.
type Fact struct {
	Key         string
	Description string
	Value       string
}

// Registry holds the facts the assistant can read. Publishing a fact with an
// existing key replaces it. Safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	facts       map[string]Fact
	subscribers []chan Fact
}

func NewRegistry() *Registry {
	return &Registry{facts: make(map[string]Fact)}
}

// Publish stores fact and forwards it to subscribers. A subscriber that has
// not drained its previous update gets the newer one instead.
func (r *Registry) Publish(fact Fact) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.facts[fact.Key] = fact
	for _, ch := range r.subscribers {
		select {
		case ch <- fact:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- fact:
			default:
			}
		}
	}
}

// Lookup returns the fact stored under key.
func (r *Registry) Lookup(key string) (Fact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.facts[key]
	return f, ok
}

// Facts returns all facts ordered by key.
func (r *Registry) Facts() []Fact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Fact, 0, len(r.facts))
	for _, f := range r.facts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Subscribe returns a channel receiving every subsequent Publish.
func (r *Registry) Subscribe() <-chan Fact {
	ch := make(chan Fact, 1)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()
	return ch
}
