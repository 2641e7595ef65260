package circuitbreaker

import "sync"

// Registry manages per-endpoint Breaker instances.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   Config
}

// NewRegistry creates a new circuit breaker registry with the given config.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   cfg,
	}
}

// Get returns the breaker for the given endpoint, or nil if none exists.
func (r *Registry) Get(endpoint string) *Breaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[endpoint]
}

// GetOrCreate returns the breaker for endpoint, creating one if needed.
func (r *Registry) GetOrCreate(endpoint string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[endpoint]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[endpoint]; ok {
		return b
	}
	b = NewBreaker(r.config)
	r.breakers[endpoint] = b
	return b
}

// States returns a snapshot of every known endpoint's breaker state.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	out := make(map[string]State, len(r.breakers))
	for k, b := range r.breakers {
		out[k] = b.State()
	}
	r.mu.RUnlock()
	return out
}
