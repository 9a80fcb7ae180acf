package messaging

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps a platform name to its delivery channel.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

func (r *Registry) Register(name string, ch Channel) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[name] = ch
}

func (r *Registry) Get(name string) (Channel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	ch, ok := r.channels[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", name)
	}
	return ch, nil
}
