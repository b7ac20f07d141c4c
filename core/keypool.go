package core

import "sync"

// KeyPool hands out API keys round-robin. A pool is safe for concurrent use
// and is injected into the HTTP clients that need key rotation; there is no
// package-level pool.
type KeyPool struct {
	mu   sync.Mutex
	keys []string
	next int
}

func NewKeyPool(keys ...string) *KeyPool {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &KeyPool{keys: cp}
}

// Next returns the next key in rotation, or "" when the pool is empty.
func (p *KeyPool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return ""
	}
	key := p.keys[p.next]
	p.next = (p.next + 1) % len(p.keys)
	return key
}

func (p *KeyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
