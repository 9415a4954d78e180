package rest

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type poolKey struct {
	baseURL string
	creds   Credentials
}

// Pool hands out one shared Client per (base URL, credential) pair. It is
// process-wide: every caller asking for the same pair observes the same
// cache and retry state.
type Pool struct {
	mu      sync.Mutex
	clients map[poolKey]*Client
	ttl     time.Duration
	logger  *zap.Logger
}

func NewPool(ttl time.Duration, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		clients: map[poolKey]*Client{},
		ttl:     ttl,
		logger:  logger,
	}
}

// Client returns the shared client for the pair, creating it on first use.
func (p *Pool) Client(baseURL string, creds Credentials) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := poolKey{baseURL: baseURL, creds: creds}
	if c, ok := p.clients[key]; ok {
		return c
	}

	c := NewClient(baseURL, creds, p.ttl, p.logger.Named("rest"))
	p.clients[key] = c
	return c
}

// Close drains every client in the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, c := range p.clients {
		c.Close()
		delete(p.clients, key)
	}
}
