package session

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/store"
)

// Pool opens sessions lazily and keeps one per flow name. The HTTP server
// uses it so concurrent requests on the same flow share one diagram.
type Pool struct {
	mu       sync.Mutex
	store    store.Store
	opts     Options
	sessions map[string]*Session
}

// NewPool returns a pool over st. Every session is opened with opts.
func NewPool(st store.Store, opts Options) *Pool {
	return &Pool{store: st, opts: opts, sessions: make(map[string]*Session)}
}

// Store returns the backing store.
func (p *Pool) Store() store.Store { return p.store }

// Get returns the session for name, opening it on first use. The store is
// read without the pool lock; when two callers open the same flow at once,
// the first session registered wins.
func (p *Pool) Get(ctx context.Context, name string) (*Session, error) {
	p.mu.Lock()
	s, ok := p.sessions[name]
	p.mu.Unlock()
	if ok {
		return s, nil
	}

	opened, err := Open(ctx, p.store, name, p.opts)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[name]; ok {
		return s, nil
	}
	p.sessions[name] = opened
	return opened, nil
}

// Put stores doc. An open session on the flow is synced; otherwise a new
// one is opened.
func (p *Pool) Put(ctx context.Context, doc *flow.Document) (*Session, error) {
	if err := store.ValidateName(doc.Name); err != nil {
		return nil, err
	}
	p.mu.Lock()
	s, ok := p.sessions[doc.Name]
	p.mu.Unlock()

	if ok {
		if _, err := s.Apply(ctx, doc); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := p.store.Put(ctx, doc); err != nil {
		return nil, err
	}
	return p.Get(ctx, doc.Name)
}

// Forget drops the session for name.
func (p *Pool) Forget(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, name)
}

// Open returns the names of the flows with a live session.
func (p *Pool) Open() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.sessions))
	for name := range p.sessions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
