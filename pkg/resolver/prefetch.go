package resolver

import (
	"context"
	"sync"

	"github.com/drQedwards/ppm/pkg/wheel"
)

// prefetcher runs index listing fetches ahead of the control loop on a
// bounded number of goroutines. Each name is fetched at most once;
// workers only produce results, they never touch the graph.
type prefetcher struct {
	ctx   context.Context
	fetch func(ctx context.Context, name string) ([]wheel.Artifact, error)
	sem   chan struct{}

	mu       sync.Mutex
	inflight map[string]*listing
}

type listing struct {
	done       chan struct{}
	candidates []wheel.Artifact
	err        error
}

func newPrefetcher(ctx context.Context, workers int, fetch func(context.Context, string) ([]wheel.Artifact, error)) *prefetcher {
	return &prefetcher{
		ctx:      ctx,
		fetch:    fetch,
		sem:      make(chan struct{}, workers),
		inflight: make(map[string]*listing),
	}
}

// start begins fetching a name's listing if nothing has yet. Safe to
// call redundantly.
func (p *prefetcher) start(name string) {
	p.mu.Lock()
	if _, ok := p.inflight[name]; ok {
		p.mu.Unlock()
		return
	}
	l := &listing{done: make(chan struct{})}
	p.inflight[name] = l
	p.mu.Unlock()

	go func() {
		defer close(l.done)
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-p.ctx.Done():
			l.err = p.ctx.Err()
			return
		}
		l.candidates, l.err = p.fetch(p.ctx, name)
	}()
}

// get blocks until the name's listing is available.
func (p *prefetcher) get(name string) ([]wheel.Artifact, error) {
	p.start(name)
	p.mu.Lock()
	l := p.inflight[name]
	p.mu.Unlock()

	select {
	case <-l.done:
		return l.candidates, l.err
	case <-p.ctx.Done():
		return nil, p.ctx.Err()
	}
}
