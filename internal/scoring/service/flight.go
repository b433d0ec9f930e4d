package service

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// flight is the shared computation of one key. It runs on a context detached
// from any single request and counts as abandoned once every request waiting
// on it has been cancelled.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	waiters map[*waiter]struct{}
}

type waiter struct {
	ctx context.Context
}

// abandoned reports whether no waiting request still wants the result.
func (f *flight) abandoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for w := range f.waiters {
		if w.ctx.Err() == nil {
			return false
		}
	}
	return true
}

// flightGroup collapses concurrent calls for one key. Unlike a bare
// singleflight.Group, a caller that goes away only stops waiting: the other
// callers keep the computation alive.
type flightGroup struct {
	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

func newFlightGroup() *flightGroup {
	return &flightGroup{flights: make(map[string]*flight)}
}

func (g *flightGroup) join(ctx context.Context, key string) (*flight, *waiter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.flights[key]
	if !ok || f.ctx.Err() != nil {
		// A cancelled flight only finishes with an error, so later callers
		// must not share it.
		g.group.Forget(key)
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: shared, cancel: cancel, waiters: make(map[*waiter]struct{})}
		g.flights[key] = f
	}
	w := &waiter{ctx: ctx}
	f.mu.Lock()
	f.waiters[w] = struct{}{}
	f.mu.Unlock()
	return f, w
}

func (g *flightGroup) leave(key string, f *flight, w *waiter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f.mu.Lock()
	delete(f.waiters, w)
	remaining := len(f.waiters)
	f.mu.Unlock()

	if remaining > 0 {
		if f.abandoned() {
			f.cancel()
		}
		return
	}
	f.cancel()
	if g.flights[key] == f {
		delete(g.flights, key)
		g.group.Forget(key)
	}
}

// Do runs fn once for all concurrent callers of key and waits for its result
// or for ctx to be done, whichever comes first.
func (g *flightGroup) Do(ctx context.Context, key string, fn func(f *flight) (interface{}, error)) (interface{}, error) {
	f, w := g.join(ctx, key)
	defer g.leave(key, f, w)

	ch := g.group.DoChan(key, func() (interface{}, error) {
		return fn(f)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
