package state

import "sync"

// Group collects teardown functions so that every subscription taken by a
// component is released together.
type Group struct {
	mu    sync.Mutex
	funcs []func()
}

func (g *Group) Add(unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.funcs = append(g.funcs, unsubscribe)
}

// Close runs all registered teardowns in reverse order. The group can be reused.
func (g *Group) Close() {
	g.mu.Lock()
	funcs := g.funcs
	g.funcs = nil
	g.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}
