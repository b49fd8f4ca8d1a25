package backup

import "sync"

// Gate lets ordinary writes run concurrently while an import holds the
// store exclusively. Writers never queue behind an import; they are turned
// away instead.
type Gate struct {
	mu sync.RWMutex
}

func NewGate() *Gate {
	return &Gate{}
}

// Enter admits a write unless an import holds or is waiting for the store.
// Every successful Enter must be paired with Leave.
func (g *Gate) Enter() bool {
	return g.mu.TryRLock()
}

func (g *Gate) Leave() {
	g.mu.RUnlock()
}

// Close waits for in-flight writes to finish and blocks new ones until Open.
func (g *Gate) Close() {
	g.mu.Lock()
}

func (g *Gate) Open() {
	g.mu.Unlock()
}
