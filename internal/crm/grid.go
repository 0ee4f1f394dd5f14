package crm

import (
	"sync"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/monitoring"
)

// Grid is the locally held client list for one view, newest first. Local
// commits and remote change events both merge through replace-by-id, so
// applying the same change twice is harmless. Grid is safe for concurrent
// use.
type Grid struct {
	mu      sync.RWMutex
	scope   string
	clients []model.Client
}

// NewGrid creates an empty grid. A non-empty scope restricts inserts to
// clients of that sheet.
func NewGrid(scope string) *Grid {
	return &Grid{scope: scope}
}

// Scope returns the sheet the grid is restricted to, or "".
func (g *Grid) Scope() string {
	return g.scope
}

// Load replaces the contents.
func (g *Grid) Load(clients []model.Client) {
	cp := make([]model.Client, len(clients))
	for i := range clients {
		cp[i] = clients[i].Clone()
	}
	g.mu.Lock()
	g.clients = cp
	g.mu.Unlock()
}

// Prepend adds clients to the front, keeping their relative order. Clients
// already present are replaced in place instead.
func (g *Grid) Prepend(clients ...model.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fresh := make([]model.Client, 0, len(clients))
	for i := range clients {
		if idx := g.indexLocked(clients[i].ID); idx >= 0 {
			g.clients[idx] = clients[i].Clone()
			continue
		}
		fresh = append(fresh, clients[i].Clone())
	}
	g.clients = append(fresh, g.clients...)
}

// Replace overwrites the client with the same id. It reports false when
// the id is not held.
func (g *Grid) Replace(c model.Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.indexLocked(c.ID)
	if idx < 0 {
		return false
	}
	g.clients[idx] = c.Clone()
	return true
}

// Remove drops the client with the given id, if held.
func (g *Grid) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.indexLocked(id)
	if idx < 0 {
		return false
	}
	g.clients = append(g.clients[:idx], g.clients[idx+1:]...)
	return true
}

// Apply merges a remote change and reports whether the grid changed.
// Inserts outside the grid's scope are ignored; updates and deletes for
// unknown ids are no-ops.
func (g *Grid) Apply(ev model.ChangeEvent) bool {
	monitoring.ObserveRealtime(ev.Type)

	switch ev.Type {
	case model.ChangeInsert:
		if ev.Record == nil || !ev.InSheet(g.scope) {
			return false
		}
		g.Prepend(*ev.Record)
		return true
	case model.ChangeUpdate:
		if ev.Record == nil {
			return false
		}
		return g.Replace(*ev.Record)
	case model.ChangeDelete:
		return g.Remove(ev.ID)
	}
	return false
}

// Get returns a copy of the client with the given id.
func (g *Grid) Get(id string) (model.Client, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx := g.indexLocked(id)
	if idx < 0 {
		return model.Client{}, false
	}
	return g.clients[idx].Clone(), true
}

// Clients returns a copy of the list in display order.
func (g *Grid) Clients() []model.Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Client, len(g.clients))
	for i := range g.clients {
		out[i] = g.clients[i].Clone()
	}
	return out
}

// Len returns the number of clients held.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

func (g *Grid) indexLocked(id string) int {
	for i := range g.clients {
		if g.clients[i].ID == id {
			return i
		}
	}
	return -1
}
