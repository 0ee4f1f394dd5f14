package crm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estate-crm/internal/model"
)

func ids(cs []model.Client) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestGrid_ApplyInsert(t *testing.T) {
	t.Parallel()
	g := NewGrid("north")
	g.Load([]model.Client{{ID: "a", SheetID: sp("north")}})

	assert.True(t, g.Apply(model.ChangeEvent{Type: model.ChangeInsert, ID: "b", Record: &model.Client{ID: "b", SheetID: sp("north")}}))
	assert.Equal(t, []string{"b", "a"}, ids(g.Clients()))

	// Out of scope inserts are ignored.
	assert.False(t, g.Apply(model.ChangeEvent{Type: model.ChangeInsert, ID: "c", Record: &model.Client{ID: "c", SheetID: sp("south")}}))
	assert.Equal(t, 2, g.Len())

	// A repeated insert replaces rather than duplicates.
	assert.True(t, g.Apply(model.ChangeEvent{Type: model.ChangeInsert, ID: "b", Record: &model.Client{ID: "b", SheetID: sp("north"), ClientName: "B2"}}))
	assert.Equal(t, []string{"b", "a"}, ids(g.Clients()))
	b, _ := g.Get("b")
	assert.Equal(t, "B2", b.ClientName)
}

func TestGrid_ApplyInsert_UnscopedAcceptsAll(t *testing.T) {
	t.Parallel()
	g := NewGrid("")
	assert.True(t, g.Apply(model.ChangeEvent{Type: model.ChangeInsert, ID: "x", Record: &model.Client{ID: "x"}}))
	assert.Equal(t, 1, g.Len())
}

func TestGrid_ApplyUpdate(t *testing.T) {
	t.Parallel()
	g := NewGrid("")
	g.Load([]model.Client{{ID: "a", LeadType: model.LeadTypeCold}, {ID: "b"}})

	ev := model.ChangeEvent{Type: model.ChangeUpdate, ID: "a", Record: &model.Client{ID: "a", LeadType: model.LeadTypeHot}}
	assert.True(t, g.Apply(ev))
	// Idempotent.
	assert.True(t, g.Apply(ev))

	a, ok := g.Get("a")
	require.True(t, ok)
	assert.Equal(t, model.LeadTypeHot, a.LeadType)
	assert.Equal(t, []string{"a", "b"}, ids(g.Clients()))

	assert.False(t, g.Apply(model.ChangeEvent{Type: model.ChangeUpdate, ID: "zz", Record: &model.Client{ID: "zz"}}))
	assert.Equal(t, 2, g.Len())
}

func TestGrid_ApplyDelete(t *testing.T) {
	t.Parallel()
	g := NewGrid("")
	g.Load([]model.Client{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	assert.True(t, g.Apply(model.ChangeEvent{Type: model.ChangeDelete, ID: "b"}))
	assert.Equal(t, []string{"a", "c"}, ids(g.Clients()))

	assert.False(t, g.Apply(model.ChangeEvent{Type: model.ChangeDelete, ID: "b"}))
	assert.Equal(t, []string{"a", "c"}, ids(g.Clients()))
}

func TestGrid_PrependKeepsBatchOrder(t *testing.T) {
	t.Parallel()
	g := NewGrid("")
	g.Load([]model.Client{{ID: "old"}})
	g.Prepend(model.Client{ID: "n1"}, model.Client{ID: "n2"})
	assert.Equal(t, []string{"n1", "n2", "old"}, ids(g.Clients()))
}

func TestGrid_ReturnsCopies(t *testing.T) {
	t.Parallel()
	g := NewGrid("")
	g.Load([]model.Client{{ID: "a", LocationCategory: sp("Villa")}})

	c, _ := g.Get("a")
	*c.LocationCategory = "Plot"
	again, _ := g.Get("a")
	assert.Equal(t, "Villa", *again.LocationCategory)
}

func TestGrid_ConcurrentApply(t *testing.T) {
	t.Parallel()
	g := NewGrid("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i%26))
			g.Apply(model.ChangeEvent{Type: model.ChangeInsert, ID: id, Record: &model.Client{ID: id}})
			_ = g.Clients()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 26, g.Len())
}
