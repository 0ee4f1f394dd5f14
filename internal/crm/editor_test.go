package crm

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estate-crm/internal/model"
)

func newTestEditor(st *mockStore) (*Editor, *Grid) {
	g := NewGrid("")
	g.Load([]model.Client{baseClient(), {ID: "c2", ClientName: "Meera", LeadType: model.LeadTypeWarm}})
	return NewEditor(NewService(st, nil), g, staff), g
}

func TestEditor_StartEdit(t *testing.T) {
	e, _ := newTestEditor(new(mockStore))
	assert.Equal(t, Idle, e.State())

	require.NoError(t, e.StartEdit("c1", model.FieldLeadType, sp("cold")))
	assert.Equal(t, Editing, e.State())
	id, field, pending, ok := e.Target()
	assert.True(t, ok)
	assert.Equal(t, "c1", id)
	assert.Equal(t, model.FieldLeadType, field)
	assert.Equal(t, "cold", *pending)

	err := e.StartEdit("c1", model.FieldCustomerNumber, nil)
	assert.Equal(t, KindValidation, KindOf(err))
	// A rejected start leaves the open edit alone.
	assert.Equal(t, Editing, e.State())
}

func TestEditor_StartEditCancelsPrevious(t *testing.T) {
	st := new(mockStore)
	e, _ := newTestEditor(st)

	require.NoError(t, e.StartEdit("c1", model.FieldLeadType, sp("cold")))
	require.NoError(t, e.SetPending(sp("hot")))
	require.NoError(t, e.StartEdit("c2", model.FieldDealStatus, sp("open")))

	id, field, pending, _ := e.Target()
	assert.Equal(t, "c2", id)
	assert.Equal(t, model.FieldDealStatus, field)
	assert.Equal(t, "open", *pending)
	st.AssertNotCalled(t, "UpdateClient", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditor_SetPendingRequiresEditing(t *testing.T) {
	e, _ := newTestEditor(new(mockStore))
	err := e.SetPending(sp("x"))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = e.Commit(context.Background())
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestEditor_CommitSaves(t *testing.T) {
	st := new(mockStore)
	e, g := newTestEditor(st)
	prev, _ := g.Get("c1")
	patch := model.ClientPatch{Fields: map[model.Field]*string{model.FieldLeadType: sp("hot")}}
	st.On("UpdateClient", mock.Anything, "c1", patch).Return(patched(prev, patch), nil).Once()

	require.NoError(t, e.StartEdit("c1", model.FieldLeadType, sp("cold")))
	require.NoError(t, e.SetPending(sp("hot")))
	got, err := e.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.LeadTypeHot, got.LeadType)
	assert.Equal(t, Idle, e.State())

	held, _ := g.Get("c1")
	assert.Equal(t, model.LeadTypeHot, held.LeadType)
	st.AssertExpectations(t)
}

func TestEditor_CommitUnchangedWritesNothing(t *testing.T) {
	st := new(mockStore)
	e, _ := newTestEditor(st)

	require.NoError(t, e.StartEdit("c1", model.FieldLeadType, sp("cold")))
	_, err := e.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, e.State())
	st.AssertNotCalled(t, "UpdateClient", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditor_CommitFailureStaysEditing(t *testing.T) {
	st := new(mockStore)
	e, g := newTestEditor(st)
	st.On("UpdateClient", mock.Anything, "c1", mock.Anything).Return(nil, eris.New("network down"))

	require.NoError(t, e.StartEdit("c1", model.FieldLeadType, sp("cold")))
	require.NoError(t, e.SetPending(sp("warm")))
	_, err := e.Commit(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))

	assert.Equal(t, Editing, e.State())
	_, _, pending, _ := e.Target()
	assert.Equal(t, "warm", *pending)
	held, _ := g.Get("c1")
	assert.Equal(t, model.LeadTypeCold, held.LeadType)
}

func TestEditor_CommitInvalidStaysEditing(t *testing.T) {
	st := new(mockStore)
	e, _ := newTestEditor(st)

	require.NoError(t, e.StartEdit("c1", model.FieldExpectedVisitDate, nil))
	require.NoError(t, e.SetPending(sp("next week")))
	_, err := e.Commit(context.Background())
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, Editing, e.State())
}

func TestEditor_CommitClientGone(t *testing.T) {
	st := new(mockStore)
	e, g := newTestEditor(st)

	require.NoError(t, e.StartEdit("c1", model.FieldLeadType, sp("cold")))
	require.NoError(t, e.SetPending(sp("hot")))
	g.Apply(model.ChangeEvent{Type: model.ChangeDelete, ID: "c1"})

	_, err := e.Commit(context.Background())
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, Idle, e.State())
	st.AssertNotCalled(t, "UpdateClient", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditor_Cancel(t *testing.T) {
	e, _ := newTestEditor(new(mockStore))
	require.NoError(t, e.StartEdit("c1", model.FieldLeadType, sp("cold")))
	e.Cancel()
	assert.Equal(t, Idle, e.State())
	_, _, _, ok := e.Target()
	assert.False(t, ok)
	assert.Equal(t, "idle", e.State().String())
}

func TestEditor_AddComment(t *testing.T) {
	st := new(mockStore)
	e, g := newTestEditor(st)
	st.On("UpdateClient", mock.Anything, "c2", mock.Anything).Return(func() *model.Client {
		c, _ := g.Get("c2")
		c.CallingComment = sp("call back friday")
		c.CallingCommentHistory = []model.CommentEntry{{Comment: "call back friday", AddedBy: "Asha"}}
		return &c
	}(), nil)

	got, err := e.AddComment(context.Background(), "c2", "call back friday")
	require.NoError(t, err)
	assert.Equal(t, "call back friday", *got.CallingComment)

	held, _ := g.Get("c2")
	require.Len(t, held.CallingCommentHistory, 1)

	_, err = e.AddComment(context.Background(), "missing", "hi")
	assert.Equal(t, KindNotFound, KindOf(err))
}
