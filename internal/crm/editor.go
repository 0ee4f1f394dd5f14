package crm

import (
	"context"

	"github.com/sells-group/estate-crm/internal/model"
)

// EditState is the inline editor's state.
type EditState int

// Editor states.
const (
	Idle EditState = iota
	Editing
)

func (s EditState) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// Editor is one user's inline edit session over a grid. At most one cell
// is open at a time. Local state changes only after the store accepts a
// write. An Editor is driven by a single goroutine.
type Editor struct {
	svc   *Service
	grid  *Grid
	actor model.Actor

	state    EditState
	clientID string
	field    model.Field
	pending  *string
}

// NewEditor creates an idle editor acting as actor.
func NewEditor(svc *Service, grid *Grid, actor model.Actor) *Editor {
	return &Editor{svc: svc, grid: grid, actor: actor}
}

// State returns the current state.
func (e *Editor) State() EditState {
	return e.state
}

// Target returns the open cell and its pending value. ok is false when idle.
func (e *Editor) Target() (clientID string, field model.Field, pending *string, ok bool) {
	if e.state != Editing {
		return "", "", nil, false
	}
	return e.clientID, e.field, e.pending, true
}

// StartEdit opens a cell, seeding the pending value with current. An edit
// already in progress is discarded without writing.
func (e *Editor) StartEdit(clientID string, field model.Field, current *string) error {
	if !field.Editable() {
		return validationError("start edit", "field %q is not editable", field)
	}
	e.Cancel()
	e.state = Editing
	e.clientID = clientID
	e.field = field
	e.pending = current
	return nil
}

// SetPending replaces the pending value of the open cell.
func (e *Editor) SetPending(v *string) error {
	if e.state != Editing {
		return validationError("set value", "no edit in progress")
	}
	e.pending = v
	return nil
}

// Cancel closes the open cell without writing.
func (e *Editor) Cancel() {
	e.state = Idle
	e.clientID = ""
	e.field = ""
	e.pending = nil
}

// Commit saves the pending value. An unchanged value closes the cell with
// no write. On failure the editor stays open with the attempted value.
func (e *Editor) Commit(ctx context.Context) (*model.Client, error) {
	const op = "commit edit"

	if e.state != Editing {
		return nil, validationError(op, "no edit in progress")
	}
	prev, ok := e.grid.Get(e.clientID)
	if !ok {
		id := e.clientID
		e.Cancel()
		return nil, notFoundError(op, id)
	}

	updated, changed, err := e.svc.UpdateField(ctx, e.actor, prev, e.field, e.pending)
	if err != nil {
		return nil, err
	}
	if changed {
		e.grid.Replace(*updated)
	}
	e.Cancel()
	return updated, nil
}

// AddComment appends a calling comment to a client held by the grid.
func (e *Editor) AddComment(ctx context.Context, clientID, text string) (*model.Client, error) {
	prev, ok := e.grid.Get(clientID)
	if !ok {
		return nil, notFoundError("add comment", clientID)
	}
	updated, err := e.svc.AddComment(ctx, e.actor, prev, text)
	if err != nil {
		return nil, err
	}
	e.grid.Replace(*updated)
	return updated, nil
}
