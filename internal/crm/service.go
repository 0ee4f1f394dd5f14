// Package crm holds the lead-editing core: the local client grid, the
// inline edit session, the calling-comment log, and the persistence plus
// activity-log sequence they share.
package crm

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/audit"
	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/monitoring"
	"github.com/sells-group/estate-crm/internal/store"
)

// ClientStore is the persistence the edit flow needs.
type ClientStore interface {
	GetClient(ctx context.Context, id string) (*model.Client, error)
	UpdateClient(ctx context.Context, id string, patch model.ClientPatch) (*model.Client, error)
}

// Auditor appends activity entries.
type Auditor interface {
	Log(ctx context.Context, e audit.Entry) error
}

// Service persists field edits and comments. Activity logging is best
// effort: a failed append is logged and never fails the edit.
type Service struct {
	store ClientStore
	audit Auditor
	now   func() time.Time
}

// NewService creates a Service. auditor may be nil.
func NewService(st ClientStore, auditor Auditor) *Service {
	return &Service{store: st, audit: auditor, now: time.Now}
}

// UpdateField writes value to field of the client whose last known state is
// prev. When value equals the current value (both empty included) nothing
// is written and changed is false. On success the returned client is the
// stored state.
func (s *Service) UpdateField(ctx context.Context, actor model.Actor, prev model.Client, field model.Field, value *string) (updated *model.Client, changed bool, err error) {
	const op = "update field"

	value = normalizeValue(value)
	old := prev.Value(field)
	if sameValue(old, value) {
		return &prev, false, nil
	}
	if err := validateValue(field, value); err != nil {
		monitoring.ObserveEdit(field, "rejected")
		return nil, false, err
	}

	updated, err = s.store.UpdateClient(ctx, prev.ID, model.ClientPatch{
		Fields: map[model.Field]*string{field: value},
	})
	if err != nil {
		monitoring.ObserveEdit(field, "failed")
		return nil, false, writeError(op, prev.ID, err)
	}
	monitoring.ObserveEdit(field, "saved")

	s.record(ctx, audit.Entry{
		Actor:  actor,
		Client: *updated,
		Action: model.ActionUpdateField,
		Field:  field.Label(),
		Old:    model.DisplayValue(field, old),
		New:    model.DisplayValue(field, value),
	})
	return updated, true, nil
}

// AddComment prepends a calling comment to the client's history and makes
// it the current comment in a single write.
func (s *Service) AddComment(ctx context.Context, actor model.Actor, prev model.Client, text string) (*model.Client, error) {
	const op = "add comment"

	text = strings.TrimSpace(text)
	if text == "" {
		monitoring.ObserveComment("rejected")
		return nil, validationError(op, "comment text is required")
	}

	entry := model.CommentEntry{Comment: text, Date: s.now().UTC(), AddedBy: actor.Name}
	history := make([]model.CommentEntry, 0, len(prev.CallingCommentHistory)+1)
	history = append(history, entry)
	history = append(history, prev.CallingCommentHistory...)

	updated, err := s.store.UpdateClient(ctx, prev.ID, model.ClientPatch{
		Fields:  map[model.Field]*string{model.FieldCallingComment: &text},
		History: history,
	})
	if err != nil {
		monitoring.ObserveComment("failed")
		return nil, writeError(op, prev.ID, err)
	}
	monitoring.ObserveComment("saved")

	s.record(ctx, audit.Entry{
		Actor:  actor,
		Client: *updated,
		Action: model.ActionAddComment,
		Field:  model.FieldCallingComment.Label(),
		New:    &text,
	})
	return updated, nil
}

// Edit loads the client by id and applies UpdateField. It serves callers
// without a local grid, such as the CLI and REST handlers.
func (s *Service) Edit(ctx context.Context, actor model.Actor, id string, field model.Field, value *string) (*model.Client, bool, error) {
	if !field.Editable() {
		return nil, false, validationError("update field", "field %q is not editable", field)
	}
	prev, err := s.load(ctx, "update field", id)
	if err != nil {
		return nil, false, err
	}
	return s.UpdateField(ctx, actor, *prev, field, value)
}

// Comment loads the client by id and applies AddComment.
func (s *Service) Comment(ctx context.Context, actor model.Actor, id, text string) (*model.Client, error) {
	prev, err := s.load(ctx, "add comment", id)
	if err != nil {
		return nil, err
	}
	return s.AddComment(ctx, actor, *prev, text)
}

func (s *Service) load(ctx context.Context, op, id string) (*model.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	if c == nil {
		return nil, notFoundError(op, id)
	}
	return c, nil
}

// writeError classifies a failed write. A client deleted under the caller
// is not_found; everything else is a persistence failure.
func writeError(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError(op, id)
	}
	return persistenceError(op, err)
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, e); err != nil {
		zap.L().Warn("activity log append failed",
			zap.String("client_id", e.Client.ID),
			zap.String("action", string(e.Action)),
			zap.Error(err),
		)
	}
}
