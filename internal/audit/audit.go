// Package audit writes the append-only staff activity log.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/model"
)

// Store is the persistence the logger writes through.
type Store interface {
	InsertActivity(ctx context.Context, e *model.ActivityEntry) error
	GetSheet(ctx context.Context, id string) (*model.Sheet, error)
}

// Logger records staff actions against clients.
type Logger struct {
	st  Store
	now func() time.Time
}

// NewLogger creates a Logger.
func NewLogger(st Store) *Logger {
	return &Logger{st: st, now: time.Now}
}

// Entry describes one action. Field is the human field label; Old and New
// are already rendered for display.
type Entry struct {
	Actor  model.Actor
	Client model.Client
	Action model.ActionType
	Field  string
	Old    *string
	New    *string
}

// Log appends the entry. The sheet name is looked up from the client's
// sheet; a failed lookup leaves it empty.
func (l *Logger) Log(ctx context.Context, e Entry) error {
	row := &model.ActivityEntry{
		ID:           uuid.NewString(),
		StaffID:      e.Actor.ID,
		StaffName:    e.Actor.Name,
		ClientID:     e.Client.ID,
		ClientName:   e.Client.ClientName,
		SheetID:      e.Client.SheetID,
		ActionType:   e.Action,
		FieldChanged: e.Field,
		OldValue:     e.Old,
		NewValue:     e.New,
		Timestamp:    l.now().UTC(),
	}

	if e.Client.SheetID != nil {
		sheet, err := l.st.GetSheet(ctx, *e.Client.SheetID)
		switch {
		case err != nil:
			zap.L().Debug("audit: sheet lookup failed", zap.String("sheet_id", *e.Client.SheetID), zap.Error(err))
		case sheet != nil:
			row.SheetName = &sheet.Name
		}
	}

	if err := l.st.InsertActivity(ctx, row); err != nil {
		return eris.Wrap(err, "audit: insert activity")
	}
	return nil
}
