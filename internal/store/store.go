package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estate-crm/internal/model"
)

// ErrNotFound is wrapped by lookups and updates that match no row.
var ErrNotFound = eris.New("not found")

// ClientFilter specifies criteria for listing clients.
type ClientFilter struct {
	SheetID    string           `json:"sheet_id,omitempty"`
	LeadStage  model.LeadStage  `json:"lead_stage,omitempty"`
	LeadType   model.LeadType   `json:"lead_type,omitempty"`
	DealStatus model.DealStatus `json:"deal_status,omitempty"`
	Search     string           `json:"search,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// ActivityFilter specifies criteria for listing activity entries.
type ActivityFilter struct {
	ClientID string    `json:"client_id,omitempty"`
	StaffID  string    `json:"staff_id,omitempty"`
	SheetID  string    `json:"sheet_id,omitempty"`
	Since    time.Time `json:"since,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for the CRM.
type Store interface {
	// Clients. Lists are newest first; a batch keeps its insertion order.
	InsertClients(ctx context.Context, records []model.ClientRecord) ([]model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, error)
	UpdateClient(ctx context.Context, id string, patch model.ClientPatch) (*model.Client, error)
	DeleteClient(ctx context.Context, id string) error

	// Activity log
	InsertActivity(ctx context.Context, e *model.ActivityEntry) error
	ListActivity(ctx context.Context, filter ActivityFilter) ([]model.ActivityEntry, error)

	// Sheets
	UpsertSheet(ctx context.Context, sheet model.Sheet) error
	GetSheet(ctx context.Context, id string) (*model.Sheet, error)
	ListSheets(ctx context.Context) ([]model.Sheet, error)

	// Subscribe streams client changes, limited to sheetID when non-empty.
	// The channel closes when ctx is done or the feed fails.
	Subscribe(ctx context.Context, sheetID string) (<-chan model.ChangeEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// newClient expands an import record into a stored client.
func newClient(id string, rec model.ClientRecord, now time.Time) model.Client {
	return model.Client{
		ID:                id,
		SheetID:           rec.SheetID,
		ClientName:        rec.ClientName,
		CustomerNumber:    rec.CustomerNumber,
		LeadStage:         rec.LeadStage,
		LeadType:          rec.LeadType,
		LocationCategory:  rec.LocationCategory,
		DealStatus:        rec.DealStatus,
		ExpectedVisitDate: rec.ExpectedVisitDate,
		CallingComment:    rec.CallingComment,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
