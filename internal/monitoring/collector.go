package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

// Snapshot is a point-in-time view of the lead book.
type Snapshot struct {
	SheetID string `json:"sheet_id,omitempty"`

	ClientsTotal   int            `json:"clients_total"`
	ByLeadStage    map[string]int `json:"by_lead_stage"`
	ByLeadType     map[string]int `json:"by_lead_type"`
	ByDealStatus   map[string]int `json:"by_deal_status"`
	UpcomingVisits int            `json:"upcoming_visits"`

	// Activity within the lookback window.
	ActivityTotal int `json:"activity_total"`
	FieldEdits    int `json:"field_edits"`
	Comments      int `json:"comments"`
	ActiveStaff   int `json:"active_staff"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Source is the store access the collector needs.
type Source interface {
	ListClients(ctx context.Context, filter store.ClientFilter) ([]model.Client, error)
	ListActivity(ctx context.Context, filter store.ActivityFilter) ([]model.ActivityEntry, error)
}

// Collector gathers statistics from the store.
type Collector struct {
	src Source
	now func() time.Time
}

// NewCollector creates a new statistics collector.
func NewCollector(src Source) *Collector {
	return &Collector{src: src, now: time.Now}
}

// Collect gathers a snapshot for a sheet ("" for all sheets) over the given
// lookback window.
func (c *Collector) Collect(ctx context.Context, sheetID string, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		SheetID:       sheetID,
		ByLeadStage:   map[string]int{},
		ByLeadType:    map[string]int{},
		ByDealStatus:  map[string]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	clients, err := c.src.ListClients(ctx, store.ClientFilter{SheetID: sheetID})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list clients")
	}

	today := now.Format(model.DateLayout)
	snap.ClientsTotal = len(clients)
	for _, cl := range clients {
		snap.ByLeadStage[string(cl.LeadStage)]++
		snap.ByLeadType[string(cl.LeadType)]++
		snap.ByDealStatus[string(cl.DealStatus)]++
		// YYYY-MM-DD compares correctly as text.
		if cl.ExpectedVisitDate != nil && *cl.ExpectedVisitDate >= today {
			snap.UpcomingVisits++
		}
	}

	entries, err := c.src.ListActivity(ctx, store.ActivityFilter{
		SheetID: sheetID,
		Since:   now.Add(-time.Duration(lookbackHours) * time.Hour),
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list activity")
	}

	staff := map[string]bool{}
	snap.ActivityTotal = len(entries)
	for _, e := range entries {
		switch e.ActionType {
		case model.ActionUpdateField:
			snap.FieldEdits++
		case model.ActionAddComment:
			snap.Comments++
		}
		staff[e.StaffID] = true
	}
	snap.ActiveStaff = len(staff)

	return snap, nil
}
