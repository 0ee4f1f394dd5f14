package csvimport

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estate-crm/internal/crm"
	"github.com/sells-group/estate-crm/internal/model"
)

// ErrNoValidRecords is returned when a batch contains nothing to insert.
var ErrNoValidRecords = eris.New("no valid records to import")

// Inserter persists a batch of new clients atomically and returns them with
// server-assigned ids and timestamps.
type Inserter interface {
	InsertClients(ctx context.Context, records []model.ClientRecord) ([]model.Client, error)
}

// Batch is the outcome of mapping a matrix, before insertion.
type Batch struct {
	Records []model.ClientRecord `json:"records"`
	// Skipped holds 1-based line numbers of data rows without a client name.
	Skipped []int `json:"skipped"`
	Total   int   `json:"total"`
}

// BuildBatch maps every data row. The first row is skipped when hasHeader
// is set. Every record is stamped with sheetID.
func BuildBatch(rows [][]string, hasHeader bool, m Mapping, sheetID *string) Batch {
	var b Batch
	start := 0
	if hasHeader {
		start = 1
	}
	for i := start; i < len(rows); i++ {
		b.Total++
		rec, ok := MapRow(rows[i], m)
		if !ok {
			b.Skipped = append(b.Skipped, i+1)
			continue
		}
		rec.SheetID = sheetID
		b.Records = append(b.Records, rec)
	}
	return b
}

// Import inserts the records in one all-or-nothing call. An empty batch is
// rejected without touching the store; store failures carry the backend's
// message.
func Import(ctx context.Context, ins Inserter, records []model.ClientRecord) ([]model.Client, error) {
	if len(records) == 0 {
		return nil, &crm.Error{Kind: crm.KindNoRecords, Op: "import", Err: ErrNoValidRecords}
	}
	inserted, err := ins.InsertClients(ctx, records)
	if err != nil {
		return nil, &crm.Error{Kind: crm.KindPersistence, Op: "import", Err: eris.Wrap(err, "insert clients")}
	}
	return inserted, nil
}
