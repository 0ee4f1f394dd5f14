package csvimport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/monitoring"
)

// Prepender receives freshly imported clients.
type Prepender interface {
	Prepend(clients ...model.Client)
}

// Session holds one in-progress import: the uploaded matrix, whether its
// first row is a header, and the column mapping. A Session is not safe for
// concurrent use.
type Session struct {
	ins       Inserter
	target    Prepender
	rows      [][]string
	hasHeader bool
	mapping   Mapping
	sheetID   *string
}

// NewSession starts an empty session. target may be nil.
func NewSession(ins Inserter, target Prepender) *Session {
	return &Session{ins: ins, target: target, hasHeader: true, mapping: Mapping{}}
}

// Load replaces the matrix and re-infers the mapping.
func (s *Session) Load(rows [][]string) {
	s.rows = rows
	s.remap()
}

// SetHasHeader toggles header handling. The current mapping is discarded:
// it is re-inferred when a header is declared and left empty otherwise.
func (s *Session) SetHasHeader(v bool) {
	s.hasHeader = v
	s.remap()
}

// SetSheet sets the sheet every imported record is assigned to.
func (s *Session) SetSheet(sheetID *string) {
	s.sheetID = sheetID
}

// SetMapping maps a column to a field.
func (s *Session) SetMapping(col int, field model.Field) error {
	return s.mapping.Set(col, field)
}

// ClearMapping unmaps a column.
func (s *Session) ClearMapping(col int) {
	delete(s.mapping, col)
}

// ReplaceMapping swaps in a caller-built mapping.
func (s *Session) ReplaceMapping(m Mapping) {
	s.mapping = m.Clone()
}

// Mapping returns a copy of the current mapping.
func (s *Session) Mapping() Mapping {
	return s.mapping.Clone()
}

// HasHeader reports whether the first row is treated as a header.
func (s *Session) HasHeader() bool {
	return s.hasHeader
}

// Header returns the header row, or nil when there is none.
func (s *Session) Header() []string {
	if !s.hasHeader || len(s.rows) == 0 {
		return nil
	}
	return s.rows[0]
}

// DataRows is the number of rows that map to records, excluding the header
// when there is one.
func (s *Session) DataRows() int {
	if s.hasHeader && len(s.rows) > 0 {
		return len(s.rows) - 1
	}
	return len(s.rows)
}

// Loaded reports whether a matrix is present.
func (s *Session) Loaded() bool {
	return s.rows != nil
}

// Preview maps the matrix without inserting anything.
func (s *Session) Preview() Batch {
	return BuildBatch(s.rows, s.hasHeader, s.mapping, s.sheetID)
}

// Commit inserts the previewed batch. On success the new clients are
// prepended to the target and the session resets. On failure the matrix and
// mapping are kept so the caller can retry.
func (s *Session) Commit(ctx context.Context) ([]model.Client, error) {
	start := time.Now()
	batch := s.Preview()

	inserted, err := Import(ctx, s.ins, batch.Records)
	monitoring.ObserveImport(len(inserted), err, time.Since(start))
	if err != nil {
		zap.L().Warn("import failed",
			zap.Int("records", len(batch.Records)),
			zap.Int("skipped", len(batch.Skipped)),
			zap.Error(err),
		)
		return nil, err
	}

	if s.target != nil {
		s.target.Prepend(inserted...)
	}
	zap.L().Info("import complete",
		zap.Int("inserted", len(inserted)),
		zap.Int("skipped", len(batch.Skipped)),
	)
	s.reset()
	return inserted, nil
}

func (s *Session) remap() {
	if s.hasHeader && len(s.rows) > 0 {
		s.mapping = AutoMap(s.rows[0])
		return
	}
	s.mapping = Mapping{}
}

func (s *Session) reset() {
	s.rows = nil
	s.hasHeader = true
	s.mapping = Mapping{}
}
