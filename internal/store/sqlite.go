package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/realtime"
)

// SQLiteStore implements Store using modernc.org/sqlite. Change events are
// published in-process, so subscribers only see writes made through the
// same store.
type SQLiteStore struct {
	db  *sql.DB
	hub *realtime.Hub
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// buffer sizes each change subscriber's queue; zero uses the default.
func NewSQLite(dsn string, buffer int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if buffer <= 0 {
		buffer = realtime.DefaultBuffer
	}
	return &SQLiteStore{db: db, hub: realtime.NewHub(buffer)}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS crm_sheets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS crm_clients (
	id                      TEXT PRIMARY KEY,
	sheet_id                TEXT,
	client_name             TEXT NOT NULL,
	customer_number         TEXT,
	lead_stage              TEXT NOT NULL DEFAULT 'follow_up_req',
	lead_type               TEXT NOT NULL DEFAULT 'cold',
	location_category       TEXT,
	deal_status             TEXT NOT NULL DEFAULT 'open',
	expected_visit_date     TEXT,
	calling_comment         TEXT,
	calling_comment_history TEXT NOT NULL DEFAULT '[]',
	created_at              DATETIME NOT NULL,
	updated_at              DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS crm_activity_log (
	id            TEXT PRIMARY KEY,
	staff_id      TEXT NOT NULL,
	staff_name    TEXT NOT NULL,
	client_id     TEXT NOT NULL,
	client_name   TEXT NOT NULL,
	sheet_id      TEXT,
	sheet_name    TEXT,
	action_type   TEXT NOT NULL,
	field_changed TEXT NOT NULL,
	old_value     TEXT,
	new_value     TEXT,
	timestamp     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crm_clients_sheet_id ON crm_clients(sheet_id);
CREATE INDEX IF NOT EXISTS idx_crm_clients_created_at ON crm_clients(created_at);
CREATE INDEX IF NOT EXISTS idx_crm_activity_client_id ON crm_activity_log(client_id);
CREATE INDEX IF NOT EXISTS idx_crm_activity_timestamp ON crm_activity_log(timestamp);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteClientColumns = `id, sheet_id, client_name, customer_number, lead_stage, lead_type,
	location_category, deal_status, expected_visit_date, calling_comment,
	calling_comment_history, created_at, updated_at`

func (s *SQLiteStore) InsertClients(ctx context.Context, records []model.ClientRecord) ([]model.Client, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert clients")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO crm_clients (`+sqliteClientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert client")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.Client, 0, len(records))
	for _, rec := range records {
		c := newClient(uuid.NewString(), rec, now)
		if _, err := stmt.ExecContext(ctx,
			c.ID, nullable(c.SheetID), c.ClientName, nullable(c.CustomerNumber), string(c.LeadStage), string(c.LeadType),
			nullable(c.LocationCategory), string(c.DealStatus), nullable(c.ExpectedVisitDate), nullable(c.CallingComment),
			"[]", c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert client %q", c.ClientName)
		}
		out = append(out, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert clients")
	}

	for i := range out {
		c := out[i].Clone()
		s.hub.Publish(model.ChangeEvent{Type: model.ChangeInsert, ID: c.ID, SheetID: c.SheetID, Record: &c})
	}
	return out, nil
}

func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteClientColumns+` FROM crm_clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get client")
	}
	return c, nil
}

func (s *SQLiteStore) ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, error) {
	query := `SELECT ` + sqliteClientColumns + ` FROM crm_clients WHERE 1=1`
	var args []any

	if filter.SheetID != "" {
		query += ` AND sheet_id = ?`
		args = append(args, filter.SheetID)
	}
	if filter.LeadStage != "" {
		query += ` AND lead_stage = ?`
		args = append(args, string(filter.LeadStage))
	}
	if filter.LeadType != "" {
		query += ` AND lead_type = ?`
		args = append(args, string(filter.LeadType))
	}
	if filter.DealStatus != "" {
		query += ` AND deal_status = ?`
		args = append(args, string(filter.DealStatus))
	}
	if filter.Search != "" {
		query += ` AND (client_name LIKE ? OR customer_number LIKE ?)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}

	query += ` ORDER BY created_at DESC, rowid ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clients")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate clients")
}

func (s *SQLiteStore) UpdateClient(ctx context.Context, id string, patch model.ClientPatch) (*model.Client, error) {
	cols, err := patchColumns(patch)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: update client")
	}

	sets := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+3)
	for _, cv := range cols {
		sets = append(sets, cv.column+" = ?")
		args = append(args, nullable(cv.value))
	}
	if patch.History != nil {
		data, err := marshalHistory(patch.History)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: update client")
		}
		sets = append(sets, "calling_comment_history = ?")
		args = append(args, string(data))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE crm_clients SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: update client")
	}
	if err := checkRowsAffected(res, "client", id); err != nil {
		return nil, err
	}

	c, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, eris.Wrapf(ErrNotFound, "client %s", id)
	}

	cp := c.Clone()
	s.hub.Publish(model.ChangeEvent{Type: model.ChangeUpdate, ID: c.ID, SheetID: c.SheetID, Record: &cp})
	return c, nil
}

func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	var sheetID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT sheet_id FROM crm_clients WHERE id = ?`, id).Scan(&sheetID)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "client %s", id)
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: delete client")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM crm_clients WHERE id = ?`, id)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete client")
	}
	if err := checkRowsAffected(res, "client", id); err != nil {
		return err
	}

	s.hub.Publish(model.ChangeEvent{Type: model.ChangeDelete, ID: id, SheetID: nullToPtr(sheetID)})
	return nil
}

func (s *SQLiteStore) InsertActivity(ctx context.Context, e *model.ActivityEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crm_activity_log (id, staff_id, staff_name, client_id, client_name, sheet_id, sheet_name,
			action_type, field_changed, old_value, new_value, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StaffID, e.StaffName, e.ClientID, e.ClientName, nullable(e.SheetID), nullable(e.SheetName),
		string(e.ActionType), e.FieldChanged, nullable(e.OldValue), nullable(e.NewValue), e.Timestamp.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert activity")
}

func (s *SQLiteStore) ListActivity(ctx context.Context, filter ActivityFilter) ([]model.ActivityEntry, error) {
	query := `SELECT id, staff_id, staff_name, client_id, client_name, sheet_id, sheet_name,
		action_type, field_changed, old_value, new_value, timestamp
		FROM crm_activity_log WHERE 1=1`
	var args []any

	if filter.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	if filter.StaffID != "" {
		query += ` AND staff_id = ?`
		args = append(args, filter.StaffID)
	}
	if filter.SheetID != "" {
		query += ` AND sheet_id = ?`
		args = append(args, filter.SheetID)
	}
	if !filter.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY timestamp DESC, rowid DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list activity")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ActivityEntry
	for rows.Next() {
		var (
			e                                    model.ActivityEntry
			action                               string
			sheetID, sheetName, oldValue, newVal sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.StaffID, &e.StaffName, &e.ClientID, &e.ClientName, &sheetID, &sheetName,
			&action, &e.FieldChanged, &oldValue, &newVal, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity")
		}
		e.ActionType = model.ActionType(action)
		e.SheetID = nullToPtr(sheetID)
		e.SheetName = nullToPtr(sheetName)
		e.OldValue = nullToPtr(oldValue)
		e.NewValue = nullToPtr(newVal)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate activity")
}

func (s *SQLiteStore) UpsertSheet(ctx context.Context, sheet model.Sheet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crm_sheets (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		sheet.ID, sheet.Name,
	)
	return eris.Wrap(err, "sqlite: upsert sheet")
}

func (s *SQLiteStore) GetSheet(ctx context.Context, id string) (*model.Sheet, error) {
	var sh model.Sheet
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM crm_sheets WHERE id = ?`, id).Scan(&sh.ID, &sh.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get sheet")
	}
	return &sh, nil
}

func (s *SQLiteStore) ListSheets(ctx context.Context) ([]model.Sheet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM crm_sheets ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sheets")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Sheet
	for rows.Next() {
		var sh model.Sheet
		if err := rows.Scan(&sh.ID, &sh.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sheet")
		}
		out = append(out, sh)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sheets")
}

func (s *SQLiteStore) Subscribe(ctx context.Context, sheetID string) (<-chan model.ChangeEvent, error) {
	return s.hub.Subscribe(ctx, sheetID), nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanClient(row scannable) (*model.Client, error) {
	var (
		c                                                            model.Client
		stage, leadType, deal, history                               string
		sheetID, customerNumber, location, visitDate, callingComment sql.NullString
	)
	if err := row.Scan(&c.ID, &sheetID, &c.ClientName, &customerNumber, &stage, &leadType,
		&location, &deal, &visitDate, &callingComment, &history, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	h, err := unmarshalHistory([]byte(history))
	if err != nil {
		return nil, err
	}

	c.SheetID = nullToPtr(sheetID)
	c.CustomerNumber = nullToPtr(customerNumber)
	c.LeadStage = model.LeadStage(stage)
	c.LeadType = model.LeadType(leadType)
	c.LocationCategory = nullToPtr(location)
	c.DealStatus = model.DealStatus(deal)
	c.ExpectedVisitDate = nullToPtr(visitDate)
	c.CallingComment = nullToPtr(callingComment)
	c.CallingCommentHistory = h
	return &c, nil
}

// nullable turns an optional string into a driver argument.
func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
