package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/db"
	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/realtime"
	"github.com/sells-group/estate-crm/internal/resilience"
)

// ChangeChannel is the NOTIFY channel fed by the crm_clients trigger.
const ChangeChannel = "crm_clients_changes"

// PostgresStore implements Store using pgxpool. Change events come from a
// table trigger via LISTEN/NOTIFY, so writes from any process are seen.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()

	// dial opens the dedicated LISTEN connection.
	dial       func(ctx context.Context) (db.NotifyConn, error)
	hub        *realtime.Hub
	listenMu   sync.Mutex
	listening  bool
	listenCtx  context.Context
	stopListen context.CancelFunc
	// redial governs reconnecting a lost LISTEN connection.
	redial resilience.RetryConfig
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
	// Buffer is the per-subscriber change event queue length.
	Buffer int `yaml:"buffer" mapstructure:"buffer"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	buffer := realtime.DefaultBuffer
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		if poolCfg.Buffer > 0 {
			buffer = poolCfg.Buffer
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	err = resilience.Do(ctx, resilience.RetryConfig{OnRetry: resilience.RetryLogger("postgres", "ping")}, pool.Ping)
	if err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s := newPostgresStore(pool, buffer, func(ctx context.Context) (db.NotifyConn, error) {
		return db.Listen(ctx, connString, ChangeChannel)
	})
	s.closeFn = pool.Close
	return s, nil
}

func newPostgresStore(pool db.Pool, buffer int, dial func(ctx context.Context) (db.NotifyConn, error)) *PostgresStore {
	listenCtx, stop := context.WithCancel(context.Background())
	return &PostgresStore{
		pool:       pool,
		dial:       dial,
		hub:        realtime.NewHub(buffer),
		listenCtx:  listenCtx,
		stopListen: stop,
		redial: resilience.RetryConfig{
			MaxAttempts:    10,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			ShouldRetry:    resilience.Always,
			OnRetry:        resilience.RetryLogger("postgres", "listen"),
		},
	}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS crm_sheets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS crm_clients (
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	seq                     BIGSERIAL,
	sheet_id                TEXT,
	client_name             TEXT NOT NULL,
	customer_number         TEXT,
	lead_stage              TEXT NOT NULL DEFAULT 'follow_up_req',
	lead_type               TEXT NOT NULL DEFAULT 'cold',
	location_category       TEXT,
	deal_status             TEXT NOT NULL DEFAULT 'open',
	expected_visit_date     DATE,
	calling_comment         TEXT,
	calling_comment_history JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS crm_activity_log (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	seq           BIGSERIAL,
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
	timestamp     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_clients_sheet_id ON crm_clients(sheet_id);
CREATE INDEX IF NOT EXISTS idx_crm_clients_created_at ON crm_clients(created_at DESC, seq);
CREATE INDEX IF NOT EXISTS idx_crm_activity_client_id ON crm_activity_log(client_id);
CREATE INDEX IF NOT EXISTS idx_crm_activity_timestamp ON crm_activity_log(timestamp DESC);

CREATE OR REPLACE FUNCTION crm_clients_notify() RETURNS trigger AS $$
DECLARE
	rec RECORD;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify('crm_clients_changes',
		json_build_object('type', TG_OP, 'id', rec.id, 'sheet_id', rec.sheet_id)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS crm_clients_notify ON crm_clients;
CREATE TRIGGER crm_clients_notify
	AFTER INSERT OR UPDATE OR DELETE ON crm_clients
	FOR EACH ROW EXECUTE FUNCTION crm_clients_notify();
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.stopListen != nil {
		s.stopListen()
	}
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgClientColumns = `id, sheet_id, client_name, customer_number, lead_stage, lead_type,
	location_category, deal_status, to_char(expected_visit_date, 'YYYY-MM-DD'), calling_comment,
	calling_comment_history, created_at, updated_at`

var pgCopyColumns = []string{
	"id", "sheet_id", "client_name", "customer_number", "lead_stage", "lead_type",
	"location_category", "deal_status", "expected_visit_date", "calling_comment",
	"calling_comment_history", "created_at", "updated_at",
}

// InsertClients writes the batch with a single COPY, which either lands
// every row or none.
func (s *PostgresStore) InsertClients(ctx context.Context, records []model.ClientRecord) ([]model.Client, error) {
	if len(records) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	out := make([]model.Client, 0, len(records))
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		c := newClient(uuid.NewString(), rec, now)
		visit, err := dateArg(c.ExpectedVisitDate)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert client %q", c.ClientName)
		}
		rows = append(rows, []any{
			c.ID, nullable(c.SheetID), c.ClientName, nullable(c.CustomerNumber), string(c.LeadStage), string(c.LeadType),
			nullable(c.LocationCategory), string(c.DealStatus), visit, nullable(c.CallingComment),
			[]byte("[]"), c.CreatedAt, c.UpdatedAt,
		})
		out = append(out, c)
	}

	if _, err := db.CopyFrom(ctx, s.pool, "crm_clients", pgCopyColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: insert clients")
	}
	return out, nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgClientColumns+` FROM crm_clients WHERE id = $1`, id)
	c, err := scanPgClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get client")
	}
	return c, nil
}

func (s *PostgresStore) ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, error) {
	query := `SELECT ` + pgClientColumns + ` FROM crm_clients WHERE 1=1`
	var args []any
	argN := 1

	if filter.SheetID != "" {
		query += fmt.Sprintf(` AND sheet_id = $%d`, argN)
		args = append(args, filter.SheetID)
		argN++
	}
	if filter.LeadStage != "" {
		query += fmt.Sprintf(` AND lead_stage = $%d`, argN)
		args = append(args, string(filter.LeadStage))
		argN++
	}
	if filter.LeadType != "" {
		query += fmt.Sprintf(` AND lead_type = $%d`, argN)
		args = append(args, string(filter.LeadType))
		argN++
	}
	if filter.DealStatus != "" {
		query += fmt.Sprintf(` AND deal_status = $%d`, argN)
		args = append(args, string(filter.DealStatus))
		argN++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (client_name ILIKE $%d OR customer_number ILIKE $%d)`, argN, argN)
		args = append(args, "%"+filter.Search+"%")
		argN++
	}

	query += ` ORDER BY created_at DESC, seq ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argN)
		args = append(args, filter.Limit)
		argN++
		if filter.Offset > 0 {
			query += fmt.Sprintf(` OFFSET $%d`, argN)
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clients")
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		c, err := scanPgClient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan client")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate clients")
}

func (s *PostgresStore) UpdateClient(ctx context.Context, id string, patch model.ClientPatch) (*model.Client, error) {
	cols, err := patchColumns(patch)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: update client")
	}

	sets := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+3)
	argN := 1
	for _, cv := range cols {
		if cv.field == model.FieldExpectedVisitDate {
			sets = append(sets, fmt.Sprintf("%s = $%d::date", cv.column, argN))
		} else {
			sets = append(sets, fmt.Sprintf("%s = $%d", cv.column, argN))
		}
		args = append(args, nullable(cv.value))
		argN++
	}
	if patch.History != nil {
		data, err := marshalHistory(patch.History)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: update client")
		}
		sets = append(sets, fmt.Sprintf("calling_comment_history = $%d", argN))
		args = append(args, data)
		argN++
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", argN))
	args = append(args, time.Now().UTC(), id)

	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE crm_clients SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), argN+1, pgClientColumns),
		args...,
	)
	c, err := scanPgClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "client %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: update client")
	}
	return c, nil
}

func (s *PostgresStore) DeleteClient(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM crm_clients WHERE id = $1`, id)
	if err != nil {
		return eris.Wrap(err, "postgres: delete client")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "client %s", id)
	}
	return nil
}

func (s *PostgresStore) InsertActivity(ctx context.Context, e *model.ActivityEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO crm_activity_log (id, staff_id, staff_name, client_id, client_name, sheet_id, sheet_name,
			action_type, field_changed, old_value, new_value, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.StaffID, e.StaffName, e.ClientID, e.ClientName, nullable(e.SheetID), nullable(e.SheetName),
		string(e.ActionType), e.FieldChanged, nullable(e.OldValue), nullable(e.NewValue), e.Timestamp,
	)
	return eris.Wrap(err, "postgres: insert activity")
}

func (s *PostgresStore) ListActivity(ctx context.Context, filter ActivityFilter) ([]model.ActivityEntry, error) {
	query := `SELECT id, staff_id, staff_name, client_id, client_name, sheet_id, sheet_name,
		action_type, field_changed, old_value, new_value, timestamp
		FROM crm_activity_log WHERE 1=1`
	var args []any
	argN := 1

	if filter.ClientID != "" {
		query += fmt.Sprintf(` AND client_id = $%d`, argN)
		args = append(args, filter.ClientID)
		argN++
	}
	if filter.StaffID != "" {
		query += fmt.Sprintf(` AND staff_id = $%d`, argN)
		args = append(args, filter.StaffID)
		argN++
	}
	if filter.SheetID != "" {
		query += fmt.Sprintf(` AND sheet_id = $%d`, argN)
		args = append(args, filter.SheetID)
		argN++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND timestamp >= $%d`, argN)
		args = append(args, filter.Since)
		argN++
	}

	query += ` ORDER BY timestamp DESC, seq DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argN)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list activity")
	}
	defer rows.Close()

	var out []model.ActivityEntry
	for rows.Next() {
		var (
			e      model.ActivityEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.StaffID, &e.StaffName, &e.ClientID, &e.ClientName, &e.SheetID, &e.SheetName,
			&action, &e.FieldChanged, &e.OldValue, &e.NewValue, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity")
		}
		e.ActionType = model.ActionType(action)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate activity")
}

func (s *PostgresStore) UpsertSheet(ctx context.Context, sheet model.Sheet) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO crm_sheets (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		sheet.ID, sheet.Name,
	)
	return eris.Wrap(err, "postgres: upsert sheet")
}

func (s *PostgresStore) GetSheet(ctx context.Context, id string) (*model.Sheet, error) {
	var sh model.Sheet
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM crm_sheets WHERE id = $1`, id).Scan(&sh.ID, &sh.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get sheet")
	}
	return &sh, nil
}

func (s *PostgresStore) ListSheets(ctx context.Context) ([]model.Sheet, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM crm_sheets ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sheets")
	}
	defer rows.Close()

	var out []model.Sheet
	for rows.Next() {
		var sh model.Sheet
		if err := rows.Scan(&sh.ID, &sh.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sheet")
		}
		out = append(out, sh)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate sheets")
}

// Subscribe starts the shared LISTEN connection on first use. A lost
// connection is redialed with backoff; changes made while it is down are
// not replayed. Once redialing gives up, current subscribers stop receiving
// events and the next Subscribe dials again.
func (s *PostgresStore) Subscribe(ctx context.Context, sheetID string) (<-chan model.ChangeEvent, error) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()

	// A failed dial leaves the listener unstarted so the next subscriber
	// tries again.
	if !s.listening {
		conn, err := s.dial(s.listenCtx)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: start listener")
		}
		s.listening = true
		go s.listen(conn)
	}
	return s.hub.Subscribe(ctx, sheetID), nil
}

type notifyPayload struct {
	Type    model.ChangeType `json:"type"`
	ID      string           `json:"id"`
	SheetID *string          `json:"sheet_id"`
}

func (s *PostgresStore) listen(conn db.NotifyConn) {
	for {
		s.drain(conn)
		_ = conn.Close(context.Background())
		if s.listenCtx.Err() != nil {
			return
		}

		next, err := resilience.DoVal(s.listenCtx, s.redial, s.dial)
		if err != nil {
			if s.listenCtx.Err() == nil {
				zap.L().Error("postgres: change listener stopped", zap.Error(err))
			}
			s.listenMu.Lock()
			s.listening = false
			s.listenMu.Unlock()
			return
		}
		zap.L().Info("postgres: change listener reconnected")
		conn = next
	}
}

// drain publishes notifications until the connection fails or the store
// closes.
func (s *PostgresStore) drain(conn db.NotifyConn) {
	for {
		n, err := conn.WaitForNotification(s.listenCtx)
		if err != nil {
			if s.listenCtx.Err() == nil {
				zap.L().Warn("postgres: change listener lost connection", zap.Error(err))
			}
			return
		}

		ev, ok := s.resolve(s.listenCtx, n.Payload)
		if ok {
			s.hub.Publish(ev)
		}
	}
}

// resolve turns a NOTIFY payload into a change event, loading the current
// row for inserts and updates.
func (s *PostgresStore) resolve(ctx context.Context, payload string) (model.ChangeEvent, bool) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		zap.L().Warn("postgres: bad change payload", zap.String("payload", payload), zap.Error(err))
		return model.ChangeEvent{}, false
	}

	ev := model.ChangeEvent{Type: p.Type, ID: p.ID, SheetID: p.SheetID}
	switch p.Type {
	case model.ChangeDelete:
		return ev, true
	case model.ChangeInsert, model.ChangeUpdate:
		c, err := s.GetClient(ctx, p.ID)
		if err != nil {
			zap.L().Warn("postgres: load changed client", zap.String("id", p.ID), zap.Error(err))
			return model.ChangeEvent{}, false
		}
		if c == nil {
			// Deleted before we could read it; the DELETE notification follows.
			return model.ChangeEvent{}, false
		}
		ev.Record = c
		ev.SheetID = c.SheetID
		return ev, true
	}
	zap.L().Warn("postgres: unknown change type", zap.String("type", string(p.Type)))
	return model.ChangeEvent{}, false
}

func scanPgClient(row pgx.Row) (*model.Client, error) {
	var (
		c                     model.Client
		stage, leadType, deal string
		visitDate             *string
		history               []byte
	)
	if err := row.Scan(&c.ID, &c.SheetID, &c.ClientName, &c.CustomerNumber, &stage, &leadType,
		&c.LocationCategory, &deal, &visitDate, &c.CallingComment, &history, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	h, err := unmarshalHistory(history)
	if err != nil {
		return nil, err
	}

	c.LeadStage = model.LeadStage(stage)
	c.LeadType = model.LeadType(leadType)
	c.DealStatus = model.DealStatus(deal)
	c.ExpectedVisitDate = visitDate
	c.CallingCommentHistory = h
	return &c, nil
}

// dateArg converts a YYYY-MM-DD string for a DATE column.
func dateArg(v *string) (any, error) {
	if v == nil {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, *v)
	if err != nil {
		return nil, eris.Wrapf(err, "parse date %q", *v)
	}
	return t, nil
}
