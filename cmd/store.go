package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estate-crm/internal/audit"
	"github.com/sells-group/estate-crm/internal/crm"
	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("cli"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL, cfg.Realtime.Buffer)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
			Buffer:   cfg.Realtime.Buffer,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func newService(st store.Store) *crm.Service {
	return crm.NewService(st, audit.NewLogger(st))
}

// actorFromFlags builds the acting staff member from --staff-id and
// --staff-name.
func actorFromFlags(id, name string) (model.Actor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Actor{}, eris.New("--staff-id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return model.Actor{ID: id, Name: name}, nil
}
