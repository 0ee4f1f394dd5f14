package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// NotifyConn is a dedicated connection that receives LISTEN notifications.
// *pgx.Conn satisfies it.
type NotifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Listen opens a connection outside any pool and subscribes it to channel.
func Listen(ctx context.Context, connString, channel string) (NotifyConn, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "db: connect listener")
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, eris.Wrapf(err, "db: LISTEN %s", channel)
	}
	return conn, nil
}
