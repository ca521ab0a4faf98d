package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// DBConnKey carries a request-scoped connection, used to keep repository
// calls on the same connection inside a transaction.
const DBConnKey contextKey = "db_conn"

// WithConn returns a context carrying the given pooled connection.
func WithConn(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, DBConnKey, conn)
}

// ConnFromContext retrieves the request-scoped connection, if any. Callers
// fall back to the pool when this returns nil.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}
