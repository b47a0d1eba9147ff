package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var Schema string

type execer interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

// InitSchema creates the monit schema and its tables if they are missing.
func InitSchema(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
