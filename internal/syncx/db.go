package syncx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/db/migrations"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenRemote connects to the remote Postgres store through the pgx stdlib
// driver and brings the sync schema up to date.
func OpenRemote(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate remote schema: %w", err)
	}

	return db, nil
}
