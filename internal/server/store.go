package server

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/streamconsole/internal/activity"
	"github.com/matthewbaird/streamconsole/internal/store"
)

// MemoryDSN selects the in-memory stores.
const MemoryDSN = "memory"

// Stores are the persistence backends the server runs on.
type Stores struct {
	Records  store.Store
	Activity activity.Store
}

// OpenStores opens the record and activity stores named by dsn and returns
// them with their close function. Both live in the same database.
func OpenStores(ctx context.Context, dsn string) (Stores, func() error, error) {
	if dsn == MemoryDSN {
		return Stores{Records: store.NewMemoryStore(), Activity: activity.NewMemoryStore()},
			func() error { return nil }, nil
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return Stores{}, nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	records := store.NewSQLiteStore(db)
	if err := records.CreateTable(ctx); err != nil {
		db.Close()
		return Stores{}, nil, err
	}
	hist := activity.NewSQLiteStore(db)
	if err := hist.CreateTable(ctx); err != nil {
		db.Close()
		return Stores{}, nil, err
	}
	return Stores{Records: records, Activity: hist}, db.Close, nil
}
