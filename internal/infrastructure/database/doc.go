// Package database provides SQLite persistence for VibeLink Core.
//
// It wraps database/sql with lifecycle management, WAL-mode configuration,
// health checks, and an embedded-migration runner.
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the top-level migrations package; importing
// it for side effects registers the SQL files:
//
//	import _ "github.com/vibelink/vibelink-core/migrations"
//
// # Thread Safety
//
// The underlying pool is limited to a single connection (SQLite has one
// writer); all methods are safe for concurrent use.
package database
