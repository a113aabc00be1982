// Package db persists generation runs and their generated-particle records
// in SQLite. The schema is managed by embedded migrations.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/primarygen/internal/timeutil"
)

type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// dsnPragmas are applied to every connection.
var dsnPragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	params := make([]string, 0, len(dsnPragmas))
	for _, p := range dsnPragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// OpenDB opens the database without touching the schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	// one writer at a time; workers queue on the pool instead of on SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return &DB{DB: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used to stamp runs.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

// NewDB opens the database and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// AttachAdminRoutes mounts SQL live debugging on the tsweb debug page.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://primaries.db", db.DB, &tailsql.DBOptions{
		Label: "Primaries DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
}
