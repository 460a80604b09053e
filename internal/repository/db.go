package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type DB struct {
	db     *sql.DB
	driver string
	clock  clockwork.Clock
}

type Option func(*DB)

// WithClock sets the time source used for created/updated timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(d *DB) {
		d.clock = c
	}
}

// Open connects to sqlite (dsn is a file path or ":memory:") or Postgres via
// pgx (dsn is a connection URL) and applies the schema.
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if driver == DriverSQLite {
		// one connection keeps :memory: databases shared and serializes writes
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	d := &DB{
		db:     db,
		driver: driver,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return d, nil
}

func NewSQLiteDB(path string, opts ...Option) (*DB, error) {
	return Open(DriverSQLite, path, opts...)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sensors (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL,
		status TEXT NOT NULL,
		installed_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id TEXT PRIMARY KEY,
		sensor_id TEXT NOT NULL,
		sensor_type TEXT NOT NULL,
		location TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON sensor_readings(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_type ON sensor_readings(sensor_type)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		level INTEGER NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		recommendation TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp)`,
	`CREATE TABLE IF NOT EXISTS evacuation_routes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		key_points TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		associated_risk TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS shelters (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		max_capacity INTEGER NOT NULL,
		current_capacity INTEGER NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		contact TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS mobility_data (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		traffic_level TEXT NOT NULL,
		estimated_travel_minutes INTEGER NOT NULL,
		timestamp TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS communities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		estimated_population INTEGER NOT NULL DEFAULT 0,
		main_contact TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS aid_requests (
		id TEXT PRIMARY KEY,
		community_id TEXT NOT NULL REFERENCES communities(id),
		aid_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		available_quantity DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		storage_location TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES aid_requests(id),
		resource_id TEXT NOT NULL REFERENCES resources(id),
		quantity DOUBLE PRECISION NOT NULL,
		allocated_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_allocations_request ON allocations(request_id)`,
}

func (d *DB) migrate() error {
	for _, stmt := range schema {
		if _, err := d.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
