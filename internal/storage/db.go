package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps the SQL connection together with its dialect.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	path    string // database file for sqlite, empty otherwise
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to driver ("sqlite", "postgres" or "mysql") at dsn and
// runs the schema migrations. For sqlite, dsn is a file path.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	d, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	var path string
	switch d {
	case SQLite:
		path = dsn
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		conn, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite only supports one writer; limit to single connection to prevent SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	case Postgres:
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		// Report matched rows so an unchanged UPDATE is not mistaken for a missing row.
		cfg.ClientFoundRows = true
		conn, err = sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}

	db := &DB{conn: conn, dialect: d, path: path}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Dialect returns the SQL dialect in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Path returns the sqlite database file, or "" for server databases.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) rebind(query string) string {
	return db.dialect.Rebind(query)
}

// insert runs an INSERT and returns the generated id.
func (db *DB) insert(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	query = db.rebind(query)
	if db.dialect == Postgres {
		var id int64
		err := q.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// withTx runs fn in a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) migrate(ctx context.Context) error {
	for _, m := range db.dialect.schema() {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			// MySQL has no CREATE INDEX IF NOT EXISTS; a duplicate index is already migrated
			if db.dialect == MySQL && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
