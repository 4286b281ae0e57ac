package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when an account row changed since it was read.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrDuplicate is returned when a constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
	path string
}

// Tx exposes the store operations. It is bound either to a database
// transaction (WithTx) or to the plain connection (Queries).
type Tx struct {
	q querier
}

// NewDB opens a database connection and runs migrations.
//
// Writers start with BEGIN IMMEDIATE so two transactions touching the same
// account never interleave their read-modify-write cycles.
func NewDB(path string) (*DB, error) {
	dsn := "file::memory:?_pragma=foreign_keys(1)&_txlock=immediate&_time_format=sqlite"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_txlock=immediate&_time_format=sqlite", path)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every connection to :memory: is a distinct database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			owner_name TEXT NOT NULL DEFAULT '',
			iban TEXT NOT NULL DEFAULT '',
			variable_symbol TEXT UNIQUE NOT NULL,
			balance TEXT NOT NULL DEFAULT '0',
			budget_limit TEXT NOT NULL DEFAULT '0',
			savings TEXT NOT NULL DEFAULT '0',
			savings_goal TEXT NOT NULL DEFAULT '0',
			lock_end_time DATETIME,
			version INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			sender_id INTEGER REFERENCES accounts(id),
			receiver_id INTEGER NOT NULL REFERENCES accounts(id),
			amount TEXT NOT NULL,
			kind TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			counterparty TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_id, created_at)`,
		`CREATE TRIGGER IF NOT EXISTS transactions_no_update BEFORE UPDATE ON transactions
		BEGIN
			SELECT RAISE(ABORT, 'transactions are append-only');
		END`,
		`CREATE TRIGGER IF NOT EXISTS transactions_no_delete BEFORE DELETE ON transactions
		BEGIN
			SELECT RAISE(ABORT, 'transactions are append-only');
		END`,
		`CREATE TABLE IF NOT EXISTS money_requests (
			id TEXT PRIMARY KEY,
			sender_id INTEGER NOT NULL REFERENCES accounts(id),
			receiver_id INTEGER NOT NULL REFERENCES accounts(id),
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_money_requests_receiver ON money_requests(receiver_id)`,
		`CREATE TABLE IF NOT EXISTS processed_notifications (
			key TEXT PRIMARY KEY,
			variable_symbol TEXT NOT NULL,
			amount TEXT NOT NULL,
			transaction_id TEXT NOT NULL DEFAULT '',
			processed_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			account_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			published_at DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events(published_at, created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Queries returns store operations that run outside any transaction.
// Do not call it from inside a WithTx callback.
func (db *DB) Queries() *Tx {
	return &Tx{q: db.conn}
}

// WithTx executes fn within a transaction.
// If fn returns an error or panics, the transaction is rolled back.
// Otherwise, the transaction is committed.
func (db *DB) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func isConstraintError(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
