package alarmlib

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type sqlDialect struct {
	create string
	get    string
	put    string
}

var sqlDialects = map[string]sqlDialect{
	DriverSQLite: {
		create: `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BLOB NOT NULL)`,
		get:    `SELECT value FROM kv WHERE key = ?`,
		put:    `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
	},
	DriverPostgres: {
		create: `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BYTEA NOT NULL)`,
		get:    `SELECT value FROM kv WHERE key = $1`,
		put:    `INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
	},
}

// SQLKV stores records in a single two-column table. It backs both the
// embedded sqlite database and a postgres server.
type SQLKV struct {
	db      *sql.DB
	dialect sqlDialect
}

// OpenSQL opens driver ("sqlite" or "postgres") at dsn and creates the table
// if needed.
func OpenSQL(driver, dsn string) (*SQLKV, error) {
	dialect, ok := sqlDialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// a single connection serializes writers on the embedded file
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(dialect.create); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLKV{db: db, dialect: dialect}, nil
}

func (s *SQLKV) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLKV) Put(key string, value []byte) error {
	_, err := s.db.Exec(s.dialect.put, key, value)
	return err
}

func (s *SQLKV) Close() error {
	return s.db.Close()
}
