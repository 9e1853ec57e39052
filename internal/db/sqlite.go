// Package db provides database connectivity helpers and migration support.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// Supported database/sql driver names.
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverModernc = "sqlite"  // modernc.org/sqlite (pure Go)
)

// SQLite DSN parameters for production hardening.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

// OpenSQLite opens a *sql.DB pool for the given SQLite file path.
//
// mode controls write-safety and pool sizing:
//   - "write": MaxOpenConns=1, MaxIdleConns=1, includes _txlock=immediate
//   - "read":  MaxOpenConns=maxOpen (use 0 for default of 4), query_only
//
// Both modes set busy_timeout=5000ms, synchronous=NORMAL and foreign_keys=on.
// The write pool switches the file to WAL, which persists for readers.
func OpenSQLite(driver, path, mode string, maxOpen int) (*sql.DB, error) {
	if mode != "read" && mode != "write" {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	dsn, err := buildDSN(driver, path, mode)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	switch mode {
	case "write":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "read":
		if maxOpen <= 0 {
			maxOpen = 4
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	// Verify the connection is usable.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return db, nil
}

// OpenSQLitePair opens both a write pool (MaxOpenConns=1) and a read pool
// for the same SQLite file. Ingestion uses the write pool; ad-hoc and panel
// queries use the read pool.
//
// readMaxOpen controls the read pool size (0 defaults to 4).
func OpenSQLitePair(driver, path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(driver, path, "write", 0)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = OpenSQLite(driver, path, "read", readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

// buildDSN constructs a SQLite DSN with hardened parameters in the syntax
// of the selected driver.
func buildDSN(driver, path, mode string) (string, error) {
	params := url.Values{}
	switch driver {
	case DriverMattn:
		if mode == "write" {
			params.Set("_journal_mode", defaultJournalMode)
			params.Set("_txlock", "immediate")
		} else {
			params.Set("_query_only", "true")
		}
		params.Set("_busy_timeout", defaultBusyTimeout)
		params.Set("_synchronous", defaultSynchronous)
		params.Set("_foreign_keys", "on")
		return path + "?" + params.Encode(), nil

	case DriverModernc:
		// busy_timeout must come first so later pragmas wait on locks.
		params.Add("_pragma", "busy_timeout("+defaultBusyTimeout+")")
		if mode == "write" {
			params.Add("_pragma", "journal_mode("+defaultJournalMode+")")
			params.Set("_txlock", "immediate")
		} else {
			params.Add("_pragma", "query_only(1)")
		}
		params.Add("_pragma", "synchronous("+defaultSynchronous+")")
		params.Add("_pragma", "foreign_keys(1)")
		return "file:" + path + "?" + params.Encode(), nil

	default:
		return "", fmt.Errorf("unsupported sqlite driver %q: must be %q or %q", driver, DriverMattn, DriverModernc)
	}
}
