// Package database opens the SQLite file that holds reader preferences.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

const (
	prefsDir  = ".itpulse"
	prefsFile = "prefs.db"

	defaultBusyTimeout = 5 * time.Second
)

// Config locates the preferences file. BusyTimeout bounds how long a
// write waits for a concurrent writer; zero uses five seconds.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DefaultConfig keeps preferences in the reader's home directory, or in
// the working directory when there is none.
func DefaultConfig() Config {
	base, err := os.UserHomeDir()
	if err != nil || base == "" {
		base = "."
	}
	return Config{Path: filepath.Join(base, prefsDir, prefsFile)}
}

// DSN is the go-sqlite3 connection string for c: WAL journal and a busy
// timeout so theme writes from parallel requests queue instead of failing.
func (c Config) DSN() string {
	timeout := c.BusyTimeout
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", fmt.Sprint(timeout.Milliseconds()))
	return "file:" + c.Path + "?" + q.Encode()
}

// Open creates the directory of the preferences file if needed and
// returns a verified connection pool.
func Open(cfg Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create preferences dir: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping preferences: %w", err)
	}

	log.WithField("path", cfg.Path).Debug("Preferences store opened")
	return db, nil
}

func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("Cannot open preferences store")
	}
	return db
}
