package database

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CollationName is the collation used for name ordering. It is registered
// on every connection opened through Open.
const CollationName = "LOCALE"

var (
	driversMu sync.Mutex
	drivers   = map[string]string{} // locale tag -> registered driver name
)

// Options tunes Open.
type Options struct {
	// Locale is a BCP 47 tag selecting the collation order for names.
	// Empty means the root ("und") collation.
	Locale string
}

// Open opens sqlite with sensible defaults and the LOCALE collation.
func Open(path string, opts Options) (*sql.DB, error) {
	driver, err := driverFor(opts.Locale)
	if err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

// driverFor registers (once per locale) a sqlite3 driver whose connections
// carry the LOCALE collation for that locale.
func driverFor(locale string) (string, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = "und"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("parse locale %q: %w", locale, err)
	}
	key := tag.String()

	driversMu.Lock()
	defer driversMu.Unlock()
	if name, ok := drivers[key]; ok {
		return name, nil
	}
	name := "sqlite3_contacts_" + key
	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// collators are not safe for concurrent use; one per connection
			c := collate.New(tag)
			return conn.RegisterCollation(CollationName, c.CompareString)
		},
	})
	drivers[key] = name
	return name, nil
}

// WithTx runs fn in a transaction.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
