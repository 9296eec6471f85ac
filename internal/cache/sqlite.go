package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// diskTier is the persistent cache tier. One process is assumed to write to
// the file; cross-process coherency is out of scope. Single statements rely
// on SQLite's own transaction semantics, no cross-row transactions needed.
type diskTier struct {
	db *sql.DB
}

// openDiskTier opens the cache database, creating the schema if needed.
func openDiskTier(path string) (*diskTier, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d := &diskTier{db: db}
	if err := d.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return d, nil
}

// newDiskTier wraps an already-open database (shared with other tables).
func newDiskTier(db *sql.DB) (*diskTier, error) {
	d := &diskTier{db: db}
	if err := d.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return d, nil
}

func (d *diskTier) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_cache (
		cache_key   TEXT PRIMARY KEY,
		response    TEXT NOT NULL,
		model_used  TEXT NOT NULL,
		token_count INTEGER DEFAULT 0,
		created_at  INTEGER NOT NULL,
		ttl_seconds INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_llm_cache_created ON llm_cache(created_at);
	`
	_, err := d.db.Exec(schema)
	return err
}

// get returns a fresh entry or nil. Expired rows found on read are deleted
// lazily.
func (d *diskTier) get(key string, now time.Time) (*Entry, error) {
	var (
		response   string
		modelUsed  string
		tokenCount int
		createdAt  int64
		ttlSeconds int64
	)
	err := d.db.QueryRow(`
		SELECT response, model_used, token_count, created_at, ttl_seconds
		FROM llm_cache WHERE cache_key = ?
	`, key).Scan(&response, &modelUsed, &tokenCount, &createdAt, &ttlSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e := &Entry{
		Key:        key,
		Response:   []byte(response),
		ModelUsed:  modelUsed,
		TokenCount: tokenCount,
		CreatedAt:  time.Unix(createdAt, 0).UTC(),
		TTL:        time.Duration(ttlSeconds) * time.Second,
	}
	if e.expired(now) {
		_, _ = d.db.Exec(`DELETE FROM llm_cache WHERE cache_key = ?`, key)
		return nil, nil
	}
	return e, nil
}

// put upserts an entry.
func (d *diskTier) put(e *Entry) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO llm_cache
			(cache_key, response, model_used, token_count, created_at, ttl_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Key, string(e.Response), e.ModelUsed, e.TokenCount,
		e.CreatedAt.Unix(), int64(e.TTL/time.Second))
	return err
}

// sweep bulk-deletes expired rows, returning the number removed.
func (d *diskTier) sweep(now time.Time) (int, error) {
	res, err := d.db.Exec(
		`DELETE FROM llm_cache WHERE created_at + ttl_seconds < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// invalidate removes rows whose key starts with prefix; empty prefix clears
// the table. Returns the number removed.
func (d *diskTier) invalidate(prefix string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if prefix == "" {
		res, err = d.db.Exec(`DELETE FROM llm_cache`)
	} else {
		res, err = d.db.Exec(`DELETE FROM llm_cache WHERE cache_key LIKE ?`, prefix+"%")
	}
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// count returns the number of rows, expired or not.
func (d *diskTier) count() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM llm_cache`).Scan(&n)
	return n, err
}
