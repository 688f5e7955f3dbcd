package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Cache is the best-effort search result cache. Entries expire by TTL;
// there is no invalidation protocol. Callers must treat every error as a
// miss; a broken cache never blocks a search.
type Cache struct {
	db *DB
}

// NewCache creates a cache over the store.
func NewCache(db *DB) *Cache {
	return &Cache{db: db}
}

// Get retrieves a cached value. Returns ("", false, nil) on miss or
// expiry.
func (c *Cache) Get(key string) (string, bool, error) {
	var valueJSON, expiresAt string

	err := c.db.conn.QueryRow(`
		SELECT value_json, expires_at FROM query_cache WHERE key = ?
	`, key).Scan(&valueJSON, &expiresAt)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup failed: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return "", false, fmt.Errorf("invalid expires_at format: %w", err)
	}
	if time.Now().After(expiry) {
		c.db.conn.Exec("DELETE FROM query_cache WHERE key = ?", key)
		return "", false, nil
	}

	return valueJSON, true, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(key string, valueJSON string, ttl time.Duration) error {
	now := time.Now()
	_, err := c.db.conn.Exec(`
		INSERT OR REPLACE INTO query_cache (key, value_json, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, key, valueJSON, now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// CleanupExpired removes every expired entry. Called periodically by the
// server; safe to skip.
func (c *Cache) CleanupExpired() error {
	_, err := c.db.conn.Exec("DELETE FROM query_cache WHERE expires_at < ?",
		time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to cleanup cache: %w", err)
	}
	return nil
}

// Stats returns entry count and total payload size.
func (c *Cache) Stats() (entries int, sizeBytes int, err error) {
	err = c.db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(value_json)), 0) FROM query_cache
	`).Scan(&entries, &sizeBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get cache stats: %w", err)
	}
	return entries, sizeBytes, nil
}
