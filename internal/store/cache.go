// Package store provides a SQLite-backed cache for parsed appropriations datasets.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/ilbudget/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed dataset caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// DatasetInfo identifies one cached parse of a source file.
type DatasetInfo struct {
	Path              string
	SHA256            string
	MtimeNs           int64
	SizeBytes         int64
	ColumnsKey        string
	Sheet             string
	TotalRows         int
	DroppedMissing    int
	DroppedNonNumeric int
	LoadedAt          time.Time

	// Dropped is written by SaveDataset; Lookup leaves it empty, see LoadDropped.
	Dropped []DroppedRow
}

// DroppedRow is one source row excluded during parsing.
type DroppedRow struct {
	Row    int
	Reason string
	Value  string
}

// ErrNotCached is returned by Lookup when no entry exists for the path.
var ErrNotCached = errors.New("dataset not cached")

// Lookup returns the tracked info for path.
func (c *Cache) Lookup(path string) (DatasetInfo, error) {
	var info DatasetInfo
	var sheet sql.NullString
	var loadedAt string
	err := c.db.QueryRow(`SELECT path, sha256, mtime_ns, size_bytes, columns_key, sheet,
		total_rows, dropped_missing, dropped_non_numeric, loaded_at
		FROM datasets WHERE path = ?`, path).Scan(
		&info.Path, &info.SHA256, &info.MtimeNs, &info.SizeBytes, &info.ColumnsKey, &sheet,
		&info.TotalRows, &info.DroppedMissing, &info.DroppedNonNumeric, &loadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return info, ErrNotCached
	}
	if err != nil {
		return info, err
	}
	if sheet.Valid {
		info.Sheet = sheet.String
	}
	info.LoadedAt, _ = time.Parse(time.RFC3339, loadedAt)
	return info, nil
}

// SaveDataset replaces the cached records for info.Path.
func (c *Cache) SaveDataset(info DatasetInfo, records []model.AppropriationRecord) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Whole-dataset invalidation: old rows go with the old entry.
	if _, err := tx.Exec("DELETE FROM records WHERE path = ?", info.Path); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM dropped_rows WHERE path = ?", info.Path); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT OR REPLACE INTO datasets
		(path, sha256, mtime_ns, size_bytes, columns_key, sheet,
		 total_rows, dropped_missing, dropped_non_numeric, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.Path, info.SHA256, info.MtimeNs, info.SizeBytes, info.ColumnsKey, info.Sheet,
		info.TotalRows, info.DroppedMissing, info.DroppedNonNumeric, now,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO records
		(path, row_num, category, fund, amount, amount_millions)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.Exec(info.Path, r.Row, r.Category, r.Fund, r.Amount, r.AmountMillions); err != nil {
			return err
		}
	}

	if len(info.Dropped) > 0 {
		dstmt, err := tx.Prepare(`INSERT OR REPLACE INTO dropped_rows
			(path, row_num, reason, value) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = dstmt.Close() }()
		for _, d := range info.Dropped {
			if _, err := dstmt.Exec(info.Path, d.Row, d.Reason, d.Value); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadDropped reads the dropped rows recorded for path in source row order.
func (c *Cache) LoadDropped(path string) ([]DroppedRow, error) {
	rows, err := c.db.Query(`SELECT row_num, reason, value
		FROM dropped_rows WHERE path = ? ORDER BY row_num`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []DroppedRow
	for rows.Next() {
		var d DroppedRow
		if err := rows.Scan(&d.Row, &d.Reason, &d.Value); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LoadRecords reads the cached records for path in source row order.
func (c *Cache) LoadRecords(path string) ([]model.AppropriationRecord, error) {
	rows, err := c.db.Query(`SELECT row_num, category, fund, amount, amount_millions
		FROM records WHERE path = ? ORDER BY row_num`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []model.AppropriationRecord
	for rows.Next() {
		var r model.AppropriationRecord
		if err := rows.Scan(&r.Row, &r.Category, &r.Fund, &r.Amount, &r.AmountMillions); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Invalidate removes the cached dataset for path.
func (c *Cache) Invalidate(path string) error {
	_, err := c.db.Exec("DELETE FROM datasets WHERE path = ?", path)
	return err
}

// Clear removes every cached dataset.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM datasets")
	return err
}

// DatasetCount returns the number of cached datasets.
func (c *Cache) DatasetCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM datasets").Scan(&count)
	return count, err
}
