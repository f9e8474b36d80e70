package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/source"
	"github.com/theirongolddev/ilbudget/internal/store"

	"go.uber.org/zap"
)

// LoadResult holds the output of the dataset loading pipeline.
type LoadResult struct {
	Path      string
	Sheet     string
	SHA256    string
	Records   []model.AppropriationRecord
	Report    source.DropReport
	FromCache bool
	LoadTime  time.Duration

	mtimeNs int64
	size    int64
}

// LoadOptions selects what to read from the source file.
type LoadOptions struct {
	Path    string
	Sheet   string
	Columns source.Columns
}

func (o LoadOptions) columnsKey() string {
	return o.Sheet + "|" + o.Columns.Category + "|" + o.Columns.Fund + "|" + o.Columns.Amount
}

// Loader reads datasets and memoizes them for the life of the process.
// A changed file (mtime or size) is reparsed as a whole.
type Loader struct {
	cache *store.Cache // optional persistent cache
	log   *zap.Logger

	mu   sync.Mutex
	memo map[string]*LoadResult
}

// NewLoader creates a Loader. cache may be nil to skip the SQLite cache.
func NewLoader(cache *store.Cache, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		cache: cache,
		log:   log,
		memo:  make(map[string]*LoadResult),
	}
}

// Load returns the cleaned records for opts.Path.
// Any error is a *source.DataSourceError and is fatal to the session.
func (l *Loader) Load(opts LoadOptions) (*LoadResult, error) {
	start := time.Now()

	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, &source.DataSourceError{Path: opts.Path, Op: "resolve path", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &source.DataSourceError{Path: abs, Op: "stat", Err: err}
	}
	if info.IsDir() {
		return nil, &source.DataSourceError{Path: abs, Op: "stat", Err: errors.New("is a directory")}
	}
	mtime, size := info.ModTime().UnixNano(), info.Size()
	memoKey := abs + "\x00" + opts.columnsKey()

	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.memo[memoKey]; ok && cached.mtimeNs == mtime && cached.size == size {
		return cached, nil
	}

	result, err := l.loadFromStore(abs, opts, mtime, size)
	if err != nil {
		return nil, err
	}
	result.mtimeNs = mtime
	result.size = size
	result.LoadTime = time.Since(start)

	l.logDrops(result)
	l.memo[memoKey] = result
	return result, nil
}

// Invalidate forgets every memoized parse of path.
func (l *Loader) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, r := range l.memo {
		if r.Path == abs {
			delete(l.memo, k)
		}
	}
	if l.cache != nil {
		if err := l.cache.Invalidate(abs); err != nil {
			l.log.Warn("cache invalidate failed", zap.String("path", abs), zap.Error(err))
		}
	}
}

func (l *Loader) loadFromStore(abs string, opts LoadOptions, mtime, size int64) (*LoadResult, error) {
	key := opts.columnsKey()

	if l.cache != nil {
		tracked, err := l.cache.Lookup(abs)
		switch {
		case errors.Is(err, store.ErrNotCached):
		case err != nil:
			l.log.Warn("cache lookup failed, doing full parse", zap.String("path", abs), zap.Error(err))
		case tracked.ColumnsKey == key && tracked.MtimeNs == mtime && tracked.SizeBytes == size:
			if r, ok := l.fromCache(abs, tracked); ok {
				return r, nil
			}
		}
	}

	sum, err := fileSHA256(abs)
	if err != nil {
		return nil, &source.DataSourceError{Path: abs, Op: "read", Err: err}
	}

	if l.cache != nil {
		// Touched but unchanged content: refresh tracking, keep records.
		if tracked, err := l.cache.Lookup(abs); err == nil && tracked.SHA256 == sum && tracked.ColumnsKey == key {
			if r, ok := l.fromCache(abs, tracked); ok {
				tracked.MtimeNs, tracked.SizeBytes = mtime, size
				tracked.Dropped = storeDropped(r.Report.Rows)
				if err := l.cache.SaveDataset(tracked, r.Records); err != nil {
					l.log.Warn("cache refresh failed", zap.String("path", abs), zap.Error(err))
				}
				return r, nil
			}
		}
	}

	table, err := source.ReadTable(abs, opts.Sheet)
	if err != nil {
		return nil, err
	}
	records, report, err := source.ParseRecords(table, opts.Columns)
	if err != nil {
		return nil, &source.DataSourceError{Path: abs, Op: "parse", Err: err}
	}

	result := &LoadResult{
		Path:    abs,
		Sheet:   table.Sheet,
		SHA256:  sum,
		Records: records,
		Report:  report,
	}

	if l.cache != nil {
		info := store.DatasetInfo{
			Path:              abs,
			SHA256:            sum,
			MtimeNs:           mtime,
			SizeBytes:         size,
			ColumnsKey:        key,
			Sheet:             table.Sheet,
			TotalRows:         report.TotalRows,
			DroppedMissing:    report.Missing,
			DroppedNonNumeric: report.NonNumeric,
			Dropped:           storeDropped(report.Rows),
		}
		if err := l.cache.SaveDataset(info, records); err != nil {
			l.log.Warn("cache save failed", zap.String("path", abs), zap.Error(err))
		}
	}

	return result, nil
}

func (l *Loader) fromCache(abs string, tracked store.DatasetInfo) (*LoadResult, bool) {
	records, err := l.cache.LoadRecords(abs)
	if err != nil {
		l.log.Warn("cache read failed, doing full parse", zap.String("path", abs), zap.Error(err))
		return nil, false
	}
	dropped, err := l.cache.LoadDropped(abs)
	if err != nil {
		l.log.Warn("cache read failed, doing full parse", zap.String("path", abs), zap.Error(err))
		return nil, false
	}
	report := source.DropReport{
		TotalRows:  tracked.TotalRows,
		Kept:       len(records),
		Missing:    tracked.DroppedMissing,
		NonNumeric: tracked.DroppedNonNumeric,
	}
	for _, d := range dropped {
		report.Rows = append(report.Rows, source.DroppedRow{Row: d.Row, Reason: source.DropReason(d.Reason), Value: d.Value})
	}
	return &LoadResult{
		Path:      abs,
		Sheet:     tracked.Sheet,
		SHA256:    tracked.SHA256,
		Records:   records,
		Report:    report,
		FromCache: true,
	}, true
}

func storeDropped(rows []source.DroppedRow) []store.DroppedRow {
	out := make([]store.DroppedRow, 0, len(rows))
	for _, d := range rows {
		out = append(out, store.DroppedRow{Row: d.Row, Reason: string(d.Reason), Value: d.Value})
	}
	return out
}

func (l *Loader) logDrops(r *LoadResult) {
	if r.Report.Dropped() == 0 {
		return
	}
	l.log.Warn("dropped incomplete rows",
		zap.String("path", r.Path),
		zap.Int("missing", r.Report.Missing),
		zap.Int("non_numeric", r.Report.NonNumeric),
		zap.Int("kept", r.Report.Kept),
		zap.Bool("from_cache", r.FromCache),
	)
	for _, d := range r.Report.Rows {
		l.log.Debug("dropped row",
			zap.Int("row", d.Row),
			zap.String("reason", string(d.Reason)),
			zap.String("value", d.Value),
		)
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the local user
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ilbudget")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "ilbudget")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "datasets.db")
}
