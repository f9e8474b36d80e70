package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ilbudget/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "datasets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := openTestCache(t)

	_, err := c.Lookup("/data/budget.xlsx")
	require.ErrorIs(t, err, ErrNotCached)

	info := DatasetInfo{
		Path: "/data/budget.xlsx", SHA256: "abc", MtimeNs: 42, SizeBytes: 1024,
		ColumnsKey: "a|b|c", Sheet: "Sheet1", TotalRows: 3, DroppedMissing: 1,
	}
	records := []model.AppropriationRecord{
		{Row: 3, Category: "Highway Funds", Fund: "Road Fund", Amount: 2e6, AmountMillions: 2},
		{Row: 2, Category: "General Funds", Fund: "GRF", Amount: 1e6, AmountMillions: 1},
	}
	require.NoError(t, c.SaveDataset(info, records))

	got, err := c.Lookup(info.Path)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.SHA256)
	assert.Equal(t, int64(42), got.MtimeNs)
	assert.Equal(t, "Sheet1", got.Sheet)
	assert.Equal(t, 1, got.DroppedMissing)
	assert.False(t, got.LoadedAt.IsZero())

	loaded, err := c.LoadRecords(info.Path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "GRF", loaded[0].Fund, "records come back in row order")
}

func TestCacheSaveReplacesWholeDataset(t *testing.T) {
	c := openTestCache(t)
	info := DatasetInfo{Path: "p", SHA256: "v1", ColumnsKey: "k"}

	require.NoError(t, c.SaveDataset(info, []model.AppropriationRecord{
		{Row: 2, Category: "A", Fund: "F1", AmountMillions: 1},
		{Row: 3, Category: "A", Fund: "F2", AmountMillions: 2},
	}))

	info.SHA256 = "v2"
	require.NoError(t, c.SaveDataset(info, []model.AppropriationRecord{
		{Row: 2, Category: "B", Fund: "F9", AmountMillions: 9},
	}))

	loaded, err := c.LoadRecords("p")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "F9", loaded[0].Fund)

	n, err := c.DatasetCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.SaveDataset(DatasetInfo{Path: "a", ColumnsKey: "k"},
		[]model.AppropriationRecord{{Row: 2, Category: "A", Fund: "F", AmountMillions: 1}}))
	require.NoError(t, c.SaveDataset(DatasetInfo{Path: "b", ColumnsKey: "k"}, nil))

	require.NoError(t, c.Invalidate("a"))
	_, err := c.Lookup("a")
	assert.ErrorIs(t, err, ErrNotCached)

	loaded, err := c.LoadRecords("a")
	require.NoError(t, err)
	assert.Empty(t, loaded, "records cascade with their dataset")

	require.NoError(t, c.Clear())
	n, err := c.DatasetCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCacheDroppedRows(t *testing.T) {
	c := openTestCache(t)
	info := DatasetInfo{
		Path: "p", SHA256: "v1", ColumnsKey: "k", TotalRows: 3, DroppedMissing: 1, DroppedNonNumeric: 1,
		Dropped: []DroppedRow{
			{Row: 4, Reason: "missing field", Value: ""},
			{Row: 3, Reason: "non-numeric amount", Value: "abc"},
		},
	}
	require.NoError(t, c.SaveDataset(info, []model.AppropriationRecord{
		{Row: 2, Category: "A", Fund: "F1", AmountMillions: 1},
	}))

	dropped, err := c.LoadDropped("p")
	require.NoError(t, err)
	require.Len(t, dropped, 2)
	assert.Equal(t, DroppedRow{Row: 3, Reason: "non-numeric amount", Value: "abc"}, dropped[0])

	// Resaving replaces the previous set.
	info.Dropped = nil
	require.NoError(t, c.SaveDataset(info, nil))
	dropped, err = c.LoadDropped("p")
	require.NoError(t, err)
	assert.Empty(t, dropped)

	info.Dropped = []DroppedRow{{Row: 5, Reason: "missing field"}}
	require.NoError(t, c.SaveDataset(info, nil))
	require.NoError(t, c.Invalidate("p"))
	dropped, err = c.LoadDropped("p")
	require.NoError(t, err)
	assert.Empty(t, dropped)
}
