package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
    path                 TEXT PRIMARY KEY,
    sha256               TEXT NOT NULL,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    columns_key          TEXT NOT NULL,
    sheet                TEXT,
    total_rows           INTEGER NOT NULL,
    dropped_missing      INTEGER NOT NULL,
    dropped_non_numeric  INTEGER NOT NULL,
    loaded_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
    path                 TEXT NOT NULL REFERENCES datasets(path) ON DELETE CASCADE,
    row_num              INTEGER NOT NULL,
    category             TEXT NOT NULL,
    fund                 TEXT NOT NULL,
    amount               REAL NOT NULL,
    amount_millions      REAL NOT NULL,
    PRIMARY KEY (path, row_num)
);

CREATE TABLE IF NOT EXISTS dropped_rows (
    path                 TEXT NOT NULL REFERENCES datasets(path) ON DELETE CASCADE,
    row_num              INTEGER NOT NULL,
    reason               TEXT NOT NULL,
    value                TEXT NOT NULL,
    PRIMARY KEY (path, row_num)
);

CREATE INDEX IF NOT EXISTS idx_records_category ON records(path, category);
`
