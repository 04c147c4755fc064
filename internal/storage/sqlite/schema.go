// ABOUTME: SQLite database schema for the persistent example index
// ABOUTME: Named collections own labeled examples stored with BLOB vectors
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Named collections; configuration survives a reset
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    embedding_model TEXT NOT NULL,
    distance TEXT NOT NULL DEFAULT 'cosine',
    dimension INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Labeled examples; seq preserves insertion order for stable tie-breaks
CREATE TABLE IF NOT EXISTS examples (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id TEXT NOT NULL,
    text TEXT NOT NULL,
    category TEXT,
    metadata TEXT,
    vector BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_examples_collection ON examples(collection, seq);
CREATE INDEX IF NOT EXISTS idx_examples_category ON examples(collection, category);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
