package storage

// schemaVersion is the current turn-record schema version.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS turns (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    status TEXT NOT NULL,

    masked_prompt TEXT NOT NULL,
    masked_completion TEXT,
    entity_types TEXT,

    input_tokens INTEGER,
    output_tokens INTEGER,

    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    latency_ms INTEGER,

    error TEXT,

    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

const getSchemaVersion = `SELECT MAX(version) FROM schema_version`
