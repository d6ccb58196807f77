package storage

// SchemaVersion is the current SQLite schema version.
const SchemaVersion = 1

// Schema creates the SQLite evidence schema. Timestamps are stored as Unix
// nanoseconds so that both drivers compare and order them identically.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    document_type TEXT NOT NULL,
    decision TEXT NOT NULL,
    compliant BOOLEAN NOT NULL,
    score REAL NOT NULL,
    score_defined BOOLEAN NOT NULL,
    compliance_level TEXT NOT NULL,
    issue_types TEXT NOT NULL DEFAULT '[]',
    message TEXT NOT NULL,
    context TEXT,
    indicators_version TEXT NOT NULL,
    decision_hash TEXT NOT NULL,
    decision_json TEXT,
    evaluated_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_recorded_at ON evidence(recorded_at);
CREATE INDEX IF NOT EXISTS idx_evidence_document_id ON evidence(document_id);
CREATE INDEX IF NOT EXISTS idx_evidence_decision ON evidence(decision);
CREATE INDEX IF NOT EXISTS idx_evidence_document_type ON evidence(document_type);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
