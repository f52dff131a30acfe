package sqlite

// Schema DDL for the state database.
const (
	createState = `CREATE TABLE IF NOT EXISTS state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	pragmaJournal = `PRAGMA journal_mode = WAL;`
	pragmaBusy    = `PRAGMA busy_timeout = 5000;`
)

var schemaStatements = []string{pragmaJournal, pragmaBusy, createState}
