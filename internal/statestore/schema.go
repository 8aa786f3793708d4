package statestore

// SchemaPostgres creates the checkpoint table for a Postgres-backed store.
const SchemaPostgres = `
CREATE TABLE IF NOT EXISTS agent_checkpoints (
	task_id           TEXT PRIMARY KEY,
	status            TEXT NOT NULL,
	cycle_index       INTEGER NOT NULL DEFAULT 0,
	pending_directive TEXT,
	messages          JSONB NOT NULL DEFAULT '[]',
	cycles            JSONB NOT NULL DEFAULT '[]',
	token_usage       JSONB NOT NULL DEFAULT '{}',
	version           BIGINT NOT NULL
)`

// SchemaSQLite creates the equivalent table for a SQLite-backed store.
const SchemaSQLite = `
CREATE TABLE IF NOT EXISTS agent_checkpoints (
	task_id           TEXT PRIMARY KEY,
	status            TEXT NOT NULL,
	cycle_index       INTEGER NOT NULL DEFAULT 0,
	pending_directive TEXT,
	messages          TEXT NOT NULL DEFAULT '[]',
	cycles            TEXT NOT NULL DEFAULT '[]',
	token_usage       TEXT NOT NULL DEFAULT '{}',
	version           INTEGER NOT NULL
)`

// Migrate creates the checkpoint table if it does not already exist.
func (s *SQLStore) Migrate(schema string) error {
	_, err := s.db.Exec(schema)
	return err
}
