package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// Dialect selects the placeholder syntax and schema a SQLStore targets.
// The same query logic works against Postgres (github.com/lib/pq) and
// SQLite (github.com/mattn/go-sqlite3 or modernc.org/sqlite); only the
// placeholder style differs.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLConfig configures a SQLStore's underlying *sql.DB pool.
type SQLConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultSQLConfig returns sane pool defaults for a durable State Store.
func DefaultSQLConfig() *SQLConfig {
	return &SQLConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// SQLStore implements Store on top of database/sql, using a row-level
// version column to enforce the Save's compare-and-swap contract.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore opens driverName (already imported for its side-effecting
// sql.Register, e.g. "postgres" or "sqlite3") against dsn and verifies
// connectivity before returning.
func NewSQLStore(driverName, dsn string, dialect Dialect, cfg *SQLConfig) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("statestore: dsn is required")
	}
	if cfg == nil {
		cfg = DefaultSQLConfig()
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("statestore: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("statestore: ping database: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// NewSQLStoreFromDB wraps an already-open *sql.DB, e.g. one under test with
// github.com/DATA-DOG/go-sqlmock.
func NewSQLStoreFromDB(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// placeholder returns the n-th (1-based) bind placeholder for this dialect.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Load(ctx context.Context, taskID string) (*models.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT task_id, status, cycle_index, pending_directive, messages, cycles, token_usage, version
		FROM agent_checkpoints WHERE task_id = %s`, s.placeholder(1))
	row := s.db.QueryRowContext(ctx, query, taskID)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: load checkpoint: %w", err)
	}
	return cp, nil
}

// Save performs an atomic compare-and-swap: it updates the row only if its
// current version matches expectedVersion, or inserts the first row when
// expectedVersion is 0 and none exists yet.
func (s *SQLStore) Save(ctx context.Context, checkpoint *models.Checkpoint, expectedVersion int64) error {
	if checkpoint == nil {
		return fmt.Errorf("statestore: nil checkpoint")
	}

	messagesJSON, err := json.Marshal(checkpoint.Messages)
	if err != nil {
		return fmt.Errorf("statestore: marshal messages: %w", err)
	}
	cyclesJSON, err := json.Marshal(checkpoint.Cycles)
	if err != nil {
		return fmt.Errorf("statestore: marshal cycles: %w", err)
	}
	usageJSON, err := json.Marshal(checkpoint.TokenUsage)
	if err != nil {
		return fmt.Errorf("statestore: marshal token usage: %w", err)
	}
	newVersion := expectedVersion + 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("statestore: begin tx: %w", err)
	}
	defer tx.Rollback()

	if expectedVersion == 0 {
		insert := fmt.Sprintf(`
			INSERT INTO agent_checkpoints
				(task_id, status, cycle_index, pending_directive, messages, cycles, token_usage, version)
			VALUES (%s,%s,%s,%s,%s,%s,%s,%s)`,
			s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
			s.placeholder(5), s.placeholder(6), s.placeholder(7), s.placeholder(8))
		_, err = tx.ExecContext(ctx, insert,
			checkpoint.TaskID, string(checkpoint.Status), checkpoint.CycleIndex,
			string(checkpoint.PendingDirective), messagesJSON, cyclesJSON, usageJSON, newVersion)
		if isUniqueViolation(err) {
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("statestore: insert checkpoint: %w", err)
		}
	} else {
		update := fmt.Sprintf(`
			UPDATE agent_checkpoints
			SET status = %s, cycle_index = %s, pending_directive = %s,
				messages = %s, cycles = %s, token_usage = %s, version = %s
			WHERE task_id = %s AND version = %s`,
			s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
			s.placeholder(5), s.placeholder(6), s.placeholder(7),
			s.placeholder(8), s.placeholder(9))
		res, err := tx.ExecContext(ctx, update,
			string(checkpoint.Status), checkpoint.CycleIndex, string(checkpoint.PendingDirective),
			messagesJSON, cyclesJSON, usageJSON, newVersion,
			checkpoint.TaskID, expectedVersion)
		if err != nil {
			return fmt.Errorf("statestore: update checkpoint: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("statestore: rows affected: %w", err)
		}
		if affected == 0 {
			return ErrVersionConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("statestore: commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, taskID string) error {
	query := fmt.Sprintf(`DELETE FROM agent_checkpoints WHERE task_id = %s`, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, taskID)
	if err != nil {
		return fmt.Errorf("statestore: delete checkpoint: %w", err)
	}
	return nil
}

func (s *SQLStore) ListPending(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT task_id FROM agent_checkpoints
		WHERE status NOT IN (%s, %s)`, s.placeholder(1), s.placeholder(2))
	rows, err := s.db.QueryContext(ctx, query, string(models.TaskCompleted), string(models.TaskFailed))
	if err != nil {
		return nil, fmt.Errorf("statestore: list pending: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("statestore: scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(scanner rowScanner) (*models.Checkpoint, error) {
	var (
		cp               models.Checkpoint
		status           string
		pendingDirective sql.NullString
		messagesJSON     []byte
		cyclesJSON       []byte
		usageJSON        []byte
	)
	if err := scanner.Scan(
		&cp.TaskID, &status, &cp.CycleIndex, &pendingDirective,
		&messagesJSON, &cyclesJSON, &usageJSON, &cp.Version,
	); err != nil {
		return nil, err
	}
	cp.Status = models.TaskStatus(status)
	if pendingDirective.Valid {
		cp.PendingDirective = models.Directive(pendingDirective.String)
	}
	if len(messagesJSON) > 0 {
		if err := json.Unmarshal(messagesJSON, &cp.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
	}
	if len(cyclesJSON) > 0 {
		if err := json.Unmarshal(cyclesJSON, &cp.Cycles); err != nil {
			return nil, fmt.Errorf("unmarshal cycles: %w", err)
		}
	}
	if len(usageJSON) > 0 {
		if err := json.Unmarshal(usageJSON, &cp.TokenUsage); err != nil {
			return nil, fmt.Errorf("unmarshal token usage: %w", err)
		}
	}
	return &cp, nil
}

// isUniqueViolation reports whether err looks like a primary-key conflict,
// covering both lib/pq's and SQLite drivers' error text since they do not
// share a typed sentinel.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "duplicate key") || contains(msg, "UNIQUE constraint")
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
