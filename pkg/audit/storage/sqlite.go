package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"veil-hq/relay/pkg/audit"
)

// SQLiteStorage persists turn records in a SQLite database. WAL mode is
// enabled for concurrent reads against the single writer.
type SQLiteStorage struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	insertStmt *sql.Stmt
	listStmt   *sql.Stmt
	countStmt  *sql.Stmt
	deleteStmt *sql.Stmt

	logger *slog.Logger
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks. Default 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteStorage opens (or creates) the database and prepares the
// statement set.
func NewSQLiteStorage(cfg SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, &audit.StorageError{
			Backend:   "sqlite",
			Operation: "open",
			Cause:     fmt.Errorf("db path cannot be empty"),
		}
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &audit.StorageError{Backend: "sqlite", Operation: "open", Cause: err}
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default().With("component", "audit.storage.sqlite"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite audit storage initialized", "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "create_schema", Cause: err}
	}
	if _, err := s.db.Exec(insertSchemaVersion, schemaVersion); err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "get_schema_version", Cause: err}
	}
	if version != schemaVersion {
		return &audit.StorageError{
			Backend:   "sqlite",
			Operation: "schema_version",
			Cause:     fmt.Errorf("expected schema version %d, got %d", schemaVersion, version),
		}
	}
	return nil
}

func (s *SQLiteStorage) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO turns (
			id, session_id, status,
			masked_prompt, masked_completion, entity_types,
			input_tokens, output_tokens,
			provider, model, latency_ms,
			error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "prepare_insert", Cause: err}
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, session_id, status,
		       masked_prompt, masked_completion, entity_types,
		       input_tokens, output_tokens,
		       provider, model, latency_ms,
		       error, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?`)
	if err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "prepare_list", Cause: err}
	}

	s.countStmt, err = s.db.Prepare(`SELECT COUNT(*) FROM turns`)
	if err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "prepare_count", Cause: err}
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM turns WHERE created_at < ?`)
	if err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "prepare_delete", Cause: err}
	}

	return nil
}

// Store persists one turn record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.TurnRecord) error {
	entityTypes, _ := json.Marshal(record.EntityTypes)

	var errorVal interface{}
	if record.Error != "" {
		errorVal = record.Error
	}

	_, err := s.insertStmt.ExecContext(ctx,
		record.ID, record.SessionID, record.Status,
		record.MaskedPrompt, record.MaskedCompletion, string(entityTypes),
		record.InputTokens, record.OutputTokens,
		record.Provider, record.Model, record.Latency.Milliseconds(),
		errorVal, record.CreatedAt,
	)
	if err != nil {
		return &audit.StorageError{Backend: "sqlite", Operation: "store", Cause: err}
	}
	return nil
}

// List returns records for a session, newest first.
func (s *SQLiteStorage) List(ctx context.Context, sessionID string, limit int) ([]*audit.TurnRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.listStmt.QueryContext(ctx, sessionID, limit)
	if err != nil {
		return nil, &audit.StorageError{Backend: "sqlite", Operation: "list", Cause: err}
	}
	defer rows.Close()

	var out []*audit.TurnRecord
	for rows.Next() {
		rec, err := scanTurn(rows)
		if err != nil {
			return nil, &audit.StorageError{Backend: "sqlite", Operation: "scan", Cause: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &audit.StorageError{Backend: "sqlite", Operation: "list", Cause: err}
	}
	return out, nil
}

// Count returns the total number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, &audit.StorageError{Backend: "sqlite", Operation: "count", Cause: err}
	}
	return n, nil
}

// DeleteOlderThan removes records created before the cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.deleteStmt.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, &audit.StorageError{Backend: "sqlite", Operation: "delete", Cause: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &audit.StorageError{Backend: "sqlite", Operation: "delete", Cause: err}
	}
	return deleted, nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.insertStmt, s.listStmt, s.countStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

func scanTurn(rows *sql.Rows) (*audit.TurnRecord, error) {
	var rec audit.TurnRecord
	var entityTypes string
	var errorVal sql.NullString
	var latencyMs int64

	err := rows.Scan(
		&rec.ID, &rec.SessionID, &rec.Status,
		&rec.MaskedPrompt, &rec.MaskedCompletion, &entityTypes,
		&rec.InputTokens, &rec.OutputTokens,
		&rec.Provider, &rec.Model, &latencyMs,
		&errorVal, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entityTypes != "" && entityTypes != "null" {
		if err := json.Unmarshal([]byte(entityTypes), &rec.EntityTypes); err != nil {
			return nil, err
		}
	}
	rec.Error = errorVal.String
	rec.Latency = time.Duration(latencyMs) * time.Millisecond
	return &rec, nil
}
