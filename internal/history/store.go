// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package history keeps a SQLite ledger of finalized capture sessions.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/mediacapture/internal/capture"
	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/media"
	"github.com/ManuGH/mediacapture/internal/persistence/sqlite"
)

// ErrNotFound is returned by Get for unknown sessions.
var ErrNotFound = errors.New("session not found in history")

const recordTimeout = 5 * time.Second

// Record is one finalized session.
type Record struct {
	SessionID    string                  `json:"sessionId"`
	Kind         string                  `json:"kind"`
	Limit        int                     `json:"limit"`
	Completed    int                     `json:"completed"`
	Outcome      string                  `json:"outcome"`
	ErrorCode    *int                    `json:"errorCode,omitempty"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
	Files        []media.MediaDescriptor `json:"files"`
	FinishedAt   time.Time               `json:"finishedAt"`
}

// FromSession builds the ledger entry of a finalized session.
func FromSession(s capture.Session, finishedAt time.Time) Record {
	r := Record{
		SessionID:  s.ID,
		Kind:       s.Kind.String(),
		Limit:      s.Limit,
		Completed:  s.Completed,
		Outcome:    capture.OutcomeLabel(s),
		Files:      append([]media.MediaDescriptor{}, s.Results...),
		FinishedAt: finishedAt,
	}
	if s.Err != nil {
		var cerr *capture.Error
		if errors.As(s.Err, &cerr) {
			code := int(cerr.Code)
			r.ErrorCode = &code
			r.ErrorMessage = cerr.Message
		} else {
			r.ErrorMessage = s.Err.Error()
		}
	}
	return r
}

// Store is the history ledger.
type Store struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger zerolog.Logger
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path, now: time.Now, logger: xglog.WithComponent("history")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		limit_count INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error_code INTEGER,
		error_message TEXT NOT NULL DEFAULT '',
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_finished ON sessions(finished_at DESC);

	CREATE TABLE IF NOT EXISTS session_files (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		full_path TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		last_modified INTEGER NOT NULL,
		size INTEGER NOT NULL,
		PRIMARY KEY (session_id, position)
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores r, replacing any previous entry for the same session.
func (s *Store) Put(ctx context.Context, r Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, r.SessionID); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	var code sql.NullInt64
	if r.ErrorCode != nil {
		code = sql.NullInt64{Int64: int64(*r.ErrorCode), Valid: true}
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, kind, limit_count, completed, outcome, error_code, error_message, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Kind, r.Limit, r.Completed, r.Outcome, code, r.ErrorMessage, r.FinishedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	for i, f := range r.Files {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO session_files (session_id, position, name, full_path, mime_type, last_modified, size)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.SessionID, i, f.Name, f.FullPath, f.Type, f.LastModifiedDate, f.Size,
		); err != nil {
			return fmt.Errorf("insert file %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns the entry for one session.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, limit_count, completed, outcome, error_code, error_message, finished_at
		FROM sessions WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, err
	}
	if r.Files, err = s.files(ctx, id); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, limit_count, completed, outcome, error_code, error_message, finished_at
		FROM sessions ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Files, err = s.files(ctx, out[i].SessionID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SessionUpdated implements capture.Observer by recording finalized
// sessions. Failures are logged; the session outcome is unaffected.
func (s *Store) SessionUpdated(sess capture.Session) {
	if sess.State != capture.StateFinalized {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.Put(ctx, FromSession(sess, s.now())); err != nil {
		s.logger.Error().Err(err).
			Str(xglog.FieldEvent, "history.record_failed").
			Str(xglog.FieldSessionID, sess.ID).
			Msg("failed to record finalized session")
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r        Record
		code     sql.NullInt64
		finished int64
	)
	if err := sc.Scan(&r.SessionID, &r.Kind, &r.Limit, &r.Completed, &r.Outcome, &code, &r.ErrorMessage, &finished); err != nil {
		return Record{}, err
	}
	if code.Valid {
		c := int(code.Int64)
		r.ErrorCode = &c
	}
	r.FinishedAt = time.UnixMilli(finished).UTC()
	return r, nil
}

func (s *Store) files(ctx context.Context, id string) ([]media.MediaDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, full_path, mime_type, last_modified, size
		FROM session_files WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := []media.MediaDescriptor{}
	for rows.Next() {
		var f media.MediaDescriptor
		if err := rows.Scan(&f.Name, &f.FullPath, &f.Type, &f.LastModifiedDate, &f.Size); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
