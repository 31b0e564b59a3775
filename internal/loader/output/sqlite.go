// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"graphloader/internal/loader/graph"

	_ "modernc.org/sqlite"
)

// SQLite schema:
//
// CREATE TABLE IF NOT EXISTS records (
//   seq    INTEGER PRIMARY KEY AUTOINCREMENT,
//   phase  TEXT NOT NULL,
//   kind   TEXT NOT NULL,
//   id     TEXT NOT NULL,
//   header INTEGER NOT NULL DEFAULT 0,
//   body   TEXT NOT NULL
// );
//
// Records are buffered per output and inserted in one transaction per batch.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	seq    INTEGER PRIMARY KEY AUTOINCREMENT,
	phase  TEXT NOT NULL,
	kind   TEXT NOT NULL,
	id     TEXT NOT NULL,
	header INTEGER NOT NULL DEFAULT 0,
	body   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_phase_kind ON records(phase, kind);
`

const sqliteBatchSize = 512

type pendingRow struct {
	phase graph.Phase
	rec   Record
}

// SQLiteOutput stores records in a local SQLite database (WAL mode).
type SQLiteOutput struct {
	db *sql.DB
	// Per-call timeout when the caller's ctx has no deadline.
	defaultTimeout time.Duration

	mu      sync.Mutex
	pending []pendingRow
}

// NewSQLiteOutput opens (or creates) the database at path and applies the schema.
func NewSQLiteOutput(path string) (*SQLiteOutput, error) {
	if path == "" {
		return nil, errors.New("sqlite output requires output.sqlite.path")
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteOutput{db: db, defaultTimeout: 10 * time.Second}, nil
}

func (s *SQLiteOutput) Write(ctx context.Context, phase graph.Phase, rec Record) error {
	s.mu.Lock()
	s.pending = append(s.pending, pendingRow{phase: phase, rec: rec})
	full := len(s.pending) >= sqliteBatchSize
	s.mu.Unlock()
	if full {
		return s.commit(ctx)
	}
	return nil
}

// Flush commits everything buffered so far. Rows of other phases never
// remain buffered across a phase boundary, so flushing all is equivalent.
func (s *SQLiteOutput) Flush(ctx context.Context, _ graph.Phase) error {
	return s.commit(ctx)
}

func (s *SQLiteOutput) Close() error {
	err := s.commit(context.Background())
	return errors.Join(err, s.db.Close())
}

// DB exposes the handle for inspection.
func (s *SQLiteOutput) DB() *sql.DB { return s.db }

func (s *SQLiteOutput) commit(ctx context.Context) error {
	s.mu.Lock()
	rows := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && s.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.defaultTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// Ensure rollback on any failure.
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records(phase, kind, id, header, body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		header := 0
		if r.rec.Header {
			header = 1
		}
		if _, err := stmt.ExecContext(ctx, r.phase.String(), string(r.rec.Kind), r.rec.ID, header, string(r.rec.Body)); err != nil {
			return fmt.Errorf("insert record %s: %w", r.rec.ID, err)
		}
	}
	return tx.Commit()
}
