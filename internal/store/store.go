// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store archives finished research runs in a SQLite database and
// serves the `reports list` and `reports search` surfaces. The archive is
// append-only: a run is written once, after its report is rendered.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kuraryu/deep-research/internal/workflow"
	"github.com/kuraryu/deep-research/pkg/types"
)

const (
	dbFile            = "research.db"
	defaultMaxResults = 20
)

// Store manages the run archive database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the archive database at dir/research.db,
// creating the schema if it does not exist.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			started TEXT,
			finished TEXT,
			degraded INTEGER NOT NULL DEFAULT 0,
			iterations INTEGER,
			document_count INTEGER,
			report_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			identifier TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			url TEXT,
			published TEXT,
			depth INTEGER,
			origin_query TEXT,
			UNIQUE(run_id, identifier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id)`,
		`CREATE TABLE IF NOT EXISTS contradictions (
			run_id TEXT NOT NULL REFERENCES runs(id),
			summary TEXT NOT NULL,
			document_ids TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE documents_fts USING fts5(title, summary, content=documents, content_rowid=rowid)`,
			`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
				INSERT INTO documents_fts(rowid, title, summary) VALUES (new.rowid, new.title, new.summary);
			END`,
			`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, summary) VALUES('delete', old.rowid, old.title, old.summary);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveRun archives one finished run: the run row, every collected document,
// and all contradiction findings, in a single transaction.
func (s *Store) SaveRun(ctx context.Context, st *workflow.ResearchState, reportPath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	degraded := 0
	if st.Degraded {
		degraded = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, query, started, finished, degraded, iterations, document_count, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RunID, st.Query,
		st.StartedAt.UTC().Format(time.RFC3339),
		st.FinishedAt.UTC().Format(time.RFC3339),
		degraded, st.Iterations, len(st.Documents), reportPath,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (run_id, identifier, kind, title, summary, url, published, depth, origin_query)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range st.Documents {
		published := ""
		if !d.Published.IsZero() {
			published = d.Published.UTC().Format(time.RFC3339)
		}
		_, err := stmt.ExecContext(ctx,
			st.RunID, d.Identifier, string(d.SourceKind), d.Title, d.Summary,
			d.URL, published, d.Depth, d.OriginQueryID,
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", d.Identifier, err)
		}
	}

	for _, c := range st.Contradictions {
		idsJSON, _ := json.Marshal(c.DocumentIDs)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO contradictions (run_id, summary, document_ids) VALUES (?, ?, ?)`,
			st.RunID, c.Summary, string(idsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting contradiction: %w", err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of `reports list`.
type RunSummary struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
	Degraded      bool      `json:"degraded"`
	Iterations    int       `json:"iterations"`
	DocumentCount int       `json:"document_count"`
	ReportPath    string    `json:"report_path"`
}

// ListRuns returns archived runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, started, finished, degraded, iterations, document_count, report_path
		 FROM runs ORDER BY started DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r                 RunSummary
			started, finished string
			degraded          int
		)
		if err := rows.Scan(&r.ID, &r.Query, &started, &finished, &degraded,
			&r.Iterations, &r.DocumentCount, &r.ReportPath); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started, _ = time.Parse(time.RFC3339, started)
		r.Finished, _ = time.Parse(time.RFC3339, finished)
		r.Degraded = degraded != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SearchHit is one full-text match from the document archive.
type SearchHit struct {
	RunID      string           `json:"run_id"`
	RunQuery   string           `json:"run_query"`
	Identifier string           `json:"identifier"`
	Kind       types.SourceKind `json:"kind"`
	Title      string           `json:"title"`
	Summary    string           `json:"summary"`
	URL        string           `json:"url,omitempty"`
}

// SearchDocuments runs an FTS5 query over archived document titles and
// summaries, ranked by relevance. A non-positive limit uses the default.
func (s *Store) SearchDocuments(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = defaultMaxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.run_id, r.query, d.identifier, d.kind, d.title, d.summary, d.url
		 FROM documents_fts
		 JOIN documents d ON d.rowid = documents_fts.rowid
		 LEFT JOIN runs r ON d.run_id = r.id
		 WHERE documents_fts MATCH ?
		 ORDER BY documents_fts.rank
		 LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying document archive: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var (
			h        SearchHit
			runQuery sql.NullString
			kind     string
			url      sql.NullString
		)
		if err := rows.Scan(&h.RunID, &runQuery, &h.Identifier, &kind, &h.Title, &h.Summary, &url); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		h.Kind = types.SourceKind(kind)
		h.RunQuery = runQuery.String
		h.URL = url.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
