// Package store keeps an index of benchmark runs and per-method scores in
// SQLite or PostgreSQL so results can be compared across runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/hyperifyio/pdfxbench/internal/compare"
	"github.com/hyperifyio/pdfxbench/internal/schema"
)

// Dialect names the SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const dialTimeout = 5 * time.Second

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id          TEXT PRIMARY KEY,
		started_at      TEXT NOT NULL,
		finished_at     TEXT NOT NULL,
		total_pdfs      INTEGER NOT NULL,
		successful_pdfs INTEGER NOT NULL,
		output_dir      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		run_id          TEXT NOT NULL,
		document_id     TEXT NOT NULL,
		method          TEXT NOT NULL,
		rank            INTEGER NOT NULL,
		success         BOOLEAN NOT NULL,
		overall_score   DOUBLE PRECISION NOT NULL,
		table_count     INTEGER NOT NULL,
		text_blocks     INTEGER NOT NULL,
		avg_confidence  DOUBLE PRECISION,
		processing_time DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, document_id, method)
	)`,
}

// Store is an open results index.
type Store struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
}

// ParseDSN picks the backend: postgres:// and postgresql:// URLs go to
// PostgreSQL, anything else is a SQLite path with an optional sqlite:
// prefix.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", errors.New("store: empty DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	default:
		return SQLite, dsn, nil
	}
}

// Open connects and creates the tables when missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dialect, target, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{dialect: dialect}
	switch dialect {
	case Postgres:
		pc, err := pgxpool.ParseConfig(target)
		if err != nil {
			return nil, fmt.Errorf("store: parse dsn: %w", err)
		}
		pc.MaxConns = 4
		pc.ConnConfig.RuntimeParams["application_name"] = "pdfxbench"
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dctx, pc)
		if err != nil {
			return nil, fmt.Errorf("store: connect: %w", err)
		}
		s.pool = pool
		s.db = stdlib.OpenDBFromPool(pool)
	default:
		db, err := sql.Open("sqlite", target)
		if err != nil {
			return nil, fmt.Errorf("store: open sqlite: %w", err)
		}
		// one writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
		s.db = db
	}
	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	log.Debug().Str("dialect", string(dialect)).Msg("results index ready")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Dialect reports the backend in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Run is one row of the runs table.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	TotalPDFs      int
	SuccessfulPDFs int
	OutputDir      string
}

// RecordRun inserts or updates a run.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	q := s.rebind(`INSERT INTO runs (run_id, started_at, finished_at, total_pdfs, successful_pdfs, output_dir)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			total_pdfs = excluded.total_pdfs,
			successful_pdfs = excluded.successful_pdfs,
			output_dir = excluded.output_dir`)
	_, err := s.db.ExecContext(ctx, q, r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.TotalPDFs, r.SuccessfulPDFs, r.OutputDir)
	if err != nil {
		return fmt.Errorf("store: record run: %w", err)
	}
	return nil
}

// RecordScores stores every ranked method of one document comparison in a
// single transaction. Rank 1 is the best overall method.
func (s *Store) RecordScores(ctx context.Context, runID, docID string, c compare.Comparison) error {
	if c.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()
	q := s.rebind(`INSERT INTO scores (run_id, document_id, method, rank, success, overall_score, table_count, text_blocks, avg_confidence, processing_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, document_id, method) DO UPDATE SET
			rank = excluded.rank,
			success = excluded.success,
			overall_score = excluded.overall_score,
			table_count = excluded.table_count,
			text_blocks = excluded.text_blocks,
			avg_confidence = excluded.avg_confidence,
			processing_time = excluded.processing_time`)
	for i, sc := range c.Ranked() {
		var conf sql.NullFloat64
		if sc.Confidence.AvgConfidence != nil {
			conf = sql.NullFloat64{Float64: *sc.Confidence.AvgConfidence, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, q, runID, docID, string(sc.Method), i+1, sc.Basic.Success, sc.OverallScore,
			sc.Table.TableCount, sc.Text.TextBlockCount, conf, sc.ProcessingTime); err != nil {
			return fmt.Errorf("store: record %s: %w", sc.Method, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// MethodStat aggregates one method across every recorded document.
type MethodStat struct {
	Method    schema.Method `json:"method"`
	Documents int           `json:"documents"`
	MeanScore float64       `json:"mean_score"`
	Wins      int           `json:"wins"`
}

// TopMethods ranks methods by mean overall score, ties by name.
func (s *Store) TopMethods(ctx context.Context, limit int) ([]MethodStat, error) {
	if limit <= 0 {
		limit = len(schema.Methods)
	}
	q := s.rebind(`SELECT method, COUNT(*), AVG(overall_score), SUM(CASE WHEN rank = 1 THEN 1 ELSE 0 END)
		FROM scores GROUP BY method ORDER BY AVG(overall_score) DESC, method ASC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top methods: %w", err)
	}
	defer rows.Close()
	var out []MethodStat
	for rows.Next() {
		var m MethodStat
		var method string
		if err := rows.Scan(&method, &m.Documents, &m.MeanScore, &m.Wins); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		m.Method = schema.Method(method)
		out = append(out, m)
	}
	return out, rows.Err()
}

// RunCount returns how many runs are recorded.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}
