// Package postgres stores dataset builds in PostgreSQL. Each build is one
// row in kbqa_runs; its examples and vocabulary are bulk-loaded with COPY.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	pkgpostgres "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS kbqa_runs (
	run_id     TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	stats      JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS kbqa_examples (
	run_id    TEXT NOT NULL REFERENCES kbqa_runs(run_id) ON DELETE CASCADE,
	partition TEXT NOT NULL,
	position  INTEGER NOT NULL,
	example   JSONB NOT NULL,
	PRIMARY KEY (run_id, partition, position)
);
CREATE TABLE IF NOT EXISTS kbqa_vocab (
	run_id TEXT NOT NULL REFERENCES kbqa_runs(run_id) ON DELETE CASCADE,
	idx    INTEGER NOT NULL,
	word   TEXT NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, idx)
);`

type Sink struct {
	db        *pkgpostgres.Client
	batchSize int
	logger    *slog.Logger
}

func New(db *pkgpostgres.Client, batchSize int) *Sink {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sink{
		db:        db,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "postgres-sink"),
	}
}

func (s *Sink) Name() string { return "postgres" }

func (s *Sink) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// EnsureSchema creates the dataset tables if they do not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *Sink) Write(ctx context.Context, runID string, ds *dataset.Dataset) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	stats, err := json.Marshal(ds.Stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kbqa_runs (run_id, stats) VALUES ($1, $2)`, runID, string(stats)); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		examples := ds.All()
		err := pkgpostgres.CopyIn(ctx, tx, "kbqa_examples",
			[]string{"run_id", "partition", "position", "example"},
			func(emit func(...any) error) error {
				for i, ex := range examples {
					if i%s.batchSize == 0 {
						if err := ctx.Err(); err != nil {
							return err
						}
					}
					data, err := json.Marshal(ex)
					if err != nil {
						return fmt.Errorf("marshaling example %d: %w", ex.Position, err)
					}
					if err := emit(runID, string(ex.Partition), ex.Position, string(data)); err != nil {
						return err
					}
				}
				return nil
			})
		if err != nil {
			return err
		}
		words := ds.Vocab.Words()
		err = pkgpostgres.CopyIn(ctx, tx, "kbqa_vocab",
			[]string{"run_id", "idx", "word", "count"},
			func(emit func(...any) error) error {
				for i, w := range words {
					if err := emit(runID, i, w, ds.Vocab.Count(w)); err != nil {
						return err
					}
				}
				return nil
			})
		if err != nil {
			return err
		}
		s.logger.Info("run stored",
			"run_id", runID,
			"examples", len(examples),
			"words", len(words),
		)
		return nil
	})
}

// ExampleCount returns how many examples of a partition are stored for a run.
func (s *Sink) ExampleCount(ctx context.Context, runID string, partition dataset.Partition) (int, error) {
	var n int
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM kbqa_examples WHERE run_id = $1 AND partition = $2`,
		runID, string(partition)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting examples: %w", err)
	}
	return n, nil
}

// Example loads one stored example.
func (s *Sink) Example(ctx context.Context, runID string, partition dataset.Partition, position int) (*dataset.Example, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT example FROM kbqa_examples WHERE run_id = $1 AND partition = $2 AND position = $3`,
		runID, string(partition), position).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("loading example: %w", err)
	}
	var ex dataset.Example
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("decoding example: %w", err)
	}
	return &ex, nil
}

// DeleteRun removes a run and, by cascade, its examples and vocabulary.
func (s *Sink) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.DB.ExecContext(ctx, `DELETE FROM kbqa_runs WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *Sink) Close() error { return nil }
