// Package files writes a dataset build to a local directory: train and test
// shards, the vocabulary, the KB snapshot and a manifest with build stats.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/store/shard"
)

const (
	VocabFile    = "vocab.json"
	KBFile       = "kb.json"
	ManifestFile = "stats.json"
)

// Manifest is written last; its presence marks a complete build.
type Manifest struct {
	RunID       string        `json:"run_id"`
	CreatedAt   time.Time     `json:"created_at"`
	Stats       dataset.Stats `json:"stats"`
	TrainShards []string      `json:"train_shards"`
	TestShards  []string      `json:"test_shards"`
}

type Sink struct {
	dir       string
	shardSize int
	logger    *slog.Logger
}

func New(dir string, shardSize int) *Sink {
	return &Sink{
		dir:       dir,
		shardSize: shardSize,
		logger:    slog.Default().With("component", "file-sink", "dir", dir),
	}
}

func (s *Sink) Name() string { return "file" }

// Ping checks that the output directory can be created and written.
func (s *Sink) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Sink) Write(ctx context.Context, runID string, ds *dataset.Dataset) error {
	w := shard.NewWriter(s.dir)
	manifest := Manifest{RunID: runID, CreatedAt: time.Now().UTC(), Stats: ds.Stats}

	var err error
	if len(ds.Train) > 0 {
		if manifest.TrainShards, err = w.WritePartition(dataset.Train, ds.Train, s.shardSize); err != nil {
			return fmt.Errorf("writing train shards: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ds.Test) > 0 {
		if manifest.TestShards, err = w.WritePartition(dataset.Test, ds.Test, s.shardSize); err != nil {
			return fmt.Errorf("writing test shards: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeAtomic(filepath.Join(s.dir, VocabFile), ds.Vocab.WriteTo); err != nil {
		return fmt.Errorf("writing vocabulary: %w", err)
	}
	if ds.KB != nil {
		if err := writeJSON(filepath.Join(s.dir, KBFile), ds.KB.Snapshot()); err != nil {
			return fmt.Errorf("writing kb snapshot: %w", err)
		}
	}
	if err := writeJSON(filepath.Join(s.dir, ManifestFile), manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	s.logger.Info("dataset written",
		"train_shards", len(manifest.TrainShards),
		"test_shards", len(manifest.TestShards),
	)
	return nil
}

func (s *Sink) Close() error { return nil }

// ReadManifest loads the manifest of a build directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func writeJSON(path string, v any) error {
	return writeAtomic(path, func(w io.Writer) (int64, error) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return 0, enc.Encode(v)
	})
}

func writeAtomic(path string, write func(io.Writer) (int64, error)) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
