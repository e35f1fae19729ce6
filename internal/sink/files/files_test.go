package files

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/store/shard"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/config"
)

type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

func buildDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	var qa strings.Builder
	for i := 0; i < 10; i++ {
		qa.WriteString("where is paris\tfrance\n")
	}
	cfg := config.DatasetConfig{MaxFactNum: 3, TrainRatio: 0.8, Workers: 2}
	b := dataset.NewBuilder(cfg, fieldsTokenizer{}, rand.New(rand.NewPCG(7, 7)))
	ds, err := b.Build(context.Background(),
		strings.NewReader(qa.String()),
		strings.NewReader("paris located_in france\n"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ds
}

func TestWriteLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := New(dir, 4)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	ds := buildDataset(t)
	if err := s.Write(context.Background(), "run-1", ds); err != nil {
		t.Fatalf("Write: %v", err)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.RunID != "run-1" || m.Stats != ds.Stats {
		t.Errorf("manifest = %+v", m)
	}
	// 8 train examples in shards of 4, 2 test examples in one shard.
	if len(m.TrainShards) != 2 || len(m.TestShards) != 1 {
		t.Fatalf("shards train=%v test=%v", m.TrainShards, m.TestShards)
	}

	total := 0
	for _, name := range append(m.TrainShards, m.TestShards...) {
		r, err := shard.OpenReader(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("OpenReader(%s): %v", name, err)
		}
		if err := r.Verify(); err != nil {
			t.Errorf("Verify(%s): %v", name, err)
		}
		total += r.Len()
		r.Close()
	}
	if total != 10 {
		t.Errorf("total examples = %d, want 10", total)
	}

	f, err := os.Open(filepath.Join(dir, VocabFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	table, err := vocab.Read(f, fieldsTokenizer{})
	if err != nil {
		t.Fatalf("vocab.Read: %v", err)
	}
	if table.Size() != ds.Vocab.Size() {
		t.Errorf("restored vocab size = %d, want %d", table.Size(), ds.Vocab.Size())
	}
	if _, err := os.Stat(filepath.Join(dir, KBFile)); err != nil {
		t.Errorf("kb snapshot missing: %v", err)
	}
}

func TestPingUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New(filepath.Join(file, "sub"), 0).Ping(context.Background()); err == nil {
		t.Error("expected error when output dir sits under a regular file")
	}
}
