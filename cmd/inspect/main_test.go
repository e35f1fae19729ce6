package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/kb"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/store/shard"
	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
)

func writeShard(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	examples := []dataset.Example{
		{
			Position:    0,
			Partition:   dataset.Test,
			AnswerModes: []dataset.Mode{dataset.Copy, dataset.Generate},
			Facts:       []kb.Triple{{Subject: "a", Relation: "r", Object: "b"}, kb.PadTriple},
		},
		{
			Position:    1,
			Partition:   dataset.Test,
			AnswerModes: []dataset.Mode{dataset.Generate},
			Facts:       []kb.Triple{kb.PadTriple, kb.PadTriple},
		},
	}
	if err := shard.NewWriter(dir).Write("test-00000.kbqa", examples); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "test-00000.kbqa")
}

func TestInspectSummary(t *testing.T) {
	path := writeShard(t)
	var out bytes.Buffer
	if err := inspect(&out, path, -1, true); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var s Summary
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if s.Examples != 2 || s.MaxFactNum != 2 || !s.Verified {
		t.Errorf("summary = %+v", s)
	}
	if s.CopyTokens != 1 || s.GenerateTokens != 2 || s.PadFacts != 3 {
		t.Errorf("counts copy=%d generate=%d pad=%d", s.CopyTokens, s.GenerateTokens, s.PadFacts)
	}
}

func TestInspectExample(t *testing.T) {
	path := writeShard(t)
	var out bytes.Buffer
	if err := inspect(&out, path, 1, true); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var ex dataset.Example
	if err := json.Unmarshal(out.Bytes(), &ex); err != nil {
		t.Fatal(err)
	}
	if ex.Position != 1 {
		t.Errorf("position = %d, want 1", ex.Position)
	}
}

func TestInspectCorrupt(t *testing.T) {
	path := writeShard(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[shard.HeaderSize+3] ^= 0x01
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	err = inspect(&bytes.Buffer{}, path, -1, true)
	if !errors.Is(err, apperrors.ErrCorruptShard) {
		t.Errorf("inspect = %v, want ErrCorruptShard", err)
	}
}
