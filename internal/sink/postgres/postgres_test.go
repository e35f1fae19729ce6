package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/config"
	pkgpostgres "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/postgres"
)

type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *pkgpostgres.Client {
	t.Helper()
	cfg := config.Default().Postgres
	db, err := pkgpostgres.New(cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWriteRun(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()

	cfg := config.DatasetConfig{MaxFactNum: 2, TrainRatio: 0.5, Workers: 1}
	ds, err := dataset.NewBuilder(cfg, fieldsTokenizer{}, rand.New(rand.NewPCG(3, 3))).Build(ctx,
		strings.NewReader("where is paris\tfrance\nwhere is rome\titaly\n"),
		strings.NewReader("paris located_in france\nrome located_in italy\n"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	s := New(db, 0)
	runID := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { s.DeleteRun(context.Background(), runID) })
	if err := s.Write(ctx, runID, ds); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, p := range []dataset.Partition{dataset.Train, dataset.Test} {
		n, err := s.ExampleCount(ctx, runID, p)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("%s count = %d, want 1", p, n)
		}
	}
	ex, err := s.Example(ctx, runID, dataset.Test, ds.Test[0].Position)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ex.AnswerTokens, " ") != strings.Join(ds.Test[0].AnswerTokens, " ") {
		t.Errorf("stored answer = %v, want %v", ex.AnswerTokens, ds.Test[0].AnswerTokens)
	}
}
