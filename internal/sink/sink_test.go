package sink

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/metrics"
)

type fakeSink struct {
	name    string
	pingErr error
	err     error
	writes  atomic.Int32
	closed  bool
}

func (f *fakeSink) Name() string                 { return f.name }
func (f *fakeSink) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeSink) Write(ctx context.Context, runID string, ds *dataset.Dataset) error {
	f.writes.Add(1)
	return f.err
}
func (f *fakeSink) Close() error { f.closed = true; return nil }

func TestWriteAll(t *testing.T) {
	a, b := &fakeSink{name: "a"}, &fakeSink{name: "b"}
	m := metrics.New(nil)
	if err := WriteAll(context.Background(), "r", &dataset.Dataset{}, m, a, b); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if a.writes.Load() != 1 || b.writes.Load() != 1 {
		t.Errorf("writes a=%d b=%d", a.writes.Load(), b.writes.Load())
	}
}

func TestWriteAllError(t *testing.T) {
	boom := errors.New("boom")
	a, b := &fakeSink{name: "a"}, &fakeSink{name: "b", err: boom}
	err := WriteAll(context.Background(), "r", &dataset.Dataset{}, nil, a, b)
	if !errors.Is(err, boom) {
		t.Errorf("WriteAll = %v, want boom", err)
	}
}

func TestPreflight(t *testing.T) {
	up := &fakeSink{name: "file"}
	down := &fakeSink{name: "redis", pingErr: errors.New("refused")}
	if _, err := Preflight(context.Background(), time.Second, up); err != nil {
		t.Errorf("Preflight(up) = %v", err)
	}
	report, err := Preflight(context.Background(), time.Second, up, down)
	if !errors.Is(err, apperrors.ErrSinkUnavailable) {
		t.Errorf("Preflight = %v, want ErrSinkUnavailable", err)
	}
	if len(report.Components) != 2 {
		t.Errorf("components = %d", len(report.Components))
	}
}

func TestCloseAll(t *testing.T) {
	a, b := &fakeSink{name: "a"}, &fakeSink{name: "b"}
	if err := CloseAll(a, b); err != nil {
		t.Fatal(err)
	}
	if !a.closed || !b.closed {
		t.Error("every sink should be closed")
	}
}
