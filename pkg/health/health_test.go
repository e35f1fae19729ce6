package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
)

func TestRunAllUp(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("file", func(context.Context) error { return nil })
	c.Register("redis", func(context.Context) error { return nil })
	report := c.Run(context.Background())
	if report.Status != StatusUp {
		t.Errorf("Status = %s, want up", report.Status)
	}
	if len(report.Components) != 2 {
		t.Errorf("components = %d, want 2", len(report.Components))
	}
	if err := report.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestRunOneDown(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("file", func(context.Context) error { return nil })
	c.Register("kafka", func(context.Context) error { return errors.New("connection refused") })
	report := c.Run(context.Background())
	if report.Status != StatusDown {
		t.Fatalf("Status = %s, want down", report.Status)
	}
	if got := report.Components["kafka"]; got.Status != StatusDown || got.Message != "connection refused" {
		t.Errorf("kafka = %+v", got)
	}
	err := report.Err()
	if !errors.Is(err, apperrors.ErrSinkUnavailable) {
		t.Errorf("Err() = %v, want ErrSinkUnavailable", err)
	}
	if !strings.Contains(err.Error(), "kafka") || strings.Contains(err.Error(), "file") {
		t.Errorf("Err() = %q should name only kafka", err)
	}
}

func TestRunTimeout(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	report := c.Run(context.Background())
	if report.Components["slow"].Status != StatusDown {
		t.Errorf("slow check should time out, got %+v", report.Components["slow"])
	}
}
