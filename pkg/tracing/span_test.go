package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/logger"
)

func TestSpanTree(t *testing.T) {
	ctx := logger.WithRunID(context.Background(), "run-7")
	ctx, root := Start(ctx, "build")
	_, kbSpan := Start(ctx, "load_kb")
	kbSpan.SetAttr("facts", 3)
	kbSpan.End()
	root.End()

	if root.RunID != "run-7" || kbSpan.RunID != "run-7" {
		t.Errorf("run ids = %q, %q", root.RunID, kbSpan.RunID)
	}
	if root.Child("load_kb") != kbSpan {
		t.Fatal("child not linked to parent")
	}
	if root.Child("missing") != nil {
		t.Error("Child(missing) should be nil")
	}

	var buf bytes.Buffer
	root.Log(logger.New(&buf, "info", "text"))
	out := buf.String()
	if strings.Count(out, "msg=stage") != 2 {
		t.Errorf("expected two stage records, got:\n%s", out)
	}
	if !strings.Contains(out, "stage=load_kb") || !strings.Contains(out, "facts=3") {
		t.Errorf("child record missing attrs:\n%s", out)
	}
}
