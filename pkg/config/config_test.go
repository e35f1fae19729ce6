package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataset.MaxFactNum != 4 {
		t.Errorf("MaxFactNum = %d, want 4", cfg.Dataset.MaxFactNum)
	}
	if cfg.Dataset.TrainRatio != 0.9 {
		t.Errorf("TrainRatio = %v, want 0.9", cfg.Dataset.TrainRatio)
	}
	if got := cfg.Dataset.QAPath(); got != "data/qa_pairs" {
		t.Errorf("QAPath = %q", got)
	}
	if !cfg.Output.Enabled(SinkFile) || cfg.Output.Enabled(SinkKafka) {
		t.Errorf("unexpected default sinks %v", cfg.Output.Sinks)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	yaml := `
dataset:
  dataDir: /srv/kbqa
  maxFactNum: 8
  seed: 42
tokenizer:
  entityPattern: "[A-Z][a-z]+"
output:
  sinks: [file, redis]
  retry:
    maxAttempts: 5
    initialDelay: 1s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KP_TRAIN_RATIO", "0.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataset.MaxFactNum != 8 || cfg.Dataset.Seed != 42 {
		t.Errorf("dataset = %+v", cfg.Dataset)
	}
	if cfg.Dataset.TrainRatio != 0.5 {
		t.Errorf("env override not applied: TrainRatio = %v", cfg.Dataset.TrainRatio)
	}
	if got := cfg.Dataset.KBPath(); got != "/srv/kbqa/kb_facts" {
		t.Errorf("KBPath = %q", got)
	}
	if !cfg.Output.Enabled(SinkRedis) {
		t.Errorf("redis sink not enabled: %v", cfg.Output.Sinks)
	}
	if r := cfg.Output.Retry; r.MaxAttempts != 5 || r.InitialDelay != time.Second || r.MaxDelay != 5*time.Second {
		t.Errorf("retry = %+v", r)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero facts", func(c *Config) { c.Dataset.MaxFactNum = 0 }},
		{"ratio above one", func(c *Config) { c.Dataset.TrainRatio = 1.5 }},
		{"ratio zero", func(c *Config) { c.Dataset.TrainRatio = 0 }},
		{"bad pattern", func(c *Config) { c.Tokenizer.EntityPattern = "([" }},
		{"bad normalize", func(c *Config) { c.Tokenizer.Normalize = "nfd" }},
		{"unknown sink", func(c *Config) { c.Output.Sinks = []string{"s3"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, apperrors.ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
