package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/store/shard"
	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/logger"
)

// Summary describes one shard file.
type Summary struct {
	Path           string    `json:"path"`
	Examples       int       `json:"examples"`
	MaxFactNum     int       `json:"max_fact_num"`
	CreatedAt      time.Time `json:"created_at"`
	Verified       bool      `json:"verified"`
	CopyTokens     int       `json:"copy_tokens"`
	GenerateTokens int       `json:"generate_tokens"`
	PadFacts       int       `json:"pad_facts"`
}

func main() {
	n := flag.Int("n", -1, "print the n-th example instead of a summary")
	verify := flag.Bool("verify", true, "check the shard checksum")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.Setup(*level, "text")
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-n index] [-verify=false] shard.kbqa...")
		os.Exit(apperrors.ExitBadInput)
	}
	for _, path := range flag.Args() {
		if err := inspect(os.Stdout, path, *n, *verify); err != nil {
			slog.Error("inspect failed", "path", path, "error", err)
			os.Exit(apperrors.ExitCode(err))
		}
	}
}

func inspect(w io.Writer, path string, n int, verify bool) error {
	r, err := shard.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if verify {
		if err := r.Verify(); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if n >= 0 {
		ex, err := r.Example(n)
		if err != nil {
			return err
		}
		return enc.Encode(ex)
	}
	s, err := summarize(r)
	if err != nil {
		return err
	}
	s.Verified = verify
	return enc.Encode(s)
}

func summarize(r *shard.Reader) (*Summary, error) {
	h := r.Header()
	s := &Summary{
		Path:       r.Path(),
		Examples:   r.Len(),
		MaxFactNum: int(h.MaxFactNum),
		CreatedAt:  time.Unix(h.CreatedAt, 0).UTC(),
	}
	for i := 0; i < r.Len(); i++ {
		ex, err := r.Example(i)
		if err != nil {
			return nil, err
		}
		for _, m := range ex.AnswerModes {
			if m == dataset.Copy {
				s.CopyTokens++
			} else {
				s.GenerateTokens++
			}
		}
		for _, f := range ex.Facts {
			if f.IsPad() {
				s.PadFacts++
			}
		}
	}
	return s, nil
}
