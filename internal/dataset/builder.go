package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/kb"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// Option configures a Builder.
type Option func(*Builder)

// WithMetrics records build counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithKBHook runs fn once the KB is loaded and before any QA text is
// tokenized.
func WithKBHook(fn func(*kb.Index)) Option {
	return func(b *Builder) { b.kbHook = fn }
}

// Builder runs one pass from raw QA/KB text to a Dataset. A Builder is not
// safe for concurrent Builds since they share the random source.
type Builder struct {
	cfg     config.DatasetConfig
	tok     vocab.Tokenizer
	rng     *rand.Rand
	metrics *metrics.Metrics
	kbHook  func(*kb.Index)
	logger  *slog.Logger
}

// NewBuilder creates a Builder. rng drives the pool shuffle and fact
// truncation; the same rng state and inputs give the same Dataset.
func NewBuilder(cfg config.DatasetConfig, tok vocab.Tokenizer, rng *rand.Rand, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		tok:    tok,
		rng:    rng,
		logger: logger.WithComponent("dataset-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = metrics.New(nil)
	}
	return b
}

// BuildFiles opens the QA and KB files named by the builder's config.
func (b *Builder) BuildFiles(ctx context.Context) (*Dataset, error) {
	kbFile, err := os.Open(b.cfg.KBPath())
	if err != nil {
		return nil, fmt.Errorf("opening kb facts: %w", err)
	}
	defer kbFile.Close()
	qaFile, err := os.Open(b.cfg.QAPath())
	if err != nil {
		return nil, fmt.Errorf("opening qa pairs: %w", err)
	}
	defer qaFile.Close()
	return b.build(ctx, qaFile, b.cfg.QAPath(), kbFile)
}

// Build reads every QA pair from qa and every fact from kbr.
func (b *Builder) Build(ctx context.Context, qa, kbr io.Reader) (*Dataset, error) {
	return b.build(ctx, qa, "", kbr)
}

func (b *Builder) build(ctx context.Context, qa io.Reader, qaSource string, kbr io.Reader) (*Dataset, error) {
	start := time.Now()
	log := b.logger
	if runID := logger.RunID(ctx); runID != "" {
		log = log.With("run_id", runID)
	}
	ctx, root := tracing.Start(ctx, "build")

	fail := func(span *tracing.Span, err error) (*Dataset, error) {
		span.SetAttr("error", err.Error())
		span.End()
		root.End()
		root.Log(log)
		return nil, err
	}

	var loadOpts []kb.LoadOption
	if n, ok := b.tok.(normalizer); ok {
		loadOpts = append(loadOpts, kb.WithNormalizer(n.Normalize))
	}
	_, span := tracing.Start(ctx, "load_kb")
	index, err := kb.Load(kbr, loadOpts...)
	if err != nil {
		return fail(span, err)
	}
	table := vocab.New(b.tok)
	index.AbsorbInto(table)
	if b.kbHook != nil {
		b.kbHook(index)
	}
	kbStats := index.Stats()
	span.SetAttr("facts", kbStats.Facts)
	span.SetAttr("subjects", index.SubjectCount())
	span.End()
	b.metrics.KBFactsLoaded.Set(float64(kbStats.Facts))
	b.metrics.KBLinesSkippedTotal.WithLabelValues("short").Add(float64(kbStats.Short))
	b.metrics.KBLinesSkippedTotal.WithLabelValues("overlong").Add(float64(kbStats.Overlong))
	if kbStats.Overlong > 0 {
		log.Warn("skipped kb lines with more than three fields", "lines", kbStats.Overlong)
	}
	log.Info("kb loaded",
		"subjects", index.SubjectCount(),
		"facts", kbStats.Facts,
		"entities", len(index.Entities()),
		"relations", len(index.Relations()),
	)

	_, span = tracing.Start(ctx, "read_pairs")
	pairs, err := ReadPairs(qa, qaSource)
	if err != nil {
		return fail(span, err)
	}
	span.End()
	log.Info("qa pairs read", "pairs", len(pairs))

	b.rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	split := Split(len(pairs), b.cfg.TrainRatio)
	seeds := make([]uint64, len(pairs))
	for i := range seeds {
		seeds[i] = b.rng.Uint64()
	}

	ds := &Dataset{
		Train: make([]Example, split),
		Test:  make([]Example, len(pairs)-split),
		Vocab: table,
		KB:    index,
	}

	_, span = tracing.Start(ctx, "train_pass")
	for i := 0; i < split; i++ {
		if err := ctx.Err(); err != nil {
			return fail(span, err)
		}
		ds.Train[i] = b.example(i, Train, pairs[i], table.AddSentence, table, index, seeds[i])
	}
	span.SetAttr("pairs", split)
	span.End()

	// The table is frozen from here on; test pairs only read it.
	var view vocab.View = table
	_, span = tracing.Start(ctx, "test_pass")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.Workers, 1))
	for i := split; i < len(pairs); i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds.Test[i-split] = b.example(i, Test, pairs[i], view.IndexSentence, view, index, seeds[i])
			return nil
		})
	}
	span.SetAttr("pairs", len(pairs)-split)
	if err := g.Wait(); err != nil {
		return fail(span, err)
	}
	span.End()

	ds.Stats = summarize(ds, kbStats)
	b.metrics.VocabSize.Set(float64(ds.Stats.VocabSize))
	b.metrics.BuildDurationSeconds.Set(time.Since(start).Seconds())
	root.SetAttr("vocab_size", ds.Stats.VocabSize)
	root.End()
	root.Log(log)
	log.Info("processing done",
		"train_pairs", ds.Stats.TrainPairs,
		"test_pairs", ds.Stats.TestPairs,
		"vocab_size", ds.Stats.VocabSize,
		"copy_tokens", ds.Stats.CopyTokens,
		"generate_tokens", ds.Stats.GenerateTokens,
	)
	return ds, nil
}

// normalizer is implemented by tokenizers that rewrite text before cutting
// it; KB fields go through the same rewrite.
type normalizer interface {
	Normalize(text string) string
}

type sentenceFunc func(text string) ([]string, []int)

// example runs one pair through tokenize, index, retrieve and label.
func (b *Builder) example(pos int, part Partition, p Pair, sentence sentenceFunc, v vocab.View, r Retriever, seed uint64) Example {
	qTokens, qIndices := sentence(p.Question)
	aTokens, aIndices := sentence(p.Answer)

	pool := GatherFacts(r, qTokens)
	b.metrics.RetrievedCandidates.Observe(float64(len(pool)))
	facts := CapFacts(pool, b.cfg.MaxFactNum, rand.New(rand.NewPCG(seed, uint64(pos))))

	modes, kbAlign := Align(aTokens, facts)
	copies := 0
	for _, m := range modes {
		if m == Copy {
			copies++
		}
	}
	b.metrics.AnswerTokensTotal.WithLabelValues(Copy.String()).Add(float64(copies))
	b.metrics.AnswerTokensTotal.WithLabelValues(Generate.String()).Add(float64(len(modes) - copies))
	b.metrics.PairsProcessedTotal.WithLabelValues(string(part)).Inc()

	return Example{
		Position:          pos,
		Partition:         part,
		QuestionTokens:    qTokens,
		AnswerTokens:      aTokens,
		QuestionIndices:   qIndices,
		AnswerIndices:     aIndices,
		Facts:             facts,
		FactIndices:       FactIndices(v, facts),
		AnswerModes:       modes,
		QuestionAlignment: emptyAlignment(len(aTokens)),
		KBAlignment:       kbAlign,
	}
}

// Split returns floor(ratio*n), clamped to [0, n].
func Split(n int, ratio float64) int {
	s := int(math.Floor(ratio * float64(n)))
	return min(max(s, 0), n)
}

func summarize(ds *Dataset, kbStats kb.LoadStats) Stats {
	st := Stats{
		Pairs:           len(ds.Train) + len(ds.Test),
		TrainPairs:      len(ds.Train),
		TestPairs:       len(ds.Test),
		VocabSize:       ds.Vocab.Size(),
		KBSubjects:      ds.KB.SubjectCount(),
		KBFacts:         kbStats.Facts,
		KBShortLines:    kbStats.Short,
		KBOverlongLines: kbStats.Overlong,
	}
	for _, part := range [][]Example{ds.Train, ds.Test} {
		for _, ex := range part {
			for _, m := range ex.AnswerModes {
				if m == Copy {
					st.CopyTokens++
				} else {
					st.GenerateTokens++
				}
			}
		}
	}
	return st
}
