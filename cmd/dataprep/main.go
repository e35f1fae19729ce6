package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/kb"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/sink/files"
	kafkasink "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/sink/kafka"
	pgsink "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/sink/postgres"
	redissink "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/sink/redis"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/tokenizer/segment"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
)

// entityFreq is the dictionary frequency given to KB entities so the
// segmenter keeps them whole.
const entityFreq = 1e6

const preflightTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	seed := flag.Uint64("seed", 0, "shuffle seed; overrides dataset.seed when non-zero")
	dataDir := flag.String("data-dir", "", "directory holding the QA and KB files; overrides dataset.dataDir")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	if *seed != 0 {
		cfg.Dataset.Seed = *seed
	}
	if *dataDir != "" {
		cfg.Dataset.DataDir = *dataDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("dataprep failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	if cfg.Dataset.Seed == 0 {
		cfg.Dataset.Seed = uint64(time.Now().UnixNano())
	}
	log.Info("starting dataprep",
		"qa_file", cfg.Dataset.QAPath(),
		"kb_file", cfg.Dataset.KBPath(),
		"seed", cfg.Dataset.Seed,
		"sinks", cfg.Output.Sinks,
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(sctx)
		}()
	}

	sinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.CloseAll(sinks...); err != nil {
			log.Warn("closing sinks", "error", err)
		}
	}()
	if report, err := sink.Preflight(ctx, preflightTimeout, sinks...); err != nil {
		log.Error("preflight failed", "components", report.Components)
		return err
	}

	seg := segment.New()
	if cfg.Tokenizer.DictPath != "" {
		if seg, err = segment.LoadFile(cfg.Tokenizer.DictPath); err != nil {
			return err
		}
		log.Info("segmentation dictionary loaded", "words", seg.Len())
	}
	tok, err := tokenizer.New(cfg.Tokenizer, seg)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}

	opts := []dataset.Option{dataset.WithMetrics(m)}
	if cfg.Tokenizer.RegisterKBEntities {
		opts = append(opts, dataset.WithKBHook(func(ix *kb.Index) {
			if err := seg.AddWords(ix.Entities(), entityFreq); err != nil {
				log.Warn("registering kb entities", "error", err)
				return
			}
			log.Info("kb entities registered with segmenter", "entities", len(ix.Entities()))
		}))
	}
	rng := rand.New(rand.NewPCG(cfg.Dataset.Seed, cfg.Dataset.Seed^0x9e3779b97f4a7c15))
	ds, err := dataset.NewBuilder(cfg.Dataset, tok, rng, opts...).BuildFiles(ctx)
	if err != nil {
		return err
	}

	if err := sink.WriteAll(ctx, runID, ds, m, sinks...); err != nil {
		return err
	}

	if cfg.Metrics.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, reg); err != nil {
			log.Warn("metrics push failed", "error", err)
		}
	}
	log.Info("dataprep complete",
		"train", len(ds.Train),
		"test", len(ds.Test),
		"vocab_size", ds.Vocab.Size(),
	)
	return nil
}

// openSinks connects every enabled sink. Connection failures are reported
// as ErrSinkUnavailable.
func openSinks(cfg *config.Config) ([]sink.Sink, error) {
	var sinks []sink.Sink
	fail := func(name string, err error) ([]sink.Sink, error) {
		sink.CloseAll(sinks...)
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrSinkUnavailable, name, err)
	}
	if cfg.Output.Enabled(config.SinkFile) {
		sinks = append(sinks, files.New(cfg.Output.Dir, cfg.Output.ShardSize))
	}
	if cfg.Output.Enabled(config.SinkPostgres) {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fail(config.SinkPostgres, err)
		}
		sinks = append(sinks, &ownedSink{Sink: pgsink.New(db, cfg.Postgres.BatchSize), close: db.Close})
	}
	if cfg.Output.Enabled(config.SinkKafka) {
		sinks = append(sinks, kafkasink.New(kafka.NewProducer(cfg.Kafka), cfg.Kafka.BatchSize, cfg.Output.Retry))
	}
	if cfg.Output.Enabled(config.SinkRedis) {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return fail(config.SinkRedis, err)
		}
		sinks = append(sinks, &ownedSink{Sink: redissink.New(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL, cfg.Output.Retry), close: client.Close})
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("%w: no output sinks enabled", apperrors.ErrInvalidConfig)
	}
	return sinks, nil
}

// ownedSink closes the client it was built on.
type ownedSink struct {
	sink.Sink
	close func() error
}

func (o *ownedSink) Close() error {
	if err := o.Sink.Close(); err != nil {
		o.close()
		return err
	}
	return o.close()
}
