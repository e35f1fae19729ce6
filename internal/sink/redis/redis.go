// Package redis publishes the vocabulary and the KB of a build to Redis so
// online services can index sentences and retrieve facts without the files.
//
// Key layout under the configured prefix:
//
//	run                 hash  run_id, stats
//	vocab:index2word    list  words in index order
//	vocab:word2index    hash  word -> index
//	vocab:word2count    hash  word -> training count
//	kb:<subject>        list  JSON triples in file order
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	pkgredis "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/resilience"
)

const pipelineChunk = 1000

type Sink struct {
	client *pkgredis.Client
	prefix string
	ttl    time.Duration
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func New(client *pkgredis.Client, prefix string, ttl time.Duration, retry resilience.RetryConfig) *Sink {
	return &Sink{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		retry:  retry,
		logger: slog.Default().With("component", "redis-sink", "prefix", prefix),
	}
}

func (s *Sink) Name() string { return "redis" }

func (s *Sink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *Sink) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += p
	}
	return k
}

// Write replaces everything under the prefix with the new build. A failed
// attempt is retried from the start, so a retry never appends to lists
// left half-written.
func (s *Sink) Write(ctx context.Context, runID string, ds *dataset.Dataset) error {
	return resilience.Retry(ctx, "redis-write", s.retry, func(ctx context.Context) error {
		return s.write(ctx, runID, ds)
	})
}

func (s *Sink) write(ctx context.Context, runID string, ds *dataset.Dataset) error {
	deleted, err := s.client.DeleteByPattern(ctx, s.prefix+"*")
	if err != nil {
		return fmt.Errorf("clearing previous build: %w", err)
	}
	stats, err := json.Marshal(ds.Stats)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("marshaling stats: %w", err))
	}

	words := ds.Vocab.Words()
	for start := 0; start < len(words); start += pipelineChunk {
		chunk := words[start:min(start+pipelineChunk, len(words))]
		err := s.client.Pipelined(ctx, func(pipe pkgredis.Pipeliner) error {
			list := make([]any, len(chunk))
			index := make(map[string]any, len(chunk))
			counts := make(map[string]any, len(chunk))
			for i, w := range chunk {
				list[i] = w
				index[w] = start + i
				counts[w] = ds.Vocab.Count(w)
			}
			pipe.RPush(ctx, s.key("vocab:index2word"), list...)
			pipe.HSet(ctx, s.key("vocab:word2index"), index)
			pipe.HSet(ctx, s.key("vocab:word2count"), counts)
			return nil
		})
		if err != nil {
			return fmt.Errorf("writing vocabulary: %w", err)
		}
	}

	var kbKeys []string
	if ds.KB != nil {
		entries := ds.KB.Snapshot()
		for start := 0; start < len(entries); start += pipelineChunk {
			chunk := entries[start:min(start+pipelineChunk, len(entries))]
			err := s.client.Pipelined(ctx, func(pipe pkgredis.Pipeliner) error {
				for _, e := range chunk {
					facts := make([]any, 0, len(e.Facts))
					for _, f := range e.Facts {
						data, err := json.Marshal(f)
						if err != nil {
							return resilience.Permanent(fmt.Errorf("marshaling fact: %w", err))
						}
						facts = append(facts, string(data))
					}
					k := s.key("kb:", e.Subject)
					pipe.RPush(ctx, k, facts...)
					kbKeys = append(kbKeys, k)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("writing kb facts: %w", err)
			}
		}
	}

	err = s.client.Pipelined(ctx, func(pipe pkgredis.Pipeliner) error {
		pipe.HSet(ctx, s.key("run"), map[string]any{"run_id": runID, "stats": string(stats)})
		if s.ttl > 0 {
			for _, k := range append([]string{
				s.key("run"),
				s.key("vocab:index2word"),
				s.key("vocab:word2index"),
				s.key("vocab:word2count"),
			}, kbKeys...) {
				pipe.Expire(ctx, k, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing run metadata: %w", err)
	}
	s.logger.Info("vocabulary and kb published",
		"run_id", runID,
		"words", len(words),
		"kb_subjects", len(kbKeys),
		"replaced_keys", deleted,
	)
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *Sink) Close() error { return nil }
