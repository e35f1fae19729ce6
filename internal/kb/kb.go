// Package kb parses one-hop knowledge-base facts and indexes them by
// subject. An Index is immutable once Load returns.
package kb

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/vocab"
)

// Triple is one (subject, relation, object) fact.
type Triple struct {
	Subject  string `json:"sub"`
	Relation string `json:"rel"`
	Object   string `json:"obj"`
}

// PadTriple fills retrieved-fact slots when fewer facts than required are
// found.
var PadTriple = Triple{Subject: vocab.PAD, Relation: vocab.PAD, Object: vocab.PAD}

// IsPad reports whether t is the padding placeholder.
func (t Triple) IsPad() bool {
	return t == PadTriple
}

// LoadStats counts what Load saw. Short lines have fewer than three fields
// and Overlong lines more than three; both are skipped.
type LoadStats struct {
	Lines    int `json:"lines"`
	Facts    int `json:"facts"`
	Short    int `json:"short"`
	Overlong int `json:"overlong"`
}

// SubjectEntry is one subject with its facts, as returned by Snapshot.
type SubjectEntry struct {
	Subject string   `json:"subject"`
	Facts   []Triple `json:"facts"`
}

// WordAdder receives the KB vocabulary.
type WordAdder interface {
	AddWord(word string) int
}

type Index struct {
	facts     map[string][]Triple
	entities  []string
	relations []string
	stats     LoadStats
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	normalize func(string) string
}

// WithNormalizer rewrites every line with fn before it is split, so KB
// fields match text that went through the same normalisation.
func WithNormalizer(fn func(string) string) LoadOption {
	return func(o *loadOptions) { o.normalize = fn }
}

// Load reads one triple per line. Only read errors are returned; malformed
// lines are skipped and counted in Stats.
func Load(r io.Reader, opts ...LoadOption) (*Index, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	ix := &Index{facts: make(map[string][]Triple)}
	seenEnt := make(map[string]struct{})
	seenRel := make(map[string]struct{})
	addEntity := func(e string) {
		if _, ok := seenEnt[e]; !ok {
			seenEnt[e] = struct{}{}
			ix.entities = append(ix.entities, e)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ix.stats.Lines++
		line := scanner.Text()
		if o.normalize != nil {
			line = o.normalize(line)
		}
		fields := strings.Fields(line)
		switch {
		case len(fields) < 3:
			ix.stats.Short++
			continue
		case len(fields) > 3:
			ix.stats.Overlong++
			continue
		}
		t := Triple{
			Subject:  strings.TrimSpace(fields[0]),
			Relation: strings.TrimSpace(fields[1]),
			Object:   strings.TrimSpace(fields[2]),
		}
		addEntity(t.Subject)
		addEntity(t.Object)
		if _, ok := seenRel[t.Relation]; !ok {
			seenRel[t.Relation] = struct{}{}
			ix.relations = append(ix.relations, t.Relation)
		}
		ix.facts[t.Subject] = append(ix.facts[t.Subject], t)
		ix.stats.Facts++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading kb facts: %w", err)
	}
	for sub, facts := range ix.facts {
		sort.SliceStable(facts, func(i, j int) bool {
			return facts[i].Subject < facts[j].Subject
		})
		ix.facts[sub] = slices.Clip(facts)
	}
	return ix, nil
}

// Retrieve returns the facts whose subject is subject, or nil.
func (ix *Index) Retrieve(subject string) []Triple {
	return ix.facts[subject]
}

// AbsorbInto adds every entity and then every relation to w, in first-seen
// order.
func (ix *Index) AbsorbInto(w WordAdder) {
	for _, e := range ix.entities {
		w.AddWord(e)
	}
	for _, r := range ix.relations {
		w.AddWord(r)
	}
}

// Entities returns the distinct subjects and objects in first-seen order.
func (ix *Index) Entities() []string {
	return slices.Clone(ix.entities)
}

// Relations returns the distinct relations in first-seen order.
func (ix *Index) Relations() []string {
	return slices.Clone(ix.relations)
}

// SubjectCount is the number of distinct subjects.
func (ix *Index) SubjectCount() int {
	return len(ix.facts)
}

// FactCount is the number of indexed facts.
func (ix *Index) FactCount() int {
	return ix.stats.Facts
}

func (ix *Index) Stats() LoadStats {
	return ix.stats
}

// Snapshot returns every subject with its facts, sorted by subject.
func (ix *Index) Snapshot() []SubjectEntry {
	entries := make([]SubjectEntry, 0, len(ix.facts))
	for sub, facts := range ix.facts {
		entries = append(entries, SubjectEntry{Subject: sub, Facts: slices.Clone(facts)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Subject < entries[j].Subject
	})
	return entries
}
