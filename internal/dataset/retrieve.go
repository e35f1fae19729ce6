package dataset

import (
	"math/rand/v2"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/kb"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/vocab"
)

// Retriever looks up facts by subject.
type Retriever interface {
	Retrieve(subject string) []kb.Triple
}

// GatherFacts concatenates the facts of every question token, in token
// order. A token that occurs twice contributes its facts twice.
func GatherFacts(r Retriever, tokens []string) []kb.Triple {
	var pool []kb.Triple
	for _, tok := range tokens {
		pool = append(pool, r.Retrieve(tok)...)
	}
	return pool
}

// CapFacts returns exactly n facts: a uniform random n of pool when it is
// larger, otherwise pool followed by pad triples. pool is not modified.
func CapFacts(pool []kb.Triple, n int, rng *rand.Rand) []kb.Triple {
	out := make([]kb.Triple, len(pool), max(n, len(pool)))
	copy(out, pool)
	if len(out) > n {
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out[:n:n]
	}
	for len(out) < n {
		out = append(out, kb.PadTriple)
	}
	return out
}

// FactIndices resolves each fact field through v. Pad triples resolve to the
// reserved PAD index.
func FactIndices(v vocab.View, facts []kb.Triple) [][3]int {
	out := make([][3]int, len(facts))
	for i, f := range facts {
		if f.IsPad() {
			out[i] = [3]int{vocab.PADIndex, vocab.PADIndex, vocab.PADIndex}
			continue
		}
		out[i] = [3]int{v.IndexOf(f.Subject), v.IndexOf(f.Relation), v.IndexOf(f.Object)}
	}
	return out
}
