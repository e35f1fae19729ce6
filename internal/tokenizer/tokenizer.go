// Package tokenizer turns question and answer text into tokens. The first
// span matching the configured entity pattern is kept as one verbatim
// token; the text around it is cut by a Segmenter.
package tokenizer

import (
	"fmt"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/config"
	"golang.org/x/text/unicode/norm"
)

// Segmenter splits text into word spans using the most likely
// segmentation.
type Segmenter interface {
	Cut(text string) []string
}

// Tokenizer is safe for concurrent use as long as its Segmenter is.
type Tokenizer struct {
	entity    *regexp.Regexp
	seg       Segmenter
	normalize bool
}

// New builds a Tokenizer from cfg. An empty entity pattern disables entity
// handling.
func New(cfg config.TokenizerConfig, seg Segmenter) (*Tokenizer, error) {
	t := &Tokenizer{
		seg:       seg,
		normalize: cfg.Normalize == "nfkc",
	}
	if cfg.EntityPattern != "" {
		re, err := regexp.Compile(cfg.EntityPattern)
		if err != nil {
			return nil, fmt.Errorf("compiling entity pattern: %w", err)
		}
		t.entity = re
	}
	return t, nil
}

// Normalize applies the configured Unicode normalisation to text, or
// returns it unchanged.
func (t *Tokenizer) Normalize(text string) string {
	if t.normalize {
		return norm.NFKC.String(text)
	}
	return text
}

// Tokenize returns segment(pre) + [entity] + segment(post) around the first
// entity match, or segment(text) when nothing matches. An empty match counts
// as no match.
func (t *Tokenizer) Tokenize(text string) []string {
	text = t.Normalize(text)
	if t.entity != nil {
		if loc := t.entity.FindStringIndex(text); loc != nil && loc[1] > loc[0] {
			pre := t.seg.Cut(text[:loc[0]])
			post := t.seg.Cut(text[loc[1]:])
			tokens := make([]string, 0, len(pre)+1+len(post))
			tokens = append(tokens, pre...)
			tokens = append(tokens, text[loc[0]:loc[1]])
			return append(tokens, post...)
		}
	}
	return t.seg.Cut(text)
}
