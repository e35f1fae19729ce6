// Package segment cuts text into words with gse, a Go port of jieba. Runs
// of Han characters follow the most probable route through the DAG of
// dictionary words; Latin letters and digits are kept together.
package segment

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-ego/gse"
)

// Segmenter is safe for concurrent Cut calls. AddWords takes the write lock.
type Segmenter struct {
	mu  sync.RWMutex
	seg gse.Segmenter
}

// New returns a Segmenter with an empty dictionary, which cuts Han text
// into single characters.
func New() *Segmenter {
	s := &Segmenter{}
	s.seg.SkipLog = true
	s.seg.Dict = gse.NewDict()
	s.seg.Init()
	return s
}

// LoadFile returns a Segmenter backed by a jieba-format dictionary file
// ("word freq [tag]" per line).
func LoadFile(path string) (*Segmenter, error) {
	s := &Segmenter{}
	s.seg.SkipLog = true
	if err := s.seg.LoadDict(path); err != nil {
		return nil, fmt.Errorf("loading dictionary %s: %w", path, err)
	}
	return s, nil
}

// AddWords inserts words that are not yet in the dictionary with freq.
func (s *Segmenter) AddWords(words []string, freq float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, _, ok := s.seg.Find(w); ok {
			continue
		}
		if err := s.seg.AddToken(w, freq); err != nil {
			return fmt.Errorf("adding %q to dictionary: %w", w, err)
		}
	}
	return nil
}

// Freq returns the frequency of word and whether it is present.
func (s *Segmenter) Freq(word string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, _, ok := s.seg.Find(word)
	return f, ok
}

// Len returns the number of dictionary words.
func (s *Segmenter) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seg.Dict.NumTokens()
}

// Cut splits text along the most probable route without the HMM pass for
// unknown words. Whitespace is dropped.
func (s *Segmenter) Cut(text string) []string {
	s.mu.RLock()
	words := s.seg.Cut(text, false)
	s.mu.RUnlock()
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w) != "" {
			tokens = append(tokens, w)
		}
	}
	return tokens
}
