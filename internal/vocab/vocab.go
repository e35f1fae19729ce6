// Package vocab provides the word↔index symbol table shared by every
// example of a build. Indices 0–3 are reserved for control symbols; new
// words get contiguous indices from 4 in first-seen order.
package vocab

import (
	"encoding/json"
	"fmt"
	"io"
)

// Control symbols and their permanently reserved indices.
const (
	SOS = "_SOS"
	EOS = "_EOS"
	PAD = "_PAD"
	UNK = "_UNK"

	SOSIndex = 0
	EOSIndex = 1
	PADIndex = 2
	UNKIndex = 3

	NumReserved = 4
)

var reserved = [NumReserved]string{SOSIndex: SOS, EOSIndex: EOS, PADIndex: PAD, UNKIndex: UNK}

// Tokenizer splits a sentence into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// View is the read-only side of the table. Everything except the training
// pass of the dataset builder should hold a View rather than an *Indexer.
type View interface {
	IndexSentence(text string) ([]string, []int)
	IndexOf(word string) int
	Lookup(word string) (int, bool)
	WordOf(index int) (string, bool)
	Count(word string) int
	Size() int
	Words() []string
	io.WriterTo
}

// Indexer is the mutable symbol table. It is not safe for concurrent
// mutation; concurrent reads are safe once mutation has stopped.
type Indexer struct {
	tok        Tokenizer
	word2index map[string]int
	word2count map[string]int
	index2word []string
}

var _ View = (*Indexer)(nil)

// New returns a table holding only the control symbols.
func New(tok Tokenizer) *Indexer {
	ix := &Indexer{
		tok:        tok,
		word2index: make(map[string]int, 1024),
		word2count: make(map[string]int, 1024),
		index2word: make([]string, NumReserved, 1024),
	}
	for i, w := range reserved {
		ix.index2word[i] = w
		ix.word2index[w] = i
	}
	return ix
}

// AddSentence tokenizes text, inserts or counts every token and returns the
// tokens with their indices followed by the EOS index.
func (ix *Indexer) AddSentence(text string) ([]string, []int) {
	tokens := ix.tok.Tokenize(text)
	indices := make([]int, 0, len(tokens)+1)
	for _, word := range tokens {
		indices = append(indices, ix.AddWord(word))
	}
	return tokens, append(indices, EOSIndex)
}

// IndexSentence is AddSentence without mutation: unknown tokens map to
// UNKIndex.
func (ix *Indexer) IndexSentence(text string) ([]string, []int) {
	tokens := ix.tok.Tokenize(text)
	indices := make([]int, 0, len(tokens)+1)
	for _, word := range tokens {
		indices = append(indices, ix.IndexOf(word))
	}
	return tokens, append(indices, EOSIndex)
}

// AddWord returns the index of word, assigning the next free index on first
// sight. Control symbols resolve to their reserved index and are never
// counted.
func (ix *Indexer) AddWord(word string) int {
	if index, ok := ix.word2index[word]; ok {
		if index >= NumReserved {
			ix.word2count[word]++
		}
		return index
	}
	index := len(ix.index2word)
	ix.word2index[word] = index
	ix.word2count[word] = 1
	ix.index2word = append(ix.index2word, word)
	return index
}

// IndexOf returns the index of word or UNKIndex.
func (ix *Indexer) IndexOf(word string) int {
	if index, ok := ix.word2index[word]; ok {
		return index
	}
	return UNKIndex
}

func (ix *Indexer) Lookup(word string) (int, bool) {
	index, ok := ix.word2index[word]
	return index, ok
}

func (ix *Indexer) WordOf(index int) (string, bool) {
	if index < 0 || index >= len(ix.index2word) {
		return "", false
	}
	return ix.index2word[index], true
}

// Count returns how many times word was added. Control symbols report 0.
func (ix *Indexer) Count(word string) int {
	return ix.word2count[word]
}

// Size is the number of assigned indices, control symbols included.
func (ix *Indexer) Size() int {
	return len(ix.index2word)
}

// Words returns the table in index order.
func (ix *Indexer) Words() []string {
	out := make([]string, len(ix.index2word))
	copy(out, ix.index2word)
	return out
}

type snapshot struct {
	Index2Word []string       `json:"index2word"`
	Counts     map[string]int `json:"counts"`
}

// WriteTo serializes the table as JSON.
func (ix *Indexer) WriteTo(w io.Writer) (int64, error) {
	data, err := json.Marshal(snapshot{Index2Word: ix.index2word, Counts: ix.word2count})
	if err != nil {
		return 0, fmt.Errorf("marshaling vocabulary: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Read restores a table written by WriteTo.
func Read(r io.Reader, tok Tokenizer) (*Indexer, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding vocabulary: %w", err)
	}
	if len(snap.Index2Word) < NumReserved {
		return nil, fmt.Errorf("vocabulary has %d entries, want at least %d", len(snap.Index2Word), NumReserved)
	}
	for i, w := range reserved {
		if snap.Index2Word[i] != w {
			return nil, fmt.Errorf("vocabulary index %d is %q, want %q", i, snap.Index2Word[i], w)
		}
	}
	ix := New(tok)
	for _, w := range snap.Index2Word[NumReserved:] {
		if _, dup := ix.word2index[w]; dup {
			return nil, fmt.Errorf("duplicate vocabulary word %q", w)
		}
		ix.word2index[w] = len(ix.index2word)
		ix.index2word = append(ix.index2word, w)
		ix.word2count[w] = snap.Counts[w]
	}
	return ix, nil
}
