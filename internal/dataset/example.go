// Package dataset builds supervised copy/generate examples from QA pairs
// and a knowledge base.
package dataset

import (
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/kb"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/vocab"
)

// Mode says where an answer token comes from.
type Mode int

const (
	Generate Mode = 0
	Copy     Mode = 1
)

func (m Mode) String() string {
	if m == Copy {
		return "copy"
	}
	return "generate"
}

// Partition names the side of the split an example belongs to.
type Partition string

const (
	Train Partition = "train"
	Test  Partition = "test"
)

// Example is one model-ready QA pair. AnswerModes, QuestionAlignment and
// KBAlignment have one entry per answer token. A KBAlignment entry is empty
// for generate-mode tokens and has one slot per retrieved fact otherwise.
type Example struct {
	Position          int         `json:"position"`
	Partition         Partition   `json:"partition"`
	QuestionTokens    []string    `json:"question_tokens"`
	AnswerTokens      []string    `json:"answer_tokens"`
	QuestionIndices   []int       `json:"question_indices"`
	AnswerIndices     []int       `json:"answer_indices"`
	Facts             []kb.Triple `json:"facts"`
	FactIndices       [][3]int    `json:"fact_indices"`
	AnswerModes       []Mode      `json:"answer_modes"`
	QuestionAlignment [][]int     `json:"question_alignment"`
	KBAlignment       [][]int     `json:"kb_alignment"`
}

// Stats summarises a build.
type Stats struct {
	Pairs           int `json:"pairs"`
	TrainPairs      int `json:"train_pairs"`
	TestPairs       int `json:"test_pairs"`
	VocabSize       int `json:"vocab_size"`
	KBSubjects      int `json:"kb_subjects"`
	KBFacts         int `json:"kb_facts"`
	KBShortLines    int `json:"kb_short_lines"`
	KBOverlongLines int `json:"kb_overlong_lines"`
	CopyTokens      int `json:"copy_tokens"`
	GenerateTokens  int `json:"generate_tokens"`
}

// Dataset is the result of one build.
type Dataset struct {
	Train []Example
	Test  []Example
	Vocab vocab.View
	KB    *kb.Index
	Stats Stats
}

// All returns training examples followed by testing examples.
func (d *Dataset) All() []Example {
	out := make([]Example, 0, len(d.Train)+len(d.Test))
	out = append(out, d.Train...)
	return append(out, d.Test...)
}
