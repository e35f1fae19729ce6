package tokenizer

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/tokenizer/segment"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/config"
)

func newTokenizer(t *testing.T, pattern string) *Tokenizer {
	t.Helper()
	seg := segment.New()
	if err := seg.AddWords([]string{"北京", "首都"}, 100); err != nil {
		t.Fatal(err)
	}
	tok, err := New(config.TokenizerConfig{EntityPattern: pattern}, seg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tok
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    []string
	}{
		{
			name: "no pattern",
			text: "北京是首都",
			want: []string{"北京", "是", "首都"},
		},
		{
			name:    "entity kept verbatim",
			pattern: `《[^》]+》`,
			text:    "谁写了《北京首都》吗",
			want:    []string{"谁", "写", "了", "《北京首都》", "吗"},
		},
		{
			name:    "only first match is special",
			pattern: `<[^>]+>`,
			text:    "<new york> and <los angeles>",
			want:    []string{"<new york>", "and", "<", "los", "angeles", ">"},
		},
		{
			name:    "no match falls back to segmenter",
			pattern: `<[^>]+>`,
			text:    "what is beijing the capital of?",
			want:    []string{"what", "is", "beijing", "the", "capital", "of", "?"},
		},
		{
			name:    "entity at start",
			pattern: `beijing`,
			text:    "beijing capital",
			want:    []string{"beijing", "capital"},
		},
		{
			name:    "empty match is ignored",
			pattern: `x*`,
			text:    "北京是首都",
			want:    []string{"北京", "是", "首都"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := newTokenizer(t, tt.pattern)
			if got := tok.Tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeNormalize(t *testing.T) {
	tok, err := New(config.TokenizerConfig{Normalize: "nfkc"}, segment.New())
	if err != nil {
		t.Fatal(err)
	}
	// Full-width Latin letters fold to ASCII under NFKC.
	got := tok.Tokenize("ＡＢＣ１２３")
	if !reflect.DeepEqual(got, []string{"ABC123"}) {
		t.Errorf("Tokenize = %q", got)
	}
}

func TestNormalizeDisabled(t *testing.T) {
	tok, err := New(config.TokenizerConfig{}, segment.New())
	if err != nil {
		t.Fatal(err)
	}
	if got := tok.Normalize("ＡＢＣ"); got != "ＡＢＣ" {
		t.Errorf("Normalize = %q, want input unchanged", got)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New(config.TokenizerConfig{EntityPattern: "(["}, segment.New()); err == nil {
		t.Fatal("expected error")
	}
}
