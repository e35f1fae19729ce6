package dataset

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/kb"
	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
)

func TestAlign(t *testing.T) {
	facts := []kb.Triple{
		{Subject: "a", Relation: "r1", Object: "x"},
		{Subject: "a", Relation: "r2", Object: "y"},
		{Subject: "b", Relation: "r1", Object: "x"},
		kb.PadTriple,
	}
	modes, align := Align([]string{"x", "z", "y", "_PAD"}, facts)

	wantModes := []Mode{Copy, Generate, Copy, Generate}
	if !reflect.DeepEqual(modes, wantModes) {
		t.Errorf("modes = %v, want %v", modes, wantModes)
	}
	wantAlign := [][]int{{1, 0, 1, 0}, {}, {0, 1, 0, 0}, {}}
	if !reflect.DeepEqual(align, wantAlign) {
		t.Errorf("alignment = %v, want %v", align, wantAlign)
	}
}

func TestCapFacts(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	pool := []kb.Triple{{Subject: "s", Relation: "r", Object: "1"}, {Subject: "s", Relation: "r", Object: "2"}}

	padded := CapFacts(pool, 4, rng)
	if want := []kb.Triple{pool[0], pool[1], kb.PadTriple, kb.PadTriple}; !reflect.DeepEqual(padded, want) {
		t.Errorf("padded = %v", padded)
	}

	big := make([]kb.Triple, 100)
	for i := range big {
		big[i] = kb.Triple{Subject: "s", Relation: "r", Object: string(rune('A' + i%26))}
	}
	orig := append([]kb.Triple(nil), big...)
	capped := CapFacts(big, 4, rng)
	if len(capped) != 4 || cap(capped) != 4 {
		t.Fatalf("len=%d cap=%d, want 4/4", len(capped), cap(capped))
	}
	if !reflect.DeepEqual(big, orig) {
		t.Error("CapFacts modified its input")
	}

	// Truncation is a uniform draw, not the first n: over many draws every
	// candidate should be picked at least once.
	picked := make(map[kb.Triple]bool)
	for i := 0; i < 500; i++ {
		for _, f := range CapFacts(big[:26], 4, rng) {
			picked[f] = true
		}
	}
	if len(picked) != 26 {
		t.Errorf("picked %d distinct facts, want 26", len(picked))
	}
}

func TestGatherFactsKeepsDuplicates(t *testing.T) {
	ix, err := kb.Load(strings.NewReader("a r x\nb r y\n"))
	if err != nil {
		t.Fatal(err)
	}
	got := GatherFacts(ix, []string{"a", "zz", "b", "a"})
	want := []kb.Triple{{Subject: "a", Relation: "r", Object: "x"}, {Subject: "b", Relation: "r", Object: "y"}, {Subject: "a", Relation: "r", Object: "x"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GatherFacts = %v, want %v", got, want)
	}
}

func TestReadPairs(t *testing.T) {
	pairs, err := ReadPairs(strings.NewReader("北京在哪 中国\nwhat is beijing?\tchina\r\n"), "qa")
	if err != nil {
		t.Fatal(err)
	}
	want := []Pair{
		{Question: "北京在哪", Answer: "中国", Line: 1},
		{Question: "what is beijing?", Answer: "china", Line: 2},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %+v", pairs)
	}

	bad := []string{"one\n", "a b c\n", "\n", "a\t\tb\tc\n"}
	for _, in := range bad {
		_, err := ReadPairs(strings.NewReader(in), "qa")
		if !errors.Is(err, apperrors.ErrMalformedQALine) {
			t.Errorf("ReadPairs(%q) err = %v", in, err)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{0, 0.9, 0}, {1, 0.9, 0}, {10, 0.9, 9}, {19, 0.9, 17}, {10, 1, 10}, {3, 0.5, 1},
	}
	for _, tt := range tests {
		if got := Split(tt.n, tt.ratio); got != tt.want {
			t.Errorf("Split(%d, %v) = %d, want %d", tt.n, tt.ratio, got, tt.want)
		}
	}
}
