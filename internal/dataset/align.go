package dataset

import "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/kb"

// Align labels each answer token. A token whose text equals the object of
// at least one non-pad fact is Copy, with a 0/1 vector marking every such
// fact; any other token is Generate with an empty vector.
func Align(answer []string, facts []kb.Triple) ([]Mode, [][]int) {
	modes := make([]Mode, len(answer))
	alignment := make([][]int, len(answer))
	for i, tok := range answer {
		var hot []int
		for j, f := range facts {
			if f.IsPad() || f.Object != tok {
				continue
			}
			if hot == nil {
				hot = make([]int, len(facts))
			}
			hot[j] = 1
		}
		if hot == nil {
			modes[i] = Generate
			alignment[i] = []int{}
			continue
		}
		modes[i] = Copy
		alignment[i] = hot
	}
	return modes, alignment
}

// emptyAlignment is the question-side channel: one empty entry per answer
// token.
func emptyAlignment(n int) [][]int {
	out := make([][]int, n)
	for i := range out {
		out[i] = []int{}
	}
	return out
}
