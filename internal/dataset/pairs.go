package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
)

// Pair is one raw question/answer line.
type Pair struct {
	Question string
	Answer   string
	Line     int
}

// ReadPairs parses one pair per line. Lines holding a TAB are split on
// TABs, other lines on whitespace; anything but two non-empty fields aborts
// with a *errors.ParseError wrapping ErrMalformedQALine.
func ReadPairs(r io.Reader, source string) ([]Pair, error) {
	var pairs []Pair
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		q, a, n := splitPair(scanner.Text())
		if n != 2 {
			return nil, apperrors.NewParseErrorf(apperrors.ErrMalformedQALine, source, lineNo,
				"expected 2 fields, got %d", n)
		}
		pairs = append(pairs, Pair{Question: q, Answer: a, Line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading qa pairs: %w", err)
	}
	return pairs, nil
}

// splitPair returns the two fields of line and the number of fields found.
func splitPair(line string) (string, string, int) {
	var fields []string
	if strings.Contains(line, "\t") {
		for _, f := range strings.Split(line, "\t") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	} else {
		fields = strings.Fields(line)
	}
	if len(fields) != 2 {
		return "", "", len(fields)
	}
	return fields[0], fields[1], 2
}
