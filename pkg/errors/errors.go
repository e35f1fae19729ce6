package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedQALine = errors.New("malformed qa line")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrEmptyDataset    = errors.New("empty dataset")
	ErrSinkUnavailable = errors.New("sink unavailable")
	ErrCorruptShard    = errors.New("corrupt shard file")
)

// Exit codes returned by the command-line tools.
const (
	ExitFailure  = 1
	ExitBadInput = 2
)

// ParseError locates a failure inside an input file.
type ParseError struct {
	Err     error
	Source  string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: line %d: %s", e.Err.Error(), e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s:%d: %s", e.Err.Error(), e.Source, e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func NewParseError(sentinel error, source string, line int, message string) *ParseError {
	return &ParseError{
		Err:     sentinel,
		Source:  source,
		Line:    line,
		Message: message,
	}
}

func NewParseErrorf(sentinel error, source string, line int, format string, args ...any) *ParseError {
	return &ParseError{
		Err:     sentinel,
		Source:  source,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

func ExitCode(err error) int {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ExitBadInput
	}

	switch {
	case errors.Is(err, ErrMalformedQALine), errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrEmptyDataset), errors.Is(err, ErrCorruptShard):
		return ExitBadInput
	default:
		return ExitFailure
	}
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
