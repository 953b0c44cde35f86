package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports unusable caller input such as an empty path.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrGameTooShort reports a replay below the minimum frame count.
	ErrGameTooShort = errors.New("game too short")
	// ErrInvalidGame reports a replay whose container decodes but whose
	// contents cannot be turned into player records.
	ErrInvalidGame = errors.New("invalid game")
)

// ParseError reports a malformed or truncated replay container.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse replay: %v", e.Err)
	}
	return fmt.Sprintf("parse replay %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for bulk summaries.
func (e *ParseError) ErrorKind() string { return "parse" }

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
