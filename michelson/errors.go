package michelson

import (
	"errors"
	"fmt"
)

// ErrEncoding matches every *EncodingError.
var ErrEncoding = errors.New("encoding error")

// EncodingError reports a literal or schema that could not be parsed, or a
// value that does not fit its type. Pos is a byte offset into the input, or
// -1 when the failure is not tied to one location.
type EncodingError struct {
	Pos int
	Msg string
}

func (e *EncodingError) Error() string {
	if e.Pos < 0 {
		return "michelson: " + e.Msg
	}
	return fmt.Sprintf("michelson: offset %d: %s", e.Pos, e.Msg)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

func errorf(pos int, format string, args ...any) *EncodingError {
	return &EncodingError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
