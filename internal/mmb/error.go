package mmb

import "fmt"

// FormatError reports malformed input at a byte offset.
type FormatError struct {
	Offset uint64
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("mmb: offset %#x: %s", e.Offset, e.Msg)
}

func errorf(off uint64, format string, args ...any) *FormatError {
	return &FormatError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}
