package marble

import (
	"fmt"
)

// FormatError indicates a malformed diagram. Offset is the byte offset of
// the offending character, or -1 if the problem is not local to one.
type FormatError struct {
	Diagram string
	Reason  string
	Offset  int
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("marble: %s: %q", e.Reason, e.Diagram)
	}
	return fmt.Sprintf("marble: %s at offset %d: %q", e.Reason, e.Offset, e.Diagram)
}

func formatErrorf(diagram string, offset int, format string, args ...any) *FormatError {
	return &FormatError{
		Diagram: diagram,
		Offset:  offset,
		Reason:  fmt.Sprintf(format, args...),
	}
}
