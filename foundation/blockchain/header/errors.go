package header

import (
	"errors"
	"fmt"
)

// FormatError is returned for malformed RLP, a header list with the wrong
// number of items, or a field with the wrong width. Index is the position of
// the offending item in the header list or -1 when no single item is at fault.
type FormatError struct {
	Reason string
	Index  int
}

func newFormatError(index int, reason string) error {
	return &FormatError{Reason: reason, Index: index}
}

// Error implements the error interface.
func (fe *FormatError) Error() string {
	if fe.Index < 0 {
		return fmt.Sprintf("header format: %s", fe.Reason)
	}
	return fmt.Sprintf("header format: item %d (%s): %s", fe.Index, FieldName(fe.Index), fe.Reason)
}

// IsFormatError checks if an error of type FormatError exists.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// GetFormatError returns a copy of the FormatError pointer.
func GetFormatError(err error) *FormatError {
	var fe *FormatError
	if !errors.As(err, &fe) {
		return nil
	}
	return fe
}
