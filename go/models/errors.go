package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// error codes shown on the crash screen
const (
	CodeNone = iota
	CodeUnexpected
	CodeEnumeration
	CodeNoUsableMemory
)

var reasons = []string{
	"No reason given, or invalid error code.",
	"This error code should not happen here.",
	"Failed to retrieve the system's memory map with the BIOS function\n" +
		"int 15h, eax e820h. This may happen if your machine is very old.\n" +
		"Make sure that your system meets the minimum requirements.",
	"The system's memory map does not contain any usable memory.",
}

// Reason returns the crash screen text for code.
func Reason(code int) string {
	if code < 0 || code >= len(reasons) {
		return reasons[CodeNone]
	}
	return reasons[code]
}

// BootError is a fatal discovery outcome.
type BootError struct {
	Code   int
	Reason string
}

func (e *BootError) Error() string {
	return fmt.Sprintf("boot error %d: %s", e.Code, e.Reason)
}

var (
	ErrEnumerationUnsupported = &BootError{CodeEnumeration, "e820 enumeration unsupported"}
	ErrNoUsableMemory         = &BootError{CodeNoUsableMemory, "no usable memory"}
)

// AsBootError finds the BootError in err's cause chain.
// Anything else is reported as unexpected.
func AsBootError(err error) *BootError {
	if err == nil {
		return nil
	}
	var be *BootError
	if errors.As(err, &be) {
		return be
	}
	return &BootError{CodeUnexpected, err.Error()}
}
