package models

// SMAP is the signature passed in EDX and echoed in EAX by a working E820 service.
const SMAP = 0x534D4150

type QueryStatus int

const (
	// the destination was written and the next token is valid (0 means last entry)
	Filled QueryStatus = iota
	// the service did not echo the signature; enumeration is not available
	Unsupported
)

func (s QueryStatus) String() string {
	switch s {
	case Filled:
		return "filled"
	case Unsupported:
		return "unsupported"
	default:
		return "invalid"
	}
}

// Firmware issues one memory enumeration call per QueryRange.
// err is reserved for failures of the machine running the call; firmware
// outcomes are reported through status.
type Firmware interface {
	QueryRange(dst *RangeDescriptor, token uint32) (next uint32, status QueryStatus, err error)
}
