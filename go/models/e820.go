package models

import (
	"fmt"
)

// E820 address range types, ACPI 6.0 table 15-312.
type RangeType uint32

const (
	RangeUsable RangeType = iota + 1
	RangeReserved
	RangeAcpiReclaimable
	// reported as reserved by this stage; must survive hibernation
	RangeAcpiNVS
	RangeBad
	RangeDisabled
	RangePersistent
)

func (t RangeType) String() string {
	switch t {
	case RangeUsable:
		return "usable"
	case RangeReserved:
		return "reserved"
	case RangeAcpiReclaimable:
		return "acpi"
	case RangeAcpiNVS:
		return "nvs"
	case RangeBad:
		return "bad"
	case RangeDisabled:
		return "disabled"
	case RangePersistent:
		return "persistent"
	case 0:
		return "none"
	default:
		return fmt.Sprintf("oem(%d)", uint32(t))
	}
}

// DescriptorSize is the size of one packed descriptor as written by INT 15h, EAX=E820h.
const DescriptorSize = 24

// RangeDescriptor is one physical memory region as reported by firmware.
type RangeDescriptor struct {
	Base       uint64    `struc:"uint64,little"`
	Length     uint64    `struc:"uint64,little"`
	Type       RangeType `struc:"uint32,little"`
	Attributes uint32    `struc:"uint32,little"`
}

// End returns the exclusive end of the range.
// ok is false if the range runs past the top of the 64-bit address space.
func (d *RangeDescriptor) End() (end uint64, ok bool) {
	end = d.Base + d.Length
	return end, end >= d.Base
}

func (d *RangeDescriptor) Degenerate() bool {
	return d.Length == 0
}

func (d *RangeDescriptor) IsZero() bool {
	return *d == RangeDescriptor{}
}

func (d *RangeDescriptor) Split() SplitDescriptor {
	return SplitDescriptor{
		LowBase:    uint32(d.Base),
		HighBase:   uint32(d.Base >> 32),
		LowLength:  uint32(d.Length),
		HighLength: uint32(d.Length >> 32),
		Type:       uint32(d.Type),
		Attributes: d.Attributes,
	}
}

func (d RangeDescriptor) String() string {
	end, ok := d.End()
	if !ok {
		return fmt.Sprintf("0x%016x-(overflow) %s", d.Base, d.Type)
	}
	return fmt.Sprintf("0x%016x-0x%016x %s", d.Base, end, d.Type)
}

// SplitDescriptor is the descriptor as real-mode code sees it:
// every 64-bit field is carried as two 32-bit halves.
type SplitDescriptor struct {
	LowBase    uint32
	HighBase   uint32
	LowLength  uint32
	HighLength uint32
	Type       uint32
	Attributes uint32
}

func (s SplitDescriptor) Join() RangeDescriptor {
	return RangeDescriptor{
		Base:       uint64(s.HighBase)<<32 | uint64(s.LowBase),
		Length:     uint64(s.HighLength)<<32 | uint64(s.LowLength),
		Type:       RangeType(s.Type),
		Attributes: s.Attributes,
	}
}

// End computes the exclusive end the way 32-bit code has to:
// low halves first, then high halves plus the carry out of the low add.
// carry is set when the result does not fit in 64 bits.
func (s SplitDescriptor) End() (lo, hi uint32, carry bool) {
	lo = s.LowBase + s.LowLength
	var c uint32
	if lo < s.LowBase {
		c = 1
	}
	hi = s.HighBase + s.HighLength
	carry = hi < s.HighBase
	hi2 := hi + c
	carry = carry || hi2 < hi
	return lo, hi2, carry
}
