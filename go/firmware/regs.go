package firmware

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/ribeira-boot/memprobe/go/arch/x86_16"
	"github.com/ribeira-boot/memprobe/go/models"
)

var colorMoved = ansi.ColorCode("default+bu:default")

// Regs is the part of the register file an E820h call reads or writes.
type Regs struct {
	EAX, EBX, ECX, EDX uint32
	ES, DI             uint16
	CF                 bool
}

func ReadRegs(r models.RegReader) (Regs, error) {
	enums := []int{x86_16.EAX, x86_16.EBX, x86_16.ECX, x86_16.EDX, x86_16.ES, x86_16.EDI, x86_16.EFLAGS}
	vals := make([]uint64, len(enums))
	for i, enum := range enums {
		v, err := r.RegRead(enum)
		if err != nil {
			return Regs{}, err
		}
		vals[i] = v
	}
	return Regs{
		EAX: uint32(vals[0]), EBX: uint32(vals[1]), ECX: uint32(vals[2]), EDX: uint32(vals[3]),
		ES: uint16(vals[4]), DI: uint16(vals[5]),
		CF: vals[6]&x86_16.FLAG_CF != 0,
	}, nil
}

type field struct {
	name string
	val  string
}

func (r Regs) fields() []field {
	cf := "0"
	if r.CF {
		cf = "1"
	}
	return []field{
		{"eax", fmt.Sprintf("%08x", r.EAX)},
		{"ebx", fmt.Sprintf("%08x", r.EBX)},
		{"ecx", fmt.Sprintf("%08x", r.ECX)},
		{"edx", fmt.Sprintf("%08x", r.EDX)},
		{"es:di", fmt.Sprintf("%04x:%04x", r.ES, r.DI)},
		{"cf", cf},
	}
}

// Call holds the registers on both sides of one INT 15h.
type Call struct {
	In, Out Regs
}

// Verdict is how the caller reads Out.
func (c *Call) Verdict() string {
	switch {
	case c.Out.EAX != models.SMAP:
		return "no signature"
	case c.Out.ECX < models.DescriptorSize:
		return "short entry"
	case c.Out.EBX == 0:
		return "last entry"
	}
	return "entry"
}

// String renders the call as an in row and an out row. Registers the
// firmware changed are marked with + or, in color, underlined.
func (c *Call) String(color bool) string {
	in, out := c.In.fields(), c.Out.fields()
	var a, b []string
	for i := range in {
		a = append(a, fmt.Sprintf(" %s=%s", in[i].name, in[i].val))
		switch {
		case in[i].val == out[i].val:
			b = append(b, fmt.Sprintf(" %s=%s", out[i].name, out[i].val))
		case color:
			b = append(b, fmt.Sprintf(" %s=%s%s%s", out[i].name, colorMoved, out[i].val, ansi.Reset))
		default:
			b = append(b, fmt.Sprintf("+%s=%s", out[i].name, out[i].val))
		}
	}
	return fmt.Sprintf(" in %s\nout %s  (%s)", strings.Join(a, ""), strings.Join(b, ""), c.Verdict())
}
