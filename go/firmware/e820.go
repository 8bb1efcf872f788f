package firmware

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/arch/x86_16"
	"github.com/ribeira-boot/memprobe/go/models"
	"github.com/ribeira-boot/memprobe/go/models/cpu"
)

// ScratchAddr is the default one-entry buffer, in free conventional memory
// just above the BIOS data area.
const ScratchAddr = 0x0500

// E820 queries INT 15h, EAX=E820h on a machine.
type E820 struct {
	Cpu    cpu.Cpu
	Buffer uint64
	// Strict fails a query whose firmware writes memory outside Buffer.
	Strict bool

	// registers around the most recent interrupt, nil before the first
	Last *Call
}

func NewE820(c cpu.Cpu) *E820 {
	return &E820{Cpu: c, Buffer: ScratchAddr}
}

// QueryRange issues exactly one INT 15h. The register setup and result
// readout must not be interleaved with anything else on the machine.
//
//go:noinline
func (e *E820) QueryRange(dst *models.RangeDescriptor, token uint32) (uint32, models.QueryStatus, error) {
	if e.Buffer+models.DescriptorSize > 0x100000 {
		return 0, models.Unsupported, errors.Errorf("e820 buffer %#x not addressable from real mode", e.Buffer)
	}
	// firmware that writes less than a full entry leaves the rest zeroed
	if err := models.Zero(e.Cpu, e.Buffer, models.DescriptorSize); err != nil {
		return 0, models.Unsupported, errors.Wrap(err, "failed to clear e820 buffer")
	}
	seg, off := x86_16.SegOff(e.Buffer)
	flags, err := e.Cpu.RegRead(x86_16.EFLAGS)
	if err != nil {
		return 0, models.Unsupported, errors.Wrap(err, "failed to read eflags")
	}
	in := Regs{EAX: 0xE820, EBX: token, ECX: models.DescriptorSize, EDX: models.SMAP, ES: seg, DI: off}
	setup := []struct {
		reg int
		val uint64
	}{
		{x86_16.EAX, uint64(in.EAX)},
		{x86_16.EBX, uint64(in.EBX)},
		{x86_16.ECX, uint64(in.ECX)},
		{x86_16.EDX, uint64(in.EDX)},
		{x86_16.ES, uint64(in.ES)},
		{x86_16.EDI, uint64(in.DI)},
		{x86_16.EFLAGS, flags &^ x86_16.FLAG_CF},
	}
	for _, r := range setup {
		if err := e.Cpu.RegWrite(r.reg, r.val); err != nil {
			return 0, models.Unsupported, errors.Wrapf(err, "failed to set up register %d", r.reg)
		}
	}
	if err := e.interrupt(); err != nil {
		return 0, models.Unsupported, err
	}

	out, err := ReadRegs(e.Cpu)
	if err != nil {
		return 0, models.Unsupported, errors.Wrap(err, "failed to read e820 result")
	}
	e.Last = &Call{In: in, Out: out}
	if out.EAX != models.SMAP {
		return 0, models.Unsupported, nil
	}
	var raw models.SplitDescriptor
	if err := models.StrucAt(e.Cpu, e.Buffer).Unpack(&raw); err != nil {
		return 0, models.Unsupported, errors.Wrap(err, "failed to read e820 entry")
	}
	if out.ECX < models.DescriptorSize {
		raw.Attributes = 0
	}
	*dst = raw.Join()
	return out.EBX, models.Filled, nil
}

// interrupt raises INT 15h, watching firmware writes when Strict is set.
func (e *E820) interrupt() error {
	if !e.Strict {
		return errors.Wrap(e.Cpu.Interrupt(0x15), "int 15h failed")
	}
	var stray []string
	end := e.Buffer + models.DescriptorSize
	watch := func(_ cpu.Cpu, _ int, addr uint64, size int, _ int64) {
		if addr < e.Buffer || addr+uint64(size) > end {
			stray = append(stray, fmt.Sprintf("%#x(%d)", addr, size))
		}
	}
	hh, err := e.Cpu.HookAdd(cpu.HOOK_MEM_WRITE, watch, 1, 0)
	if err != nil {
		return errors.Wrap(err, "failed to watch firmware writes")
	}
	defer e.Cpu.HookDel(hh)
	if err := e.Cpu.Interrupt(0x15); err != nil {
		return errors.Wrap(err, "int 15h failed")
	}
	if len(stray) > 0 {
		return errors.Errorf("firmware wrote outside the e820 buffer at %s", strings.Join(stray, ", "))
	}
	return nil
}
