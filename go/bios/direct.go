package bios

import (
	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/arch/x86_16"
	"github.com/ribeira-boot/memprobe/go/models/cpu"
)

// real mode address space, without the HMA
const RealModeSize = 0x100000

// Direct is a machine with no instruction decoder: Interrupt hands the
// register file straight to the installed interrupt hooks, as if the caller
// had executed INT n.
type Direct struct {
	*cpu.Mem
	*cpu.Regs
	hooks *cpu.Hooks
}

func NewDirect() (*Direct, error) {
	d := &Direct{
		Mem:  cpu.NewMem(32),
		Regs: cpu.NewRegs(32, x86_16.Enums()),
	}
	d.hooks = cpu.NewHooks(d, d.Mem)
	if err := d.MemMapProt(0, RealModeSize, cpu.PROT_ALL); err != nil {
		return nil, errors.Wrap(err, "failed to map real mode memory")
	}
	return d, nil
}

func (d *Direct) Interrupt(intno uint32) error {
	if d.hooks.OnIntr(intno) == 0 {
		return errors.Errorf("no handler for int %#x", intno)
	}
	return nil
}

func (d *Direct) HookAdd(htype int, cb interface{}, begin, end uint64) (cpu.Hook, error) {
	return d.hooks.HookAdd(htype, cb, begin, end)
}

func (d *Direct) HookDel(hh cpu.Hook) error {
	return d.hooks.HookDel(hh)
}

func (d *Direct) Close() error {
	return nil
}
