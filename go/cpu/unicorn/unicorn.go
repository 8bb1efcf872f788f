package unicorn

import (
	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/ribeira-boot/memprobe/go/models/cpu"
)

type Builder struct {
	Arch, Mode int
	// arch register enum -> unicorn register enum
	Regs map[int]int
}

func (b *Builder) New() (*UnicornCpu, error) {
	u, err := uc.NewUnicorn(b.Arch, b.Mode)
	if err != nil {
		return nil, errors.Wrap(err, "NewUnicorn() failed")
	}
	c := &UnicornCpu{Unicorn: u, regs: b.Regs}
	c.host = cpu.NewHooks(c, nil)
	return c, nil
}

// Trap raises software interrupt intno on u by running guest code.
type Trap func(u *UnicornCpu, intno uint32) error

type UnicornCpu struct {
	uc.Unicorn
	Trap Trap

	regs map[int]int
	// unicorn only hooks guest accesses, so memory hooks also land here
	// for reads and writes made from Go, such as by a BIOS handler
	host *cpu.Hooks
}

// memHook is a memory hook installed on both sides.
type memHook struct {
	guest uc.Hook
	host  cpu.Hook
}

func (u *UnicornCpu) Backend() interface{} {
	return u.Unicorn
}

func (u *UnicornCpu) reg(enum int) (int, error) {
	if u.regs == nil {
		return enum, nil
	}
	if r, ok := u.regs[enum]; ok {
		return r, nil
	}
	return 0, errors.Errorf("no unicorn register for enum %d", enum)
}

func (u *UnicornCpu) RegRead(enum int) (uint64, error) {
	r, err := u.reg(enum)
	if err != nil {
		return 0, err
	}
	return u.Unicorn.RegRead(r)
}

func (u *UnicornCpu) RegWrite(enum int, val uint64) error {
	r, err := u.reg(enum)
	if err != nil {
		return err
	}
	return u.Unicorn.RegWrite(r, val)
}

func (u *UnicornCpu) MemReadInto(p []byte, addr uint64) error {
	if err := u.Unicorn.MemReadInto(p, addr); err != nil {
		return err
	}
	u.host.OnMem(cpu.MEM_READ, addr, len(p), 0)
	return nil
}

func (u *UnicornCpu) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	return p, u.MemReadInto(p, addr)
}

func (u *UnicornCpu) MemWrite(addr uint64, p []byte) error {
	if err := u.Unicorn.MemWrite(addr, p); err != nil {
		return err
	}
	u.host.OnMem(cpu.MEM_WRITE, addr, len(p), 0)
	return nil
}

func (u *UnicornCpu) Interrupt(intno uint32) error {
	if u.Trap == nil {
		return errors.New("no interrupt trap installed")
	}
	return u.Trap(u, intno)
}

func (u *UnicornCpu) HookAdd(htype int, cb interface{}, start uint64, end uint64) (cpu.Hook, error) {
	// have to wrap all hooks to conform to Cpu interface :(
	switch htype {
	case cpu.HOOK_MEM_READ, cpu.HOOK_MEM_WRITE, cpu.HOOK_MEM_READ | cpu.HOOK_MEM_WRITE:
		cbc, ok := cb.(func(cpu.Cpu, int, uint64, int, int64))
		if !ok {
			return nil, errors.Errorf("bad memory hook callback %T", cb)
		}
		wrap := func(_ uc.Unicorn, access int, addr uint64, size int, val int64) { cbc(u, access, addr, size, val) }
		guest, err := u.Unicorn.HookAdd(htype, wrap, start, end)
		if err != nil {
			return nil, err
		}
		host, err := u.host.HookAdd(htype, cbc, start, end)
		if err != nil {
			u.Unicorn.HookDel(guest)
			return nil, err
		}
		return &memHook{guest, host}, nil

	case cpu.HOOK_INTR:
		cbc, ok := cb.(func(cpu.Cpu, uint32))
		if !ok {
			return nil, errors.Errorf("bad interrupt hook callback %T", cb)
		}
		wrap := func(_ uc.Unicorn, intno uint32) { cbc(u, intno) }
		return u.Unicorn.HookAdd(htype, wrap, start, end)
	}
	return nil, errors.New("Unknown hook type.")
}

func (u *UnicornCpu) HookDel(hh cpu.Hook) error {
	if m, ok := hh.(*memHook); ok {
		if err := u.host.HookDel(m.host); err != nil {
			return err
		}
		return u.Unicorn.HookDel(m.guest)
	}
	h, ok := hh.(uc.Hook)
	if !ok {
		return errors.Errorf("not a unicorn hook: %T", hh)
	}
	return u.Unicorn.HookDel(h)
}
