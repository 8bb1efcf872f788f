// Package emu runs firmware calls on a unicorn 16-bit real-mode CPU.
package emu

import (
	"fmt"

	ks "github.com/keystone-engine/keystone/bindings/go/keystone"
	cs "github.com/lunixbochs/capstr"
	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/ribeira-boot/memprobe/go/arch/x86_16"
	"github.com/ribeira-boot/memprobe/go/bios"
	"github.com/ribeira-boot/memprobe/go/cpu"
	"github.com/ribeira-boot/memprobe/go/cpu/unicorn"
	"github.com/ribeira-boot/memprobe/go/models"
)

const (
	// the trampoline lives past the query buffer, the stack below it
	StubAddr  = 0x0600
	StackAddr = 0x7c00
)

var regs = map[int]int{
	x86_16.EAX:    uc.X86_REG_EAX,
	x86_16.EBX:    uc.X86_REG_EBX,
	x86_16.ECX:    uc.X86_REG_ECX,
	x86_16.EDX:    uc.X86_REG_EDX,
	x86_16.ESI:    uc.X86_REG_ESI,
	x86_16.EDI:    uc.X86_REG_EDI,
	x86_16.EBP:    uc.X86_REG_EBP,
	x86_16.ESP:    uc.X86_REG_ESP,
	x86_16.EIP:    uc.X86_REG_EIP,
	x86_16.EFLAGS: uc.X86_REG_EFLAGS,
	x86_16.CS:     uc.X86_REG_CS,
	x86_16.DS:     uc.X86_REG_DS,
	x86_16.ES:     uc.X86_REG_ES,
	x86_16.SS:     uc.X86_REG_SS,
	x86_16.FS:     uc.X86_REG_FS,
	x86_16.GS:     uc.X86_REG_GS,
}

// Emulator is a real-mode machine whose interrupts are raised by executing
// an INT instruction, so the call crosses a real guest boundary.
type Emulator struct {
	*unicorn.UnicornCpu

	asm   *cpu.Keystone
	dis   *cpu.Capstr
	stubs map[uint32][]byte
}

func New() (*Emulator, error) {
	b := &unicorn.Builder{Arch: uc.ARCH_X86, Mode: uc.MODE_16, Regs: regs}
	u, err := b.New()
	if err != nil {
		return nil, err
	}
	e := &Emulator{
		UnicornCpu: u,
		asm:        &cpu.Keystone{Arch: ks.ARCH_X86, Mode: ks.MODE_16},
		dis:        &cpu.Capstr{Arch: cs.ARCH_X86, Mode: cs.MODE_16},
		stubs:      make(map[uint32][]byte),
	}
	u.Trap = e.trap
	if err := u.MemMapProt(0, bios.RealModeSize, uc.PROT_ALL); err != nil {
		u.Close()
		return nil, errors.Wrap(err, "failed to map real mode memory")
	}
	return e, nil
}

// NewService builds an emulator with the BIOS service for p installed.
func NewService(p *bios.Platform) (*Emulator, *bios.Service, error) {
	e, err := New()
	if err != nil {
		return nil, nil, err
	}
	s, err := bios.Install(e, p)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return e, s, nil
}

// Stub returns the assembled trampoline for intno.
func (e *Emulator) Stub(intno uint32) ([]byte, error) {
	if code, ok := e.stubs[intno]; ok {
		return code, nil
	}
	code, err := e.asm.Asm(fmt.Sprintf("int %#x", intno&0xff), StubAddr)
	if err != nil {
		return nil, err
	}
	e.stubs[intno] = code
	return code, nil
}

func (e *Emulator) trap(u *unicorn.UnicornCpu, intno uint32) error {
	code, err := e.Stub(intno)
	if err != nil {
		return err
	}
	// the trampoline is machine setup, not a firmware write, so skip hooks
	if err := u.Unicorn.MemWrite(StubAddr, code); err != nil {
		return errors.Wrap(err, "failed to write trampoline")
	}
	for _, r := range []struct {
		reg int
		val uint64
	}{
		{x86_16.CS, 0},
		{x86_16.SS, 0},
		{x86_16.ESP, StackAddr},
	} {
		if err := u.RegWrite(r.reg, r.val); err != nil {
			return err
		}
	}
	end := uint64(StubAddr + len(code))
	if err := u.Start(StubAddr, end); err != nil {
		return errors.Wrapf(err, "int %#x stub faulted", intno)
	}
	return nil
}

// Disas renders the trampoline for intno.
func (e *Emulator) Disas(intno uint32) (string, error) {
	code, err := e.Stub(intno)
	if err != nil {
		return "", err
	}
	return e.dis.Disas(code, StubAddr)
}

// RegDump formats the registers involved in firmware calls.
func (e *Emulator) RegDump() (string, error) {
	return x86_16.Arch.RegString(e)
}

func (e *Emulator) Close() error {
	e.asm.Close()
	e.dis.Close()
	return e.UnicornCpu.Close()
}

var _ models.Memory = &Emulator{}
