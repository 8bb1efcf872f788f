package cpu

import (
	"github.com/pkg/errors"
)

// Mem wraps MemSim with an address mask and memory hooks.
type Mem struct {
	bits uint
	// methods return an error for addresses that do not fit inside mask
	mask uint64
	// set when passing *Mem to NewHooks()
	hooks *Hooks
	sim   *MemSim
}

func NewMem(bits uint) *Mem {
	return &Mem{
		bits: bits,
		mask: ^uint64(0) >> (64 - bits),
		sim:  &MemSim{},
	}
}

func (m *Mem) MemMapProt(addr, size uint64, prot int) error {
	if end := addr + size; end&m.mask != end && end != m.mask+1 {
		return errors.Errorf("region %#x-%#x outside %d-bit memory", addr, end, m.bits)
	}
	m.sim.Map(addr, size, prot)
	return nil
}

// MemDesc labels the page containing addr, for Mappings output.
func (m *Mem) MemDesc(addr uint64, desc string) {
	if p := m.sim.Mem.Find(addr); p != nil {
		p.Desc = desc
	}
}

func (m *Mem) Mappings() Pages {
	return m.sim.Mem
}

func (m *Mem) MemReadInto(p []byte, addr uint64) error {
	if err := m.sim.Read(addr, p, 0); err != nil {
		return err
	}
	if m.hooks != nil {
		m.hooks.OnMem(MEM_READ, addr, len(p), 0)
	}
	return nil
}

func (m *Mem) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	if err := m.MemReadInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

// MemWrite fires write hooks once per call, with the whole length as size.
func (m *Mem) MemWrite(addr uint64, p []byte) error {
	if err := m.sim.Write(addr, p, 0); err != nil {
		return err
	}
	if m.hooks != nil {
		m.hooks.OnMem(MEM_WRITE, addr, len(p), 0)
	}
	return nil
}
