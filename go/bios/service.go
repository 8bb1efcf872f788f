package bios

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/arch/x86_16"
	"github.com/ribeira-boot/memprobe/go/models"
	"github.com/ribeira-boot/memprobe/go/models/cpu"
)

const (
	INT_SYSTEM = 0x15
	FN_E820    = 0xE820

	// AH on failure: function not supported
	errUnsupported = 0x86
	shortEntrySize = 20
)

// Service is the BIOS side of INT 15h. Only EAX=E820h is implemented.
// The continuation token it hands out is the index of the next entry.
type Service struct {
	Platform *Platform
	Calls    int
}

// Install hooks the service into c's interrupt dispatch.
func Install(c cpu.Cpu, p *Platform) (*Service, error) {
	s := &Service{Platform: p}
	if _, err := c.HookAdd(cpu.HOOK_INTR, s.Interrupt, 1, 0); err != nil {
		return nil, errors.Wrap(err, "failed to hook int 15h")
	}
	return s, nil
}

func (s *Service) Interrupt(c cpu.Cpu, intno uint32) {
	if intno&0xff != INT_SYSTEM {
		return
	}
	s.Calls++
	eax, _ := c.RegRead(x86_16.EAX)
	if uint32(eax) != FN_E820 || s.Platform.NoE820 {
		fail(c, eax, true)
		return
	}
	if err := s.e820(c); err != nil {
		fail(c, eax, false)
	}
}

// fail sets CF, and optionally AH to the unsupported function code
func fail(c cpu.Cpu, eax uint64, ah bool) {
	if ah {
		c.RegWrite(x86_16.EAX, eax&^0xff00|errUnsupported<<8)
	}
	flags, _ := c.RegRead(x86_16.EFLAGS)
	c.RegWrite(x86_16.EFLAGS, flags|x86_16.FLAG_CF)
}

func (s *Service) e820(c cpu.Cpu) error {
	regs := []int{x86_16.EBX, x86_16.ECX, x86_16.EDX, x86_16.ES, x86_16.EDI}
	vals := make([]uint64, len(regs))
	for i, r := range regs {
		v, err := c.RegRead(r)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	index, size, sig, es, di := vals[0], vals[1], vals[2], vals[3], vals[4]
	if uint32(sig) != models.SMAP {
		return errors.New("bad signature")
	}
	if size < shortEntrySize {
		return errors.Errorf("buffer too small: %d", size)
	}
	ranges := s.Platform.Ranges
	if index >= uint64(len(ranges)) {
		return errors.Errorf("bad continuation %d", index)
	}

	var buf bytes.Buffer
	raw := ranges[index].Split()
	if err := struc.PackWithOrder(&buf, &raw, binary.LittleEndian); err != nil {
		return err
	}
	n := uint64(models.DescriptorSize)
	if size < n || s.Platform.ShortEntries {
		n = shortEntrySize
	}
	if err := c.MemWrite(x86_16.Linear(uint16(es), uint16(di)), buf.Bytes()[:n]); err != nil {
		return err
	}

	next := index + 1
	if next >= uint64(len(ranges)) {
		next = 0
	}
	c.RegWrite(x86_16.EAX, models.SMAP)
	c.RegWrite(x86_16.EBX, next)
	c.RegWrite(x86_16.ECX, n)
	flags, _ := c.RegRead(x86_16.EFLAGS)
	return c.RegWrite(x86_16.EFLAGS, flags&^x86_16.FLAG_CF)
}
