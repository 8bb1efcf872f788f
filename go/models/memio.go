package models

import (
	"github.com/lunixbochs/ghostrace/ghost/memio"
)

// Memory is the physical address space as seen by this stage.
type Memory interface {
	MemReadInto(p []byte, addr uint64) error
	MemWrite(addr uint64, p []byte) error
}

// MemIO adapts mem to ghostrace's streaming accessors. Accesses are all or
// nothing, so a failed call reports zero bytes.
func MemIO(mem Memory) memio.MemIO {
	read := func(p []byte, addr uint64) (int, error) {
		if err := mem.MemReadInto(p, addr); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	write := func(p []byte, addr uint64) (int, error) {
		if err := mem.MemWrite(addr, p); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return memio.NewMemIO(read, write)
}

// Zero fills size bytes at addr.
func Zero(mem Memory, addr, size uint64) error {
	return mem.MemWrite(addr, make([]byte, size))
}
