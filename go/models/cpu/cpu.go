package cpu

// Cpu is the minimum a machine needs to host a firmware call:
// physical memory, a register file, and a way to raise a software interrupt.
type Cpu interface {
	// memory mapping
	MemMapProt(addr, size uint64, prot int) error

	// memory IO
	MemRead(addr, size uint64) ([]byte, error)
	MemReadInto(p []byte, addr uint64) error
	MemWrite(addr uint64, p []byte) error

	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// Interrupt runs the handler for software interrupt intno against the
	// current register file and returns once control is back with the caller.
	Interrupt(intno uint32) error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64) (Hook, error)
	HookDel(hook Hook) error

	// cleanup
	Close() error
}
