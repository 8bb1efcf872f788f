package cpu

import (
	"github.com/pkg/errors"
)

type Hook interface{}

type hookInfo struct {
	htype int
	start uint64
	end   uint64
}

func (h *hookInfo) Type() int {
	return h.htype
}

// start > end hooks every address, the same as Unicorn
func (h *hookInfo) Contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type intrHook struct {
	hookInfo
	cb func(Cpu, uint32)
}

type memHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64)
}

// Hooks dispatches interrupt and memory callbacks for a Cpu without an emulator.
type Hooks struct {
	cpu Cpu

	intr []*intrHook
	mem  []*memHook
}

// NewHooks creates a dispatcher, optionally attaching it to mem so every
// Mem.MemWrite and Mem.MemReadInto calls memory hooks.
func NewHooks(cpu Cpu, mem *Mem) *Hooks {
	h := &Hooks{cpu: cpu}
	if mem != nil {
		mem.hooks = h
	}
	return h
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64) (Hook, error) {
	info := hookInfo{htype, start, end}
	switch htype {
	case HOOK_INTR:
		fn, ok := cb.(func(Cpu, uint32))
		if !ok {
			return nil, errors.Errorf("bad interrupt hook callback %T", cb)
		}
		hh := &intrHook{info, fn}
		h.intr = append(h.intr, hh)
		return hh, nil

	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		fn, ok := cb.(func(Cpu, int, uint64, int, int64))
		if !ok {
			return nil, errors.Errorf("bad memory hook callback %T", cb)
		}
		hh := &memHook{info, fn}
		h.mem = append(h.mem, hh)
		return hh, nil
	}
	return nil, errors.Errorf("unknown hook type %d", htype)
}

func (h *Hooks) HookDel(hh Hook) error {
	switch v := hh.(type) {
	case *intrHook:
		var tmp []*intrHook
		for _, o := range h.intr {
			if o != v {
				tmp = append(tmp, o)
			}
		}
		h.intr = tmp
	case *memHook:
		var tmp []*memHook
		for _, o := range h.mem {
			if o != v {
				tmp = append(tmp, o)
			}
		}
		h.mem = tmp
	default:
		return errors.Errorf("unknown hook %T", hh)
	}
	return nil
}

// OnIntr returns the number of handlers that ran.
func (h *Hooks) OnIntr(intno uint32) int {
	for _, v := range h.intr {
		v.cb(h.cpu, intno)
	}
	return len(h.intr)
}

func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	for _, v := range h.mem {
		if v.htype&memHookType(access) == 0 {
			continue
		}
		if v.Contains(addr) {
			v.cb(h.cpu, access, addr, size, val)
		}
	}
}

func memHookType(access int) int {
	if access == MEM_WRITE {
		return HOOK_MEM_WRITE
	}
	return HOOK_MEM_READ
}
