package x86_16

import (
	"github.com/ribeira-boot/memprobe/go/models"
)

// register enums for the real-mode register file
// 32-bit registers are usable from real mode on a 386 or later
const (
	EAX = iota + 1
	EBX
	ECX
	EDX
	ESI
	EDI
	EBP
	ESP
	EIP
	EFLAGS
	CS
	DS
	ES
	SS
	FS
	GS
)

// EFLAGS bits
const (
	FLAG_CF = 1 << 0
	FLAG_ZF = 1 << 6
	FLAG_IF = 1 << 9
)

var Arch = &models.Arch{
	Name: "x86_16",
	Bits: 32,

	Regs: map[string]int{
		"eax": EAX,
		"ebx": EBX,
		"ecx": ECX,
		"edx": EDX,
		"esi": ESI,
		"edi": EDI,
		"ebp": EBP,
		"esp": ESP,
		"eip": EIP,

		"eflags": EFLAGS,

		"cs": CS,
		"ds": DS,
		"es": ES,
		"ss": SS,
		"fs": FS,
		"gs": GS,
	},
	DefaultRegs: []string{
		"eax", "ebx", "ecx", "edx", "edi", "es", "eflags",
	},
}

// Enums lists every register enum, for building a register file.
func Enums() []int {
	ret := make([]int, 0, len(Arch.Regs))
	for _, e := range Arch.Regs {
		ret = append(ret, e)
	}
	return ret
}

// Linear converts a real-mode seg:off pair to a physical address.
func Linear(seg, off uint16) uint64 {
	return uint64(seg)<<4 + uint64(off)
}

// SegOff splits a physical address below 1MiB into a seg:off pair with the
// smallest possible offset.
func SegOff(addr uint64) (seg, off uint16) {
	return uint16(addr >> 4), uint16(addr & 0xf)
}
