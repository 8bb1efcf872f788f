package cpu

import (
	"sort"

	"github.com/pkg/errors"
)

// Regs is a flat register file keyed by register enum.
// Sub-registers are not aliased, callers read and write the full-width enum.
type Regs struct {
	mask uint64
	vals map[int]uint64
}

func NewRegs(bits uint, enums []int) *Regs {
	r := &Regs{
		mask: ^uint64(0) >> (64 - bits),
		vals: make(map[int]uint64),
	}
	for _, e := range enums {
		r.vals[e] = 0
	}
	return r
}

func (r *Regs) RegRead(enum int) (uint64, error) {
	val, ok := r.vals[enum]
	if !ok {
		return 0, errors.Errorf("invalid register %d", enum)
	}
	return val, nil
}

func (r *Regs) RegWrite(enum int, val uint64) error {
	if _, ok := r.vals[enum]; !ok {
		return errors.Errorf("invalid register %d", enum)
	}
	r.vals[enum] = val & r.mask
	return nil
}

// Enums returns every register in the file, lowest enum first.
func (r *Regs) Enums() []int {
	ret := make([]int, 0, len(r.vals))
	for e := range r.vals {
		ret = append(ret, e)
	}
	sort.Ints(ret)
	return ret
}

// Clear zeroes every register.
func (r *Regs) Clear() {
	for e := range r.vals {
		r.vals[e] = 0
	}
}
