// Package memmap builds the physical memory map from firmware enumeration.
package memmap

import (
	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/models"
)

// Result summarizes one discovery run.
type Result struct {
	// slots written by the firmware
	Filled int
	// degenerate slots dropped
	Pruned int
	// entries folded into their predecessor
	Merged int
	// the table filled up while the firmware still had entries
	Exhausted bool
}

// Fill enumerates firmware ranges into m, one query per slot, until the
// firmware returns a zero token or the table is full. m is reset first.
// Any unsupported answer is fatal: a partial map is never returned as good.
func Fill(m *models.MemoryMap, fw models.Firmware) (Result, error) {
	var res Result
	m.Reset()
	var token uint32
	for i := 0; i < models.MapCapacity; i++ {
		next, status, err := fw.QueryRange(&m.Entries[i], token)
		if err != nil {
			m.Entries[i] = models.RangeDescriptor{}
			return res, errors.Wrapf(err, "range query %d failed", i)
		}
		if status != models.Filled {
			m.Entries[i] = models.RangeDescriptor{}
			return res, errors.WithMessagef(models.ErrEnumerationUnsupported, "query %d", i)
		}
		m.Slots++
		m.Count++
		res.Filled++
		if next == 0 {
			return res, nil
		}
		token = next
	}
	res.Exhausted = true
	return res, nil
}

// Prune zeroes every degenerate slot below m.Slots and recounts live entries.
// It returns how many entries were dropped from the live count.
func Prune(m *models.MemoryMap) int {
	live := 0
	for i := 0; i < m.Slots && i < models.MapCapacity; i++ {
		e := &m.Entries[i]
		if e.Length == 0 {
			*e = models.RangeDescriptor{}
			continue
		}
		live++
	}
	pruned := m.Count - live
	if pruned < 0 {
		pruned = 0
	}
	m.Count = live
	return pruned
}

// MergePair returns a extended over b when b starts exactly where a ends and
// both have the same type. Attributes of a are kept.
func MergePair(a, b models.RangeDescriptor) (models.RangeDescriptor, bool) {
	if a.Type != b.Type || a.Degenerate() || b.Degenerate() {
		return a, false
	}
	end, ok := a.End()
	if !ok || end != b.Base {
		return a, false
	}
	if _, ok := b.End(); !ok {
		return a, false
	}
	a.Length += b.Length
	return a, true
}

// Merge folds adjacent same-type entries into one, in table order, then
// compacts the table so live entries are contiguous and Slots == Count.
// It returns the number of entries folded away.
func Merge(m *models.MemoryMap) int {
	merged := 0
	kept := -1
	for i := 0; i < m.Slots && i < models.MapCapacity; i++ {
		e := m.Entries[i]
		if e.Degenerate() {
			continue
		}
		if kept >= 0 {
			if joined, ok := MergePair(m.Entries[kept], e); ok {
				m.Entries[kept] = joined
				m.Entries[i] = models.RangeDescriptor{}
				merged++
				continue
			}
		}
		kept = i
	}
	compact(m)
	return merged
}

func compact(m *models.MemoryMap) {
	n := 0
	for i := 0; i < m.Slots && i < models.MapCapacity; i++ {
		if m.Entries[i].Degenerate() {
			continue
		}
		m.Entries[n] = m.Entries[i]
		n++
	}
	for i := n; i < models.MapCapacity; i++ {
		m.Entries[i] = models.RangeDescriptor{}
	}
	m.Slots = n
	m.Count = n
}

// Discover runs fill, prune and merge once each.
// A finished map without any usable range is an error.
func Discover(m *models.MemoryMap, fw models.Firmware) (Result, error) {
	res, err := Fill(m, fw)
	if err != nil {
		return res, err
	}
	res.Pruned = Prune(m)
	res.Merged = Merge(m)
	if m.Usable() == 0 {
		return res, errors.WithStack(models.ErrNoUsableMemory)
	}
	return res, nil
}
