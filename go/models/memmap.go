package models

import (
	"fmt"
	"strings"
)

// MapCapacity is the number of descriptor slots in the info table.
const MapCapacity = 128

// MemoryMap is the fixed-capacity table filled by discovery.
//
// Slots is the number of slots the fill phase wrote (a high-water mark that
// bounds every later pass), Count is the number of live entries. A slot with
// zero length is dead. After merging the table is compact and Slots == Count.
type MemoryMap struct {
	Entries [MapCapacity]RangeDescriptor
	Slots   int
	Count   int
}

func (m *MemoryMap) Reset() {
	*m = MemoryMap{}
}

// Live returns a copy of the live entries in table order.
func (m *MemoryMap) Live() []RangeDescriptor {
	ret := make([]RangeDescriptor, 0, m.Count)
	for i := 0; i < m.Slots && i < MapCapacity; i++ {
		if !m.Entries[i].Degenerate() {
			ret = append(ret, m.Entries[i])
		}
	}
	return ret
}

// Usable returns the total length of all live usable entries.
func (m *MemoryMap) Usable() uint64 {
	var total uint64
	for _, e := range m.Live() {
		if e.Type == RangeUsable {
			total += e.Length
		}
	}
	return total
}

func (m *MemoryMap) String() string {
	live := m.Live()
	out := make([]string, len(live))
	for i, e := range live {
		out[i] = fmt.Sprintf("[%3d] %s", i, e)
	}
	return strings.Join(out, "\n")
}
