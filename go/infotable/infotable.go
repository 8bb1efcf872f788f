// Package infotable publishes the memory map where later boot stages look for it.
package infotable

import (
	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/models"
)

const (
	// reserved for the table, 0xEA00-0xFE00
	Budget = 5120
	// descriptors then a uint32 count
	Size = models.MapCapacity*models.DescriptorSize + 4
)

// Table is the published layout.
type Table struct {
	Entries [models.MapCapacity]models.RangeDescriptor
	Count   uint32 `struc:"uint32,little"`
}

// Publish zeroes the reserved region at addr and writes m into it.
func Publish(mem models.Memory, addr uint64, m *models.MemoryMap) error {
	if m.Count < 0 || m.Count > models.MapCapacity {
		return errors.Errorf("map count %d out of range", m.Count)
	}
	if err := models.Zero(mem, addr, Budget); err != nil {
		return errors.Wrapf(err, "failed to clear info table at %#x", addr)
	}
	t := &Table{Count: uint32(m.Count)}
	copy(t.Entries[:], m.Live())
	if err := models.StrucAt(mem, addr).Pack(t); err != nil {
		return errors.Wrapf(err, "failed to write info table at %#x", addr)
	}
	return nil
}

// Load reads a published table back.
func Load(mem models.Memory, addr uint64) (*models.MemoryMap, error) {
	var t Table
	if err := models.StrucAt(mem, addr).Unpack(&t); err != nil {
		return nil, errors.Wrapf(err, "failed to read info table at %#x", addr)
	}
	if t.Count > models.MapCapacity {
		return nil, errors.Errorf("info table count %d out of range", t.Count)
	}
	m := &models.MemoryMap{Entries: t.Entries, Slots: int(t.Count), Count: int(t.Count)}
	return m, nil
}
