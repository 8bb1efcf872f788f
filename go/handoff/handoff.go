// Package handoff passes the memory map on to a Linux kernel.
package handoff

import (
	"github.com/pkg/errors"
	"github.com/u-root/u-root/pkg/boot/bzimage"

	"github.com/ribeira-boot/memprobe/go/models"
)

// boot_params offsets, Documentation/x86/zero-page.rst
const (
	ZeroPageSize      = 4096
	ZeroPageE820Count = 0x1e8
	ZeroPageE820Table = 0x2d0

	// E820_MAX_ENTRIES_ZEROPAGE
	MaxEntries = 128
	EntrySize  = 20
)

// ACPI 6.0 table 15-312, not named by bzimage
const addressRangePersistentMemory = 7

// E820 converts a descriptor to the kernel's layout. The kernel treats types
// it does not know as reserved, so they are passed on as reserved.
func E820(d models.RangeDescriptor) bzimage.E820Entry {
	e := bzimage.E820Entry{
		Addr: d.Base,
		Size: d.Length,
	}
	switch d.Type {
	case models.RangeUsable:
		e.MemType = bzimage.RAM
	case models.RangeAcpiReclaimable:
		e.MemType = bzimage.ACPI
	case models.RangeAcpiNVS:
		e.MemType = bzimage.NVS
	case models.RangePersistent:
		e.MemType = addressRangePersistentMemory
	default:
		e.MemType = bzimage.Reserved
	}
	return e
}

// Entries converts every live map entry, in order.
func Entries(m *models.MemoryMap) []bzimage.E820Entry {
	live := m.Live()
	ret := make([]bzimage.E820Entry, len(live))
	for i, d := range live {
		ret[i] = E820(d)
	}
	return ret
}

// WriteZeroPage writes m's e820 table into the boot_params at zp.
func WriteZeroPage(mem models.Memory, zp uint64, m *models.MemoryMap) error {
	entries := Entries(m)
	if len(entries) > MaxEntries {
		return errors.Errorf("%d e820 entries do not fit in the zero page", len(entries))
	}
	if err := models.Zero(mem, zp+ZeroPageE820Table, MaxEntries*EntrySize); err != nil {
		return errors.Wrap(err, "failed to clear zero page e820 table")
	}
	s := models.StrucAt(mem, zp+ZeroPageE820Table)
	for i := range entries {
		if err := s.Pack(&entries[i]); err != nil {
			return errors.Wrapf(err, "failed to write e820 entry %d", i)
		}
	}
	if err := mem.MemWrite(zp+ZeroPageE820Count, []byte{byte(len(entries))}); err != nil {
		return errors.Wrap(err, "failed to write e820 entry count")
	}
	return nil
}

// ReadZeroPage reads the e820 table back from the boot_params at zp.
func ReadZeroPage(mem models.Memory, zp uint64) ([]bzimage.E820Entry, error) {
	var count [1]byte
	if err := mem.MemReadInto(count[:], zp+ZeroPageE820Count); err != nil {
		return nil, errors.Wrap(err, "failed to read e820 entry count")
	}
	n := int(count[0])
	if n > MaxEntries {
		return nil, errors.Errorf("zero page claims %d e820 entries", n)
	}
	ret := make([]bzimage.E820Entry, n)
	s := models.StrucAt(mem, zp+ZeroPageE820Table)
	for i := range ret {
		if err := s.Unpack(&ret[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to read e820 entry %d", i)
		}
	}
	return ret, nil
}
