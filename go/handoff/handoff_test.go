package handoff

import (
	"testing"

	"github.com/u-root/u-root/pkg/boot/bzimage"

	"github.com/ribeira-boot/memprobe/go/bios"
	"github.com/ribeira-boot/memprobe/go/models"
)

func TestE820Types(t *testing.T) {
	tests := []struct {
		in   models.RangeType
		want bzimage.E820Entry
	}{
		{models.RangeUsable, bzimage.E820Entry{Addr: 0x1000, Size: 0x2000, MemType: bzimage.RAM}},
		{models.RangeReserved, bzimage.E820Entry{Addr: 0x1000, Size: 0x2000, MemType: bzimage.Reserved}},
		{models.RangeAcpiReclaimable, bzimage.E820Entry{Addr: 0x1000, Size: 0x2000, MemType: bzimage.ACPI}},
		{models.RangeAcpiNVS, bzimage.E820Entry{Addr: 0x1000, Size: 0x2000, MemType: bzimage.NVS}},
		{models.RangeBad, bzimage.E820Entry{Addr: 0x1000, Size: 0x2000, MemType: bzimage.Reserved}},
		{models.RangePersistent, bzimage.E820Entry{Addr: 0x1000, Size: 0x2000, MemType: 7}},
		{0xf00, bzimage.E820Entry{Addr: 0x1000, Size: 0x2000, MemType: bzimage.Reserved}},
	}
	for _, test := range tests {
		got := E820(models.RangeDescriptor{Base: 0x1000, Length: 0x2000, Type: test.in})
		if got != test.want {
			t.Errorf("%s: got %+v, want %+v", test.in, got, test.want)
		}
	}
}

func TestZeroPage(t *testing.T) {
	d, err := bios.NewDirect()
	if err != nil {
		t.Fatal(err)
	}
	const zp = 0x90000
	var m models.MemoryMap
	m.Entries[0] = models.RangeDescriptor{Base: 0, Length: 0x9fc00, Type: models.RangeUsable}
	m.Entries[1] = models.RangeDescriptor{Base: 0x9fc00, Length: 0x400, Type: models.RangeReserved}
	m.Entries[2] = models.RangeDescriptor{Base: 0x100000000, Length: 0x40000000, Type: models.RangeUsable}
	m.Slots, m.Count = 3, 3
	if err := WriteZeroPage(d, zp, &m); err != nil {
		t.Fatal(err)
	}
	raw, _ := d.MemRead(zp+ZeroPageE820Table+EntrySize, EntrySize)
	want := []byte{0x00, 0xfc, 0x09, 0, 0, 0, 0, 0, 0x00, 0x04, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0}
	if string(raw) != string(want) {
		t.Fatalf("entry 1: % x, want % x", raw, want)
	}
	got, err := ReadZeroPage(d, zp)
	if err != nil {
		t.Fatal(err)
	}
	entries := Entries(&m)
	if len(got) != len(entries) {
		t.Fatalf("read %d entries", len(got))
	}
	for i := range got {
		if got[i] != entries[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], entries[i])
		}
	}
}
