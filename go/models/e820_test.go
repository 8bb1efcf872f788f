package models

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestSplitJoin(t *testing.T) {
	tests := []RangeDescriptor{
		{},
		{Base: 0x9fc00, Length: 0x400, Type: RangeReserved},
		{Base: 0x100000000, Length: 0x80000000, Type: RangeUsable, Attributes: 1},
		{Base: 0xffffffffffffffff, Length: 0xffffffffffffffff, Type: 0xffffffff, Attributes: 0xffffffff},
	}
	for _, d := range tests {
		s := d.Split()
		if got := s.Join(); got != d {
			t.Errorf("round trip: got %s, want %s", got, d)
		}
	}
	d := RangeDescriptor{Base: 0x123456789, Length: 0xabcdef012}
	s := d.Split()
	if s.LowBase != 0x23456789 || s.HighBase != 1 || s.LowLength != 0xbcdef012 || s.HighLength != 0xa {
		t.Fatalf("bad halves %+v", s)
	}
}

func TestSplitEnd(t *testing.T) {
	tests := []struct {
		d      RangeDescriptor
		lo, hi uint32
		carry  bool
	}{
		{RangeDescriptor{Base: 0, Length: 0x9fc00}, 0x9fc00, 0, false},
		{RangeDescriptor{Base: 0xfffff000, Length: 0x1000}, 0, 1, false},
		{RangeDescriptor{Base: 0x1fffff000, Length: 0x100001000}, 0, 3, false},
		{RangeDescriptor{Base: 0xfffffffffffff000, Length: 0x1000}, 0, 0, true},
		{RangeDescriptor{Base: 0xffffffff00000000, Length: 0x100000000}, 0, 0, true},
	}
	for _, test := range tests {
		lo, hi, carry := test.d.Split().End()
		if lo != test.lo || hi != test.hi || carry != test.carry {
			t.Errorf("%s: got %#x:%#x %v, want %#x:%#x %v", test.d, hi, lo, carry, test.hi, test.lo, test.carry)
		}
		end, ok := test.d.End()
		if ok == carry {
			t.Errorf("%s: 64-bit end ok=%v disagrees with carry=%v", test.d, ok, carry)
		}
		if ok && end != uint64(hi)<<32|uint64(lo) {
			t.Errorf("%s: 64-bit end %#x disagrees with halves %#x:%#x", test.d, end, hi, lo)
		}
	}
}

func TestDescriptorWire(t *testing.T) {
	d := RangeDescriptor{Base: 0x100000, Length: 0xef0000, Type: RangeUsable, Attributes: 1}
	var buf bytes.Buffer
	s := &StrucStream{Stream: &buf, Order: binary.LittleEndian}
	if err := s.Pack(&d); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x00, 0x00, 0x10, 0x00, 0, 0, 0, 0,
		0x00, 0x00, 0xef, 0x00, 0, 0, 0, 0,
		1, 0, 0, 0,
		1, 0, 0, 0,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x\nwant % x", buf.Bytes(), want)
	}
	var back RangeDescriptor
	if err := s.Unpack(&back); err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Fatalf("got %s, want %s", back, d)
	}
}

func TestRangeString(t *testing.T) {
	tests := []struct {
		d    RangeDescriptor
		want string
	}{
		{RangeDescriptor{Base: 0, Length: 0x9fc00, Type: RangeUsable}, "0x0000000000000000-0x000000000009fc00 usable"},
		{RangeDescriptor{Base: 0xfffffffffffff000, Length: 0x2000, Type: RangeReserved}, "0xfffffffffffff000-(overflow) reserved"},
		{RangeDescriptor{Base: 0x1000, Length: 0x1000, Type: 12}, "0x0000000000001000-0x0000000000002000 oem(12)"},
	}
	for _, test := range tests {
		if got := test.d.String(); got != test.want {
			t.Errorf("got %q, want %q", got, test.want)
		}
	}
}
