package bios

import (
	"testing"

	"github.com/ribeira-boot/memprobe/go/arch/x86_16"
	"github.com/ribeira-boot/memprobe/go/models"
)

func setup(t *testing.T, p *Platform) (*Direct, *Service) {
	d, err := NewDirect()
	if err != nil {
		t.Fatal(err)
	}
	s, err := Install(d, p)
	if err != nil {
		t.Fatal(err)
	}
	return d, s
}

func call(t *testing.T, d *Direct, eax, ebx, ecx, edx uint64) {
	regs := map[int]uint64{
		x86_16.EAX: eax, x86_16.EBX: ebx, x86_16.ECX: ecx, x86_16.EDX: edx,
		x86_16.ES: 0x50, x86_16.EDI: 0x0, x86_16.EFLAGS: 0,
	}
	for enum, val := range regs {
		d.RegWrite(enum, val)
	}
	if err := d.Interrupt(INT_SYSTEM); err != nil {
		t.Fatal(err)
	}
}

func reg(d *Direct, enum int) uint64 {
	v, _ := d.RegRead(enum)
	return v
}

func TestServiceWalk(t *testing.T) {
	p, _ := Profile("qemu")
	d, s := setup(t, p)
	token := uint64(0)
	for i, want := range p.Ranges {
		call(t, d, FN_E820, token, models.DescriptorSize, models.SMAP)
		if reg(d, x86_16.EAX) != models.SMAP {
			t.Fatalf("entry %d: signature not echoed", i)
		}
		if reg(d, x86_16.EFLAGS)&x86_16.FLAG_CF != 0 {
			t.Fatalf("entry %d: carry set", i)
		}
		if n := reg(d, x86_16.ECX); n != models.DescriptorSize {
			t.Fatalf("entry %d: wrote %d bytes", i, n)
		}
		var raw models.SplitDescriptor
		if err := models.StrucAt(d, 0x500).Unpack(&raw); err != nil {
			t.Fatal(err)
		}
		if got := raw.Join(); got != want {
			t.Fatalf("entry %d: got %s, want %s", i, got, want)
		}
		token = reg(d, x86_16.EBX)
	}
	if token != 0 {
		t.Fatalf("final token %d, want 0", token)
	}
	if s.Calls != len(p.Ranges) {
		t.Fatalf("service saw %d calls, want %d", s.Calls, len(p.Ranges))
	}
}

func TestServiceShortEntries(t *testing.T) {
	p, _ := Profile("short")
	d, _ := setup(t, p)
	// poison the attribute slot; a 20-byte entry must not touch it
	d.MemWrite(0x500+20, []byte{0xff, 0xff, 0xff, 0xff})
	call(t, d, FN_E820, 0, models.DescriptorSize, models.SMAP)
	if n := reg(d, x86_16.ECX); n != 20 {
		t.Fatalf("wrote %d bytes, want 20", n)
	}
	tail, _ := d.MemRead(0x500+20, 4)
	for _, b := range tail {
		if b != 0xff {
			t.Fatalf("short entry overwrote attributes: % x", tail)
		}
	}
}

func TestServiceUnsupported(t *testing.T) {
	p, _ := Profile("legacy")
	d, _ := setup(t, p)
	call(t, d, FN_E820, 0, models.DescriptorSize, models.SMAP)
	if reg(d, x86_16.EAX) == models.SMAP {
		t.Fatal("legacy bios echoed the signature")
	}
	if ah := reg(d, x86_16.EAX) >> 8 & 0xff; ah != 0x86 {
		t.Fatalf("ah = %#x, want 0x86", ah)
	}
	if reg(d, x86_16.EFLAGS)&x86_16.FLAG_CF == 0 {
		t.Fatal("carry not set")
	}
}

func TestServiceBadRequest(t *testing.T) {
	p, _ := Profile("qemu")
	tests := []struct {
		name               string
		eax, ebx, ecx, edx uint64
	}{
		{"function", 0xE801, 0, 24, models.SMAP},
		{"signature", FN_E820, 0, 24, 0x12345678},
		{"size", FN_E820, 0, 16, models.SMAP},
		{"token", FN_E820, 99, 24, models.SMAP},
	}
	for _, test := range tests {
		d, _ := setup(t, p)
		call(t, d, test.eax, test.ebx, test.ecx, test.edx)
		if reg(d, x86_16.EAX) == models.SMAP {
			t.Errorf("%s: signature echoed", test.name)
		}
		if reg(d, x86_16.EFLAGS)&x86_16.FLAG_CF == 0 {
			t.Errorf("%s: carry not set", test.name)
		}
	}
}

func TestServiceIgnoresOtherInterrupts(t *testing.T) {
	p, _ := Profile("qemu")
	d, s := setup(t, p)
	d.RegWrite(x86_16.EAX, FN_E820)
	if err := d.Interrupt(0x10); err != nil {
		t.Fatal(err)
	}
	if s.Calls != 0 || reg(d, x86_16.EAX) != FN_E820 {
		t.Fatal("service handled int 10h")
	}
}
