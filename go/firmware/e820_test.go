package firmware

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ribeira-boot/memprobe/go/arch/x86_16"
	"github.com/ribeira-boot/memprobe/go/bios"
	"github.com/ribeira-boot/memprobe/go/models"
	"github.com/ribeira-boot/memprobe/go/models/cpu"
)

func machine(t *testing.T, profile string, hooks ...func(cpu.Cpu, uint32)) (*bios.Direct, *bios.Platform) {
	p, err := bios.Profile(profile)
	if err != nil {
		t.Fatal(err)
	}
	d, err := bios.NewDirect()
	if err != nil {
		t.Fatal(err)
	}
	// hooks run in install order, so these see the request before the bios does
	for _, h := range hooks {
		if _, err := d.HookAdd(cpu.HOOK_INTR, h, 1, 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := bios.Install(d, p); err != nil {
		t.Fatal(err)
	}
	return d, p
}

func TestE820Walk(t *testing.T) {
	d, p := machine(t, "split")
	fw := NewE820(d)
	var token uint32
	for i, want := range p.Ranges {
		var got models.RangeDescriptor
		next, status, err := fw.QueryRange(&got, token)
		if err != nil {
			t.Fatal(err)
		}
		if status != models.Filled {
			t.Fatalf("entry %d: %s", i, status)
		}
		if got != want {
			t.Fatalf("entry %d: got %s, want %s", i, got, want)
		}
		token = next
	}
	if token != 0 {
		t.Fatalf("final token %#x, want 0", token)
	}
}

func TestE820Registers(t *testing.T) {
	seen := map[int]uint64{}
	calls := 0
	snapshot := func(c cpu.Cpu, intno uint32) {
		calls++
		for _, r := range []int{x86_16.EAX, x86_16.EBX, x86_16.ECX, x86_16.EDX, x86_16.ES, x86_16.EDI, x86_16.EFLAGS} {
			seen[r], _ = c.RegRead(r)
		}
	}
	d, _ := machine(t, "qemu", snapshot)
	d.RegWrite(x86_16.EFLAGS, x86_16.FLAG_CF|x86_16.FLAG_IF)

	fw := &E820{Cpu: d, Buffer: 0x7e00}
	var got models.RangeDescriptor
	if _, _, err := fw.QueryRange(&got, 5); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("%d interrupts, want exactly 1", calls)
	}
	want := map[int]uint64{
		x86_16.EAX: 0xE820, x86_16.EBX: 5, x86_16.ECX: 24, x86_16.EDX: models.SMAP,
		x86_16.ES: 0x7e0, x86_16.EDI: 0, x86_16.EFLAGS: x86_16.FLAG_IF,
	}
	for r, v := range want {
		if seen[r] != v {
			t.Errorf("%s = %#x, want %#x", x86_16.Arch.RegName(r), seen[r], v)
		}
	}
}

func TestE820Unsupported(t *testing.T) {
	d, _ := machine(t, "legacy")
	fw := NewE820(d)
	dst := models.RangeDescriptor{Base: 1, Length: 2, Type: 3}
	_, status, err := fw.QueryRange(&dst, 0)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.Unsupported {
		t.Fatalf("status %s, want unsupported", status)
	}
	if dst != (models.RangeDescriptor{Base: 1, Length: 2, Type: 3}) {
		t.Fatalf("destination modified: %s", dst)
	}
}

func TestE820ShortEntry(t *testing.T) {
	d, p := machine(t, "short")
	fw := NewE820(d)
	// leftovers from an earlier call must not leak into the attributes
	d.MemWrite(ScratchAddr+20, []byte{1, 2, 3, 4})
	var got models.RangeDescriptor
	if _, _, err := fw.QueryRange(&got, 0); err != nil {
		t.Fatal(err)
	}
	if got != p.Ranges[0] || got.Attributes != 0 {
		t.Fatalf("got %s attrs %#x, want %s", got, got.Attributes, p.Ranges[0])
	}
}

func TestE820NoHandler(t *testing.T) {
	d, err := bios.NewDirect()
	if err != nil {
		t.Fatal(err)
	}
	var dst models.RangeDescriptor
	if _, _, err := NewE820(d).QueryRange(&dst, 0); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestE820BufferRange(t *testing.T) {
	d, _ := machine(t, "qemu")
	fw := &E820{Cpu: d, Buffer: 0x100000}
	var dst models.RangeDescriptor
	if _, _, err := fw.QueryRange(&dst, 0); err == nil {
		t.Fatal("expected error for buffer above 1MiB")
	}
}

func TestE820Writes(t *testing.T) {
	d, _ := machine(t, "qemu")
	var writes []string
	watch := func(_ cpu.Cpu, access int, addr uint64, size int, _ int64) {
		writes = append(writes, fmt.Sprintf("%#x(%d)", addr, size))
	}
	if _, err := d.HookAdd(cpu.HOOK_MEM_WRITE, watch, 1, 0); err != nil {
		t.Fatal(err)
	}
	var got models.RangeDescriptor
	if _, _, err := NewE820(d).QueryRange(&got, 0); err != nil {
		t.Fatal(err)
	}
	// the buffer clear, then the entry itself
	if strings.Join(writes, " ") != "0x500(24) 0x500(24)" {
		t.Fatalf("writes %v", writes)
	}
}

func TestE820Strict(t *testing.T) {
	d, p := machine(t, "split")
	fw := NewE820(d)
	fw.Strict = true
	var got models.RangeDescriptor
	if _, _, err := fw.QueryRange(&got, 0); err != nil {
		t.Fatal(err)
	}
	if got != p.Ranges[0] {
		t.Fatalf("got %s, want %s", got, p.Ranges[0])
	}
	// firmware that scribbles on the caller's stack
	scribble := func(c cpu.Cpu, intno uint32) {
		c.MemWrite(0x7bfe, []byte{0xff, 0xff})
	}
	if _, err := d.HookAdd(cpu.HOOK_INTR, scribble, 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := fw.QueryRange(&got, 1); err == nil || !strings.Contains(err.Error(), "0x7bfe(2)") {
		t.Fatalf("got %v, want a stray write error", err)
	}
	fw.Strict = false
	if _, status, err := fw.QueryRange(&got, 1); err != nil || status != models.Filled {
		t.Fatalf("lenient query: %s %v", status, err)
	}
}

func TestE820Last(t *testing.T) {
	d, _ := machine(t, "short")
	fw := NewE820(d)
	if fw.Last != nil {
		t.Fatal("registers recorded before any call")
	}
	var got models.RangeDescriptor
	if _, _, err := fw.QueryRange(&got, 0); err != nil {
		t.Fatal(err)
	}
	c := fw.Last
	if c.In.EAX != 0xE820 || c.Out.EAX != models.SMAP || c.Out.ECX != 20 || c.Out.CF {
		t.Fatalf("call %+v", *c)
	}
	if c.Verdict() != "short entry" {
		t.Fatalf("verdict %q", c.Verdict())
	}
	out := c.String(false)
	for _, want := range []string{" in  eax=0000e820", "+eax=534d4150", "+ecx=00000014", " edx=534d4150", " es:di=0000:0500", "(short entry)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}
