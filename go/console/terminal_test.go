package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ribeira-boot/memprobe/go/bios"
	"github.com/ribeira-boot/memprobe/go/models"
)

func newTerm(t *testing.T) *Terminal {
	d, err := bios.NewDirect()
	if err != nil {
		t.Fatal(err)
	}
	term := NewTerminal(d)
	if err := term.Clear(); err != nil {
		t.Fatal(err)
	}
	return term
}

func screen(t *testing.T, term *Terminal) string {
	var buf bytes.Buffer
	if err := Render(&buf, term, false); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestPutchar(t *testing.T) {
	term := newTerm(t)
	term.Print("ab", 0x0F)
	ch, attr, err := term.Cell(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ch != 'b' || attr != 0x0F {
		t.Fatalf("cell %q %#x", ch, attr)
	}
	if term.X != 2 || term.Y != 0 {
		t.Fatalf("cursor %d,%d", term.X, term.Y)
	}
}

func TestControlChars(t *testing.T) {
	term := newTerm(t)
	term.Print("abc\x00\n", 0x0F)
	if term.X != 3 || term.Y != 1 {
		t.Fatalf("newline moved cursor to %d,%d", term.X, term.Y)
	}
	term.Print("\rx\tyz", 0x0F)
	if got := screen(t, term); got != "abc\nx yz\n" {
		t.Fatalf("screen %q", got)
	}
	term.Print("\b\b", 0x0F)
	if term.X != 2 {
		t.Fatalf("backspace left cursor at %d", term.X)
	}
	if got := screen(t, term); got != "abc\nx y\n" {
		t.Fatalf("screen %q", got)
	}
	// backspace at column 0 steps to the end of the previous row
	term.X = 0
	term.Putchar('\b', 0x0F)
	if term.X != Width-1 || term.Y != 0 {
		t.Fatalf("cursor %d,%d", term.X, term.Y)
	}
	term.X, term.Y = 0, 0
	term.Putchar('\b', 0x0F)
	if term.X != 0 || term.Y != 0 {
		t.Fatalf("backspace at origin moved to %d,%d", term.X, term.Y)
	}
}

func TestWrap(t *testing.T) {
	term := newTerm(t)
	term.Print(strings.Repeat("a", Width)+"b", 0x0F)
	if term.X != 1 || term.Y != 1 {
		t.Fatalf("cursor %d,%d", term.X, term.Y)
	}
	term.X = Width - 1
	term.Putchar('\t', 0x0F)
	if term.X != 0 || term.Y != 2 {
		t.Fatalf("tab did not wrap: %d,%d", term.X, term.Y)
	}
}

func TestScroll(t *testing.T) {
	term := newTerm(t)
	for i := 0; i < Height; i++ {
		term.Println(string(rune('A'+i)), 0x0F)
	}
	if term.Y != Height-1 || term.X != 0 {
		t.Fatalf("cursor %d,%d", term.X, term.Y)
	}
	lines := strings.Split(strings.TrimRight(screen(t, term), "\n"), "\n")
	if len(lines) != Height-1 || lines[0] != "B" || lines[len(lines)-1] != "Y" {
		t.Fatalf("screen after scroll:\n%s", strings.Join(lines, "\n"))
	}
	_, attr, _ := term.Cell(0, Height-1)
	ch, _, _ := term.Cell(0, Height-1)
	if ch != ' ' || attr != 0 {
		t.Fatalf("last row not blanked: %q %#x", ch, attr)
	}
}

func TestRenderColor(t *testing.T) {
	term := newTerm(t)
	term.Print("ok", ColorNormal)
	term.Print("!", ColorError)
	var buf bytes.Buffer
	if err := Render(&buf, term, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "\x1b[") < 3 || !strings.Contains(out, "ok") {
		t.Fatalf("render %q", out)
	}
}

type halt struct{ code int }

func (h *halt) Halt(code int) { h.code = code }

func TestFatal(t *testing.T) {
	term := newTerm(t)
	h := &halt{code: -1}
	r := &Reporter{Term: term, Halter: h}
	be := r.Fatal(models.ErrEnumerationUnsupported)
	if be.Code != models.CodeEnumeration || h.code != models.CodeEnumeration {
		t.Fatalf("reported %d, halted %d", be.Code, h.code)
	}
	out := screen(t, term)
	if !strings.Contains(out, "code 2") || !strings.Contains(out, "int 15h, eax e820h") {
		t.Fatalf("screen:\n%s", out)
	}
}

func TestFatalUnexpected(t *testing.T) {
	term := newTerm(t)
	var code int
	r := &Reporter{Term: term, Halter: HaltFunc(func(c int) { code = c })}
	r.Fatal(bytes.ErrTooLarge)
	if code != models.CodeUnexpected {
		t.Fatalf("halted with %d", code)
	}
	if !strings.Contains(screen(t, term), bytes.ErrTooLarge.Error()) {
		t.Fatal("cause not shown")
	}
}
