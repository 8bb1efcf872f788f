// Package console drives the VGA text mode terminal.
package console

import (
	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/models"
)

const (
	Framebuffer = 0xB8000
	Width       = 80
	Height      = 25
	TabSize     = 2
)

// common attributes: background in the high nibble, foreground in the low
const (
	ColorNormal = 0x0F
	ColorError  = 0x0C
	ColorInfo   = 0x0B
)

// Terminal is a text mode framebuffer of 2-byte cells, character then attribute.
// X is the column and Y the row of the cursor.
type Terminal struct {
	Mem     models.Memory
	Base    uint64
	Width   int
	Height  int
	TabSize int

	X, Y int
}

func NewTerminal(mem models.Memory) *Terminal {
	return &Terminal{
		Mem:     mem,
		Base:    Framebuffer,
		Width:   Width,
		Height:  Height,
		TabSize: TabSize,
	}
}

func (t *Terminal) Size() uint64 {
	return uint64(t.Width * t.Height * 2)
}

func (t *Terminal) cell(x, y int) uint64 {
	return t.Base + uint64((y*t.Width+x)*2)
}

// Clear blanks the framebuffer and homes the cursor.
func (t *Terminal) Clear() error {
	t.X, t.Y = 0, 0
	return errors.Wrap(models.Zero(t.Mem, t.Base, t.Size()), "failed to clear terminal")
}

func (t *Terminal) Cell(x, y int) (ch byte, attr uint8, err error) {
	var buf [2]byte
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return 0, 0, errors.Errorf("cell %d,%d out of range", x, y)
	}
	if err := t.Mem.MemReadInto(buf[:], t.cell(x, y)); err != nil {
		return 0, 0, err
	}
	return buf[0], buf[1], nil
}

func (t *Terminal) put(x, y int, ch byte, attr uint8) error {
	return t.Mem.MemWrite(t.cell(x, y), []byte{ch, attr})
}

// scroll moves every row up by one, dropping the first, and blanks the last.
// The cursor is not moved.
func (t *Terminal) scroll() error {
	row := uint64(t.Width * 2)
	rest := make([]byte, row*uint64(t.Height-1))
	if err := t.Mem.MemReadInto(rest, t.Base+row); err != nil {
		return err
	}
	if err := t.Mem.MemWrite(t.Base, rest); err != nil {
		return err
	}
	blank := make([]byte, row)
	for i := 0; i < len(blank); i += 2 {
		blank[i] = ' '
	}
	return t.Mem.MemWrite(t.Base+row*uint64(t.Height-1), blank)
}

// newline moves the cursor down a row, scrolling at the bottom.
func (t *Terminal) newline() error {
	t.Y++
	if t.Y >= t.Height {
		if err := t.scroll(); err != nil {
			return err
		}
		t.Y = t.Height - 1
	}
	return nil
}

// Putchar writes one character. \0 is ignored, \n moves down a row without
// returning the cursor, \r returns to column 0, \b blanks the cursor cell and
// steps back, \t advances to the next tab stop.
func (t *Terminal) Putchar(ch byte, color uint8) error {
	switch ch {
	case 0:
	case '\n':
		return t.newline()
	case '\r':
		t.X = 0
	case '\b':
		if t.X < t.Width {
			if err := t.put(t.X, t.Y, ' ', color); err != nil {
				return err
			}
		}
		if t.X > 0 {
			t.X--
		} else if t.Y > 0 {
			t.Y--
			t.X = t.Width - 1
		}
	case '\t':
		t.X += t.TabSize - t.X%t.TabSize
		if t.X >= t.Width {
			t.X = 0
			return t.newline()
		}
	default:
		if t.X >= t.Width {
			t.X = 0
			if err := t.newline(); err != nil {
				return err
			}
		}
		if err := t.put(t.X, t.Y, ch, color); err != nil {
			return err
		}
		t.X++
	}
	return nil
}

func (t *Terminal) Print(s string, color uint8) error {
	for i := 0; i < len(s); i++ {
		if err := t.Putchar(s[i], color); err != nil {
			return errors.Wrap(err, "terminal write failed")
		}
	}
	return nil
}

// Println prints s and moves to the start of the next row.
func (t *Terminal) Println(s string, color uint8) error {
	return t.Print(s+"\n\r", color)
}
