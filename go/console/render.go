package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/mgutz/ansi"
)

// VGA palette index -> ansi color. Indexes 8-15 are the bright variants.
var vgaColors = []string{"black", "blue", "green", "cyan", "red", "magenta", "yellow", "white"}

func attrCode(attr uint8) string {
	fg := vgaColors[attr&7]
	if attr&8 != 0 {
		fg += "+h"
	}
	bg := vgaColors[attr>>4&7]
	return ansi.ColorCode(fg + ":" + bg)
}

func (t *Terminal) row(y int) ([]byte, []uint8, error) {
	chars := make([]byte, 0, t.Width)
	attrs := make([]uint8, 0, t.Width)
	for x := 0; x < t.Width; x++ {
		ch, attr, err := t.Cell(x, y)
		if err != nil {
			return nil, nil, err
		}
		if ch == 0 {
			ch = ' '
		}
		chars = append(chars, ch)
		attrs = append(attrs, attr)
	}
	return chars, attrs, nil
}

// Render writes the framebuffer to w as text, with trailing blank rows and
// columns trimmed. With color set, cell attributes become ansi escapes.
func Render(w io.Writer, t *Terminal, color bool) error {
	var rows []string
	for y := 0; y < t.Height; y++ {
		chars, attrs, err := t.row(y)
		if err != nil {
			return err
		}
		n := len(strings.TrimRight(string(chars), " "))
		if !color || n == 0 {
			rows = append(rows, string(chars[:n]))
			continue
		}
		var line strings.Builder
		for x := 0; x < n; x++ {
			if x == 0 || attrs[x] != attrs[x-1] {
				line.WriteString(attrCode(attrs[x]))
			}
			line.WriteByte(chars[x])
		}
		line.WriteString(ansi.Reset)
		rows = append(rows, line.String())
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	return nil
}
