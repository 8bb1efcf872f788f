package firmware

import (
	"fmt"
	"io"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/ribeira-boot/memprobe/go/models"
)

var (
	colorFilled = ansi.ColorCode("green")
	colorFailed = ansi.ColorCode("red+b")
	colorError  = ansi.ColorCode("yellow+b")
)

// Tracer writes one line per query to Out.
type Tracer struct {
	Firmware models.Firmware
	Out      io.Writer
	Color    bool

	// optional, appended to each line (a register dump, for example)
	Extra func() string

	calls int
}

func (t *Tracer) paint(s, color string) string {
	if !t.Color {
		return s
	}
	return color + s + ansi.Reset
}

func (t *Tracer) QueryRange(dst *models.RangeDescriptor, token uint32) (uint32, models.QueryStatus, error) {
	next, status, err := t.Firmware.QueryRange(dst, token)
	line := fmt.Sprintf("[%3d] e820(token=%#x)", t.calls, token)
	t.calls++
	switch {
	case err != nil:
		line += " = " + t.paint("error", colorError) + ": " + err.Error()
	case status == models.Unsupported:
		line += " = " + t.paint(status.String(), colorFailed)
	default:
		line += fmt.Sprintf(" = %s next=%#x %s", t.paint(status.String(), colorFilled), next, *dst)
	}
	if t.Extra != nil {
		if extra := t.Extra(); extra != "" {
			line += "\n      " + strings.ReplaceAll(extra, "\n", "\n      ")
		}
	}
	fmt.Fprintln(t.Out, line)
	return next, status, err
}
