package console

import (
	"fmt"
	"strings"

	"github.com/ribeira-boot/memprobe/go/models"
)

// Halter stops the machine once a fatal error has been shown.
type Halter interface {
	Halt(code int)
}

type HaltFunc func(code int)

func (f HaltFunc) Halt(code int) { f(code) }

// Reporter shows fatal boot errors on the terminal.
type Reporter struct {
	Term   *Terminal
	Halter Halter
}

// Fatal prints the reason for err's error code and halts.
// It returns the error that was reported, for callers whose Halter returns.
func (r *Reporter) Fatal(err error) *models.BootError {
	be := models.AsBootError(err)
	if be == nil {
		be = &models.BootError{Code: models.CodeNone, Reason: "no error"}
	}
	t := r.Term
	// write errors are ignored, there is nowhere else to report them
	t.Println("", ColorNormal)
	t.Println(fmt.Sprintf("A fatal error (code %d) occurred while booting.", be.Code), ColorError)
	for _, line := range strings.Split(models.Reason(be.Code), "\n") {
		t.Println(line, ColorNormal)
	}
	if be.Code == models.CodeUnexpected && be.Reason != "" {
		t.Println(be.Reason, ColorInfo)
	}
	if r.Halter != nil {
		r.Halter.Halt(be.Code)
	}
	return be
}
