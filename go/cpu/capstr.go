package cpu

import (
	"fmt"
	"strings"

	cs "github.com/lunixbochs/capstr"
	"github.com/pkg/errors"
)

type Capstr struct {
	Arch, Mode int

	cs *cs.Engine
}

func (c *Capstr) Open() (err error) {
	engine, err := cs.New(c.Arch, c.Mode)
	if err == nil {
		c.cs = engine
	}
	return errors.Wrap(err, "cs.New() failed")
}

func (c *Capstr) Dis(mem []byte, addr uint64) ([]cs.Ins, error) {
	if c.cs == nil {
		if err := c.Open(); err != nil {
			return nil, err
		}
	}
	dis, err := c.cs.Dis(mem, addr, 0)
	return dis, errors.Wrap(err, "capstone disassembly failed")
}

// Disas renders mem as one "addr: bytes mnemonic operands" line per instruction.
func (c *Capstr) Disas(mem []byte, addr uint64) (string, error) {
	dis, err := c.Dis(mem, addr)
	if err != nil {
		return "", err
	}
	var out []string
	for _, ins := range dis {
		out = append(out, fmt.Sprintf("0x%x: %-8x %s %s", ins.Addr(), ins.Bytes(), ins.Mnemonic(), ins.OpStr()))
	}
	return strings.Join(out, "\n"), nil
}

func (c *Capstr) Close() error {
	if c.cs == nil {
		return nil
	}
	return c.cs.Close()
}
