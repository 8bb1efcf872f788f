package main

import (
	"os"

	"github.com/ribeira-boot/memprobe/go/bios"
	"github.com/ribeira-boot/memprobe/go/bios/emu"
	"github.com/ribeira-boot/memprobe/go/cmd"
)

func main() {
	c := cmd.NewProbeCmd()
	direct := c.MakeMachine
	c.MakeMachine = func(p *bios.Platform, useEmu bool) (cmd.Machine, error) {
		if !useEmu {
			return direct(p, false)
		}
		e, _, err := emu.NewService(p)
		if err != nil {
			return nil, err
		}
		if c.Config.TraceRegs {
			if dis, err := e.Disas(bios.INT_SYSTEM); err == nil {
				c.Config.Logf("trampoline:\n%s", dis)
			}
		}
		return e, nil
	}
	os.Exit(c.Run(os.Args))
}
