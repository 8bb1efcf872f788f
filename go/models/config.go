package models

import (
	"fmt"
	"io"
	"os"
)

// InfoTableAddr is where the info table lives unless overridden.
const InfoTableAddr = 0xEA00

type Config struct {
	Color     bool
	TraceRegs bool
	TraceSys  bool
	Verbose   bool

	// physical address of the published info table
	TableAddr uint64

	Output io.Writer
}

func (c *Config) Init() *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.TableAddr == 0 {
		c.TableAddr = InfoTableAddr
	}
	return c
}

// Logf writes a line to Output when Verbose is set.
func (c *Config) Logf(format string, a ...interface{}) {
	if c.Verbose {
		fmt.Fprintf(c.Output, format+"\n", a...)
	}
}
