// Package boot runs the memory discovery stage of the bootloader.
package boot

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/console"
	"github.com/ribeira-boot/memprobe/go/infotable"
	"github.com/ribeira-boot/memprobe/go/memmap"
	"github.com/ribeira-boot/memprobe/go/models"
)

// Stage owns the map, the terminal and the firmware of one discovery run.
type Stage struct {
	Config   *models.Config
	Mem      models.Memory
	Term     *console.Terminal
	Firmware models.Firmware
	Halter   console.Halter

	Map    models.MemoryMap
	Result memmap.Result
}

func NewStage(mem models.Memory, fw models.Firmware, config *models.Config) *Stage {
	return &Stage{
		Config:   config.Init(),
		Mem:      mem,
		Term:     console.NewTerminal(mem),
		Firmware: fw,
	}
}

// Run clears the info table and terminal, discovers the memory map and
// publishes it. A fatal discovery error is shown on the terminal and the
// Halter is called before it is returned.
func (s *Stage) Run() error {
	c := s.Config
	if err := models.Zero(s.Mem, c.TableAddr, infotable.Budget); err != nil {
		return errors.Wrap(err, "failed to reset info table")
	}
	if err := s.Term.Clear(); err != nil {
		return err
	}

	res, err := memmap.Discover(&s.Map, s.Firmware)
	s.Result = res
	c.Logf("discover: filled=%d pruned=%d merged=%d exhausted=%v", res.Filled, res.Pruned, res.Merged, res.Exhausted)
	if err != nil {
		(&console.Reporter{Term: s.Term, Halter: s.Halter}).Fatal(err)
		return err
	}
	if err := s.summary(); err != nil {
		return err
	}
	if err := infotable.Publish(s.Mem, c.TableAddr, &s.Map); err != nil {
		return err
	}
	c.Logf("published %d entries at %#x", s.Map.Count, c.TableAddr)
	return nil
}

func (s *Stage) summary() error {
	t := s.Term
	head := fmt.Sprintf("Memory map: %d entries, %d KiB usable", s.Map.Count, s.Map.Usable()/1024)
	if err := t.Println(head, console.ColorNormal); err != nil {
		return err
	}
	for i, e := range s.Map.Live() {
		if err := t.Println(fmt.Sprintf("  [%3d] %s", i, e), console.ColorInfo); err != nil {
			return err
		}
	}
	// last, so it is still on screen after a long listing
	if s.Result.Exhausted {
		warn := fmt.Sprintf("Warning: firmware reported more than %d ranges", models.MapCapacity)
		if err := t.Println(warn, console.ColorError); err != nil {
			return err
		}
	}
	return nil
}
