package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/bios"
	"github.com/ribeira-boot/memprobe/go/boot"
	"github.com/ribeira-boot/memprobe/go/console"
	"github.com/ribeira-boot/memprobe/go/firmware"
	"github.com/ribeira-boot/memprobe/go/handoff"
	"github.com/ribeira-boot/memprobe/go/models"
	"github.com/ribeira-boot/memprobe/go/models/cpu"
)

// where a real-mode loader traditionally builds boot_params
const zeroPageAddr = 0x90000

type strslice []string

func (s *strslice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *strslice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError prints an error, and a stacktrace if available
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Error: %s\n", err)
	var st stackTracer
	if !errors.As(err, &st) {
		return
	}
	// parse full path and method name for each stack frame
	var frames [][]string
	for _, f := range st.StackTrace() {
		fullpath := ""
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)

		frame := fmt.Sprintf("%+s", f)
		tmp := strings.SplitN(frame, "\n", 3)
		if len(tmp) == 2 {
			pathsplit := strings.Split(tmp[0], "/")
			method = pathsplit[len(pathsplit)-1]
			fullpath = strings.TrimSpace(tmp[1])
		}
		frames = append(frames, []string{fullpath, fileline, method})
		if method == "main.main" {
			break
		}
	}
	// calculate column widths
	widths := make([]int, 3)
	for _, f := range frames {
		for i, s := range f {
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}
	// print pretty stacktrace
	for _, f := range frames {
		method := f[2]
		for i := 0; i < 2; i++ {
			if widths[i] > 0 {
				pad := strings.Repeat(" ", widths[i]-len(f[i]))
				fmt.Fprintf(w, "%s%s | ", f[i], pad)
			}
		}
		fmt.Fprintf(w, "%s()\n", method)
	}
}

// Machine is a cpu with a BIOS behind its interrupts.
type Machine interface {
	cpu.Cpu
}

type ProbeCmd struct {
	Config *models.Config

	// MakeMachine builds the machine the probe runs on. emu asks for an
	// instruction-executing backend.
	MakeMachine func(p *bios.Platform, emu bool) (Machine, error)
	SetupFlags  func() error

	Flags  *flag.FlagSet
	Stdout io.Writer
	Stderr io.Writer
}

func NewProbeCmd() *ProbeCmd {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	c := &ProbeCmd{Flags: fs, Stdout: os.Stdout, Stderr: os.Stderr}
	c.MakeMachine = func(p *bios.Platform, emu bool) (Machine, error) {
		if emu {
			return nil, errors.New("this build has no emulator backend")
		}
		d, err := bios.NewDirect()
		if err != nil {
			return nil, err
		}
		if _, err := bios.Install(d, p); err != nil {
			return nil, err
		}
		return d, nil
	}
	return c
}

// platform builds the reported layout from flags
func platform(profile string, ranges []string, short bool) (*bios.Platform, error) {
	p, err := bios.Profile(profile)
	if err != nil {
		return nil, err
	}
	if len(ranges) > 0 {
		p = &bios.Platform{Name: "custom"}
		for _, s := range ranges {
			d, err := bios.ParseRange(s)
			if err != nil {
				return nil, err
			}
			p.Ranges = append(p.Ranges, d)
		}
	}
	if short {
		p.ShortEntries = true
	}
	return p, nil
}

// Run parses argv and probes once. It returns the process exit code.
func (c *ProbeCmd) Run(argv []string) int {
	fs := c.Flags
	fs.SetOutput(c.Stderr)
	// tracing flags
	strace := fs.Bool("strace", false, "trace firmware calls")
	rtrace := fs.Bool("rtrace", false, "trace register modification across firmware calls")
	tnames := []string{"strace", "rtrace", "v", "o"}

	profile := fs.String("profile", "qemu", "platform profile: "+strings.Join(bios.Profiles(), ", "))
	var ranges strslice
	fs.Var(&ranges, "range", "report base:length:type instead of a profile (repeatable)")
	short := fs.Bool("short", false, "firmware writes 20-byte entries")
	useEmu := fs.Bool("emu", false, "execute the firmware call on an emulated cpu")
	color := fs.Bool("color", false, "colorize traces and screen output")
	verbose := fs.Bool("v", false, "verbose output")
	outfile := fs.String("o", "", "redirect debugging output to file (default stderr)")
	table := fs.Uint64("table", models.InfoTableAddr, "info table address")
	strict := fs.Bool("strict", false, "fail a firmware call that writes memory outside its buffer")

	record := fs.String("record", "", "record firmware answers to <file>")
	replay := fs.String("replay", "", "answer firmware calls from a recording")
	zeropage := fs.String("zeropage", "", "write a Linux boot_params page with the e820 table to <file>")
	screen := fs.Bool("screen", false, "print the text mode screen after the stage runs")

	fs.Usage = func() {
		fmt.Fprintf(c.Stderr, "Usage: %s [options]\n\nOptions:\n", argv[0])
		var flags []*flag.Flag
		var tflags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) {
			for _, name := range tnames {
				if name == f.Name {
					tflags = append(tflags, f)
					return
				}
			}
			flags = append(flags, f)
		})
		models.PrintFlags(c.Stderr, flags)
		fmt.Fprintf(c.Stderr, "\nTrace Options:\n")
		models.PrintFlags(c.Stderr, tflags)
		fmt.Fprintf(c.Stderr, "\nExample:\n  %s -profile split -strace -screen\n", argv[0])
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			PrintError(c.Stderr, err)
			return 1
		}
	}
	if err := fs.Parse(argv[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return 1
	}

	config := &models.Config{
		Color:     *color,
		TraceRegs: *rtrace,
		TraceSys:  *strace,
		Verbose:   *verbose,
		TableAddr: *table,
		Output:    c.Stderr,
	}
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			PrintError(c.Stderr, errors.Wrap(err, "failed to open debug output"))
			return 1
		}
		defer out.Close()
		config.Output = out
	}
	c.Config = config.Init()

	p, err := platform(*profile, ranges, *short)
	if err != nil {
		PrintError(c.Stderr, err)
		return 1
	}
	m, err := c.MakeMachine(p, *useEmu)
	if err != nil {
		PrintError(c.Stderr, err)
		return 1
	}
	defer m.Close()
	config.Logf("platform %s: %d ranges, e820=%v", p.Name, len(p.Ranges), !p.NoE820)

	e820 := firmware.NewE820(m)
	e820.Strict = *strict
	var fw models.Firmware = e820
	if *replay != "" {
		f, err := os.Open(*replay)
		if err != nil {
			PrintError(c.Stderr, errors.Wrap(err, "failed to open recording"))
			return 1
		}
		rp, err := firmware.NewReplay(f)
		if err != nil {
			f.Close()
			PrintError(c.Stderr, err)
			return 1
		}
		defer rp.Close()
		config.Logf("replaying %s recorded on %s", *replay, rp.Header.Platform)
		fw = rp
	}
	if *record != "" {
		f, err := os.Create(*record)
		if err != nil {
			PrintError(c.Stderr, errors.Wrap(err, "failed to create recording"))
			return 1
		}
		rec, err := firmware.NewRecorder(f, fw, p.Name)
		if err != nil {
			f.Close()
			PrintError(c.Stderr, err)
			return 1
		}
		defer func() {
			if err := rec.Close(); err != nil {
				PrintError(c.Stderr, err)
			}
		}()
		fw = rec
	}
	if config.TraceSys || config.TraceRegs {
		tr := &firmware.Tracer{Firmware: fw, Out: config.Output, Color: config.Color}
		if config.TraceRegs {
			// replayed answers never reach the machine, so there is nothing to show
			tr.Extra = func() string {
				if *replay != "" || e820.Last == nil {
					return ""
				}
				return e820.Last.String(config.Color)
			}
		}
		fw = tr
	}

	stage := boot.NewStage(m, fw, config)
	code := 0
	stage.Halter = console.HaltFunc(func(n int) { code = n })
	runErr := stage.Run()
	if *screen {
		if err := console.Render(c.Stdout, stage.Term, config.Color); err != nil {
			PrintError(c.Stderr, err)
		}
	}
	if runErr != nil {
		if code == 0 {
			code = models.AsBootError(runErr).Code
		}
		if config.Verbose || code == models.CodeUnexpected {
			PrintError(c.Stderr, runErr)
		} else {
			fmt.Fprintf(c.Stderr, "%s\n", runErr)
		}
		return code
	}
	if !*screen {
		fmt.Fprintln(c.Stdout, stage.Map.String())
	}
	if *zeropage != "" {
		if err := writeZeroPage(m, *zeropage, &stage.Map); err != nil {
			PrintError(c.Stderr, err)
			return 1
		}
		config.Logf("wrote %d e820 entries to %s", stage.Map.Count, *zeropage)
	}
	return 0
}

func writeZeroPage(m Machine, path string, mm *models.MemoryMap) error {
	if err := models.Zero(m, zeroPageAddr, handoff.ZeroPageSize); err != nil {
		return errors.Wrap(err, "failed to clear zero page")
	}
	if err := handoff.WriteZeroPage(m, zeroPageAddr, mm); err != nil {
		return err
	}
	page, err := m.MemRead(zeroPageAddr, handoff.ZeroPageSize)
	if err != nil {
		return errors.Wrap(err, "failed to read zero page")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create zero page file")
	}
	defer f.Close()
	_, err = f.Write(page)
	return errors.Wrap(err, "failed to write zero page file")
}
