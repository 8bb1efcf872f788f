package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

type Reg struct {
	Enum    int
	Name    string
	Default bool
}

type RegVal struct {
	Reg
	Val uint64
}

type regList []Reg

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

type RegReader interface {
	RegRead(reg int) (uint64, error)
}

type Arch struct {
	Name string
	Bits int

	Regs        map[string]int
	DefaultRegs []string

	// sorted for RegDump
	regList regList
}

func (a *Arch) sortedRegs() regList {
	if a.regList == nil {
		defaults := make(map[string]bool, len(a.DefaultRegs))
		for _, name := range a.DefaultRegs {
			defaults[name] = true
		}
		rl := make(regList, 0, len(a.Regs))
		for name, enum := range a.Regs {
			rl = append(rl, Reg{Enum: enum, Name: name, Default: defaults[name]})
		}
		sort.Sort(rl)
		a.regList = rl
	}
	return a.regList
}

// RegName returns the name of enum, or its number if the arch doesn't know it.
func (a *Arch) RegName(enum int) string {
	for _, reg := range a.sortedRegs() {
		if reg.Enum == enum {
			return reg.Name
		}
	}
	return fmt.Sprintf("reg(%d)", enum)
}

func (a *Arch) RegDump(r RegReader) ([]RegVal, error) {
	regs := a.sortedRegs()
	ret := make([]RegVal, len(regs))
	for i, reg := range regs {
		val, err := r.RegRead(reg.Enum)
		if err != nil {
			return nil, err
		}
		ret[i] = RegVal{reg, val}
	}
	return ret, nil
}

// RegString formats the default registers on one line.
func (a *Arch) RegString(r RegReader) (string, error) {
	regs, err := a.RegDump(r)
	if err != nil {
		return "", err
	}
	width := a.Bits / 4
	var out []string
	for _, reg := range regs {
		if reg.Default {
			out = append(out, fmt.Sprintf("%s=%0*x", reg.Name, width, reg.Val))
		}
	}
	return strings.Join(out, " "), nil
}

func (a *Arch) String() string {
	return fmt.Sprintf("<Arch %s>", a.Name)
}
