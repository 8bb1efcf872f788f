package bios

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/models"
)

// Platform is the memory layout an emulated BIOS reports, in reporting order.
type Platform struct {
	Name   string
	Ranges []models.RangeDescriptor

	// the BIOS predates E820 and fails every call
	NoE820 bool
	// the BIOS predates ACPI 3.0 and writes 20-byte entries
	ShortEntries bool
}

func ram(base, length uint64, t models.RangeType) models.RangeDescriptor {
	return models.RangeDescriptor{Base: base, Length: length, Type: t}
}

// huge reports more alternating ranges than the table can hold
func huge() []models.RangeDescriptor {
	ret := make([]models.RangeDescriptor, 0, 200)
	for i := uint64(0); i < 200; i++ {
		t := models.RangeUsable
		if i%2 == 1 {
			t = models.RangeReserved
		}
		ret = append(ret, ram(0x100000+i*0x1000, 0x1000, t))
	}
	return ret
}

var profiles = map[string]func() *Platform{
	"qemu": func() *Platform {
		return &Platform{Ranges: []models.RangeDescriptor{
			ram(0x0, 0x9fc00, models.RangeUsable),
			ram(0x9fc00, 0x400, models.RangeReserved),
			ram(0xf0000, 0x10000, models.RangeReserved),
			ram(0x100000, 0x7ee0000, models.RangeUsable),
			ram(0x7fe0000, 0x20000, models.RangeReserved),
			ram(0xfeffc000, 0x4000, models.RangeReserved),
			ram(0xfffc0000, 0x40000, models.RangeReserved),
		}}
	},
	"split": func() *Platform {
		return &Platform{Ranges: []models.RangeDescriptor{
			ram(0x0, 0x9fc00, models.RangeUsable),
			ram(0x9fc00, 0x400, models.RangeReserved),
			ram(0x100000, 0x100000, models.RangeUsable),
			ram(0x200000, 0x300000, models.RangeUsable),
			ram(0x500000, 0xb00000, models.RangeUsable),
			ram(0xbfee0000, 0x10000, models.RangeAcpiReclaimable),
			ram(0xbfef0000, 0x10000, models.RangeAcpiNVS),
			// the low half of the end carries into the high half
			ram(0xfffff000, 0x1000, models.RangeUsable),
			ram(0x100000000, 0x80000000, models.RangeUsable),
			ram(0x180000000, 0x80000000, models.RangeUsable),
		}}
	},
	"zero": func() *Platform {
		return &Platform{Ranges: []models.RangeDescriptor{
			ram(0x0, 0x9fc00, models.RangeUsable),
			ram(0x9fc00, 0x400, models.RangeReserved),
			ram(0x100000, 0x0, models.RangeUsable),
			ram(0x100000, 0xef0000, models.RangeUsable),
		}}
	},
	"legacy": func() *Platform {
		return &Platform{NoE820: true}
	},
	"short": func() *Platform {
		return &Platform{ShortEntries: true, Ranges: []models.RangeDescriptor{
			ram(0x0, 0xa0000, models.RangeUsable),
			ram(0x100000, 0x3f00000, models.RangeUsable),
		}}
	},
	"reserved": func() *Platform {
		return &Platform{Ranges: []models.RangeDescriptor{
			ram(0x0, 0x100000, models.RangeReserved),
		}}
	},
	"huge": func() *Platform {
		return &Platform{Ranges: huge()}
	},
}

func Profiles() []string {
	ret := make([]string, 0, len(profiles))
	for name := range profiles {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func Profile(name string) (*Platform, error) {
	fn, ok := profiles[name]
	if !ok {
		return nil, errors.Errorf("unknown platform profile %q (have %s)", name, strings.Join(Profiles(), ", "))
	}
	p := fn()
	p.Name = name
	return p, nil
}

var typeNames = map[string]models.RangeType{
	"usable":     models.RangeUsable,
	"ram":        models.RangeUsable,
	"reserved":   models.RangeReserved,
	"acpi":       models.RangeAcpiReclaimable,
	"nvs":        models.RangeAcpiNVS,
	"bad":        models.RangeBad,
	"disabled":   models.RangeDisabled,
	"persistent": models.RangePersistent,
}

// ParseRange parses base:length:type, where numbers take any Go integer
// prefix and type is a number or a name such as usable or reserved.
func ParseRange(s string) (models.RangeDescriptor, error) {
	var d models.RangeDescriptor
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return d, errors.Errorf("range %q: expected base:length:type", s)
	}
	var err error
	if d.Base, err = strconv.ParseUint(parts[0], 0, 64); err != nil {
		return d, errors.Wrapf(err, "range %q: bad base", s)
	}
	if d.Length, err = strconv.ParseUint(parts[1], 0, 64); err != nil {
		return d, errors.Wrapf(err, "range %q: bad length", s)
	}
	if t, ok := typeNames[strings.ToLower(parts[2])]; ok {
		d.Type = t
	} else if n, err := strconv.ParseUint(parts[2], 0, 32); err == nil {
		d.Type = models.RangeType(n)
	} else {
		return d, errors.Errorf("range %q: bad type %q", s, parts[2])
	}
	return d, nil
}
