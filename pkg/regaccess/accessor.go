// Package regaccess displays and mutates resolved registers through a
// physical memory window.
package regaccess

import (
	"errors"
	"fmt"
	"io"

	"github.com/boundarydevices/devregs/pkg/bitfield"
	"github.com/boundarydevices/devregs/pkg/regspec"
)

// Memory is the width-typed access surface the accessor reads and writes
// through. *physmem.Window implements it; tests substitute an in-memory
// fake.
type Memory interface {
	Read(addr uint64, width uint) (uint32, error)
	Write(addr uint64, width uint, value uint32) error
}

// Write-safety violations. No memory access happens when these are returned.
var (
	ErrMultipleFields = errors.New("regaccess: more than one field matched, not writing")
	ErrValueRange     = errors.New("regaccess: value exceeds field range")
)

// Accessor orchestrates register display and read-modify-write over a
// Memory.
type Accessor struct {
	mem   Memory
	out   io.Writer
	color bool
}

// New creates an accessor writing human-readable output to out. With color
// enabled, field breakdowns are ANSI-highlighted including a per-bit
// rendering of each field value.
func New(mem Memory, out io.Writer, color bool) *Accessor {
	return &Accessor{mem: mem, out: out, color: color}
}

// Show reads the register once and prints its raw value followed by every
// attached field.
func (a *Accessor) Show(inst regspec.Instance) error {
	raw, err := a.mem.Read(inst.Address, inst.Width)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s:0x%08x\t=0x%0*x\n", inst.Name, inst.Address, inst.Width*2, raw)

	for _, f := range inst.Fields {
		v := bitfield.Extract(raw, f.StartBit, f.BitCount)
		valueColor := ""
		if v != 0 {
			valueColor = colYellow
		}
		fmt.Fprintf(a.out, "\t%s%-16s%s\t%s%2d-%2d%s\t=%s0x%x%s",
			a.col(colCyan), f.Name, a.col(colReset),
			a.col(colBlue), f.StartBit, f.EndBit(), a.col(colReset),
			a.col(valueColor), v, a.col(colReset))
		if a.color {
			fmt.Fprint(a.out, "\t")
			for bit := int(f.BitCount) - 1; bit >= 0; bit-- {
				if v>>uint(bit)&1 != 0 {
					fmt.Fprint(a.out, colGreen+"1"+colReset)
				} else {
					fmt.Fprint(a.out, colRed+"0"+colReset)
				}
			}
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

// Write performs a read-modify-write of the instance's single field, or of
// the whole register when no field is attached. It refuses multi-field
// targets and out-of-range values before touching memory, so either the one
// read-modify-write completes or nothing is written.
func (a *Accessor) Write(inst regspec.Instance, value uint32) error {
	if len(inst.Fields) > 1 {
		return fmt.Errorf("%w: %s", ErrMultipleFields, inst.Name)
	}
	start, count := uint(0), inst.Width*8
	if len(inst.Fields) == 1 {
		start, count = inst.Fields[0].StartBit, inst.Fields[0].BitCount
	}
	if max := bitfield.Max(count); value > max {
		return fmt.Errorf("%w: 0x%x exceeds max 0x%x for %s", ErrValueRange, value, max, inst.Name)
	}

	raw, err := a.mem.Read(inst.Address, inst.Width)
	if err != nil {
		return err
	}
	updated := bitfield.Inject(raw, start, count, value)
	fmt.Fprintf(a.out, "%s:0x%08x == 0x%0*x...", inst.Name, inst.Address, inst.Width*2, raw)
	if err := a.mem.Write(inst.Address, inst.Width, updated); err != nil {
		fmt.Fprintln(a.out)
		return err
	}
	fmt.Fprintf(a.out, "0x%0*x\n", inst.Width*2, updated)
	return nil
}

const (
	colRed    = "\x1b[0;31m"
	colGreen  = "\x1b[1;32m"
	colBlue   = "\x1b[1;34m"
	colYellow = "\x1b[1;33m"
	colCyan   = "\x1b[0;36m"
	colReset  = "\x1b[1;0m"
)

func (a *Accessor) col(code string) string {
	if !a.color {
		return ""
	}
	return code
}
