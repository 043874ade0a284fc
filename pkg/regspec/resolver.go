// Package regspec resolves user-typed register specifications against a
// loaded catalog.
//
// A specification selects registers either by name ("UART1", case-insensitive
// prefix match, optionally narrowed with ".field" or ":bits") or by
// hexadecimal address ("0x20e4000", optionally with ":bits" or a ".b/.w/.l"
// width suffix).
package regspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/boundarydevices/devregs/pkg/bitfield"
	"github.com/boundarydevices/devregs/pkg/regdef"
)

// Instance is a resolved, per-request view of a register: the address and
// width to access, plus the fields relevant to the current operation. Field
// descriptors are fresh copies, never shared with the catalog or other
// instances.
type Instance struct {
	Name    string // empty for ad hoc address-only targets
	Address uint64
	Width   uint
	Fields  []regdef.FieldDescriptor
}

// Resolve matches spec against the catalog and returns every register it
// selects, in catalog order. An empty result with a nil error means nothing
// matched. More than one result marks an inherently ambiguous target: the
// caller must not perform a write against any of them.
func Resolve(cat *regdef.Catalog, spec string) ([]Instance, error) {
	if spec == "" {
		return nil, fmt.Errorf("regspec: empty register spec")
	}
	c := spec[0]
	switch {
	case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		return resolveName(cat, spec)
	case c >= '0' && c <= '9':
		return resolveAddress(cat, spec)
	}
	return nil, fmt.Errorf("regspec: invalid register spec %q: use a name or 0xHEX address", spec)
}

// All returns one instance per catalog register, each carrying its complete
// field list. Used for full-catalog enumeration.
func All(cat *regdef.Catalog) []Instance {
	out := make([]Instance, 0, len(cat.Registers))
	for _, reg := range cat.Registers {
		out = append(out, Instance{
			Name:    reg.Name,
			Address: reg.Address,
			Width:   reg.Width,
			Fields:  cat.FieldsOf(reg),
		})
	}
	return out
}

// ParseValue parses a register or field value. Values are always
// hexadecimal; the 0x prefix is optional by long-standing convention.
func ParseValue(s string) (uint32, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if t == "" {
		return 0, fmt.Errorf("regspec: invalid value %q: use hex", s)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("regspec: invalid value %q: use hex", s)
	}
	return uint32(v), nil
}

// resolveName handles name-mode specs: a register-name part, optionally
// followed by ".field" or ":bits". The name part matches case-insensitively
// as a prefix against every catalog register; the comparison length comes
// from the name part alone, not the full spec.
func resolveName(cat *regdef.Catalog, spec string) ([]Instance, error) {
	namePart := spec
	fieldPart := ""
	hasSelector := false
	// The field selector is the first ".", falling back to ":" only when no
	// "." is present.
	i := strings.Index(spec, ".")
	if i < 0 {
		i = strings.Index(spec, ":")
	}
	if i >= 0 {
		namePart, fieldPart = spec[:i], spec[i+1:]
		hasSelector = true
	}

	var adHoc *regdef.FieldDescriptor
	if fieldPart != "" && fieldPart[0] >= '0' && fieldPart[0] <= '9' {
		start, count, err := bitfield.ParseRange(fieldPart)
		if err != nil {
			return nil, fmt.Errorf("regspec: %w", err)
		}
		adHoc = &regdef.FieldDescriptor{Name: fieldPart, StartBit: start, BitCount: count}
	}

	var out []Instance
	for _, reg := range cat.Registers {
		if !hasFoldPrefix(reg.Name, namePart) {
			continue
		}
		inst := Instance{
			Name:    reg.Name,
			Address: reg.Address,
			Width:   reg.Width,
		}
		switch {
		case adHoc != nil:
			inst.Fields = []regdef.FieldDescriptor{*adHoc}
		case hasSelector:
			for _, f := range cat.FieldsOf(reg) {
				if strings.EqualFold(f.Name, fieldPart) {
					inst.Fields = append(inst.Fields, f)
				}
			}
		default:
			inst.Fields = cat.FieldsOf(reg)
		}
		out = append(out, inst)
	}
	return out, nil
}

// resolveAddress handles address-mode specs: a hexadecimal address followed
// by an optional ":bits" ad hoc field or ".b/.w/.l" width suffix. The
// catalog provides name, width and nothing else; an unknown address yields
// an anonymous instance.
func resolveAddress(cat *regdef.Catalog, spec string) ([]Instance, error) {
	addrPart := spec
	rest := ""
	if i := strings.IndexAny(spec, ".:"); i >= 0 {
		addrPart, rest = spec[:i], spec[i:]
	}

	t := strings.TrimPrefix(strings.TrimPrefix(addrPart, "0x"), "0X")
	addr, err := strconv.ParseUint(t, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("regspec: invalid register spec %q: use a name or 0xHEX address", spec)
	}

	var fields []regdef.FieldDescriptor
	width := uint(0)
	switch {
	case strings.HasPrefix(rest, ":"):
		bits := rest[1:]
		start, count, err := bitfield.ParseRange(bits)
		if err != nil {
			return nil, fmt.Errorf("regspec: %w", err)
		}
		fields = []regdef.FieldDescriptor{{Name: bits, StartBit: start, BitCount: count}}
	case strings.HasPrefix(rest, "."):
		width, err = parseWidthChar(rest[1:])
		if err != nil {
			return nil, err
		}
	}

	inst := Instance{Address: addr, Width: 4, Fields: fields}
	if reg, ok := cat.FindAddress(addr); ok {
		inst.Name = reg.Name
		inst.Width = reg.Width
	}
	if width != 0 {
		inst.Width = width
	}
	return []Instance{inst}, nil
}

func parseWidthChar(s string) (uint, error) {
	switch strings.ToLower(s) {
	case "b":
		return 1, nil
	case "w":
		return 2, nil
	case "l":
		return 4, nil
	}
	return 0, fmt.Errorf("regspec: invalid width suffix %q: use .b, .w or .l", s)
}

// hasFoldPrefix reports whether name starts with prefix, ignoring case.
func hasFoldPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix)
}
