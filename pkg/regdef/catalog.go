// Package regdef loads textual register definition files into an immutable
// in-memory catalog of registers, fields and field sets.
package regdef

// FieldDescriptor names a contiguous bit range within a register value.
// Invariant: StartBit <= 31 and 1 <= BitCount <= 32-StartBit.
type FieldDescriptor struct {
	Name     string
	StartBit uint
	BitCount uint
}

// EndBit returns the highest bit number covered by the field.
func (f FieldDescriptor) EndBit() uint {
	return f.StartBit + f.BitCount - 1
}

// FieldRef indexes a FieldDescriptor in the catalog's field arena.
type FieldRef int

// Register is one catalog entry: a named, fixed-width location in the
// physical address space together with the fields declared for it. Fields
// are stored as arena indices in file declaration order.
type Register struct {
	Name    string
	Address uint64
	Width   uint // access size in bytes: 1, 2 or 4
	Fields  []FieldRef
}

// Catalog holds the result of loading a definition file. It is immutable
// once the loader returns it. Field descriptors live in a flat arena and
// registers refer to them by index, so a field set included by several
// registers shares descriptors without sharing any mutable state.
type Catalog struct {
	Registers []Register

	fields []FieldDescriptor
}

// Field resolves a field reference to its descriptor.
func (c *Catalog) Field(ref FieldRef) FieldDescriptor {
	return c.fields[ref]
}

// FieldsOf returns copies of a register's field descriptors in declaration
// order. The returned slice is owned by the caller.
func (c *Catalog) FieldsOf(r Register) []FieldDescriptor {
	if len(r.Fields) == 0 {
		return nil
	}
	out := make([]FieldDescriptor, len(r.Fields))
	for i, ref := range r.Fields {
		out[i] = c.fields[ref]
	}
	return out
}

// FindAddress returns the first register declared at the given address.
func (c *Catalog) FindAddress(addr uint64) (Register, bool) {
	for _, r := range c.Registers {
		if r.Address == addr {
			return r, true
		}
	}
	return Register{}, false
}

func (c *Catalog) addField(f FieldDescriptor) FieldRef {
	c.fields = append(c.fields, f)
	return FieldRef(len(c.fields) - 1)
}
