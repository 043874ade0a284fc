package regdef

import (
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/log"
)

func loadString(t *testing.T, input string) *Catalog {
	t.Helper()

	loader, err := NewLoader(log.NewTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	cat, err := loader.Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	return cat
}

func TestLoadRegisterWithField(t *testing.T) {
	cat := loadString(t, `
FOO 0x1000
:bar:0-3
`)

	if len(cat.Registers) != 1 {
		t.Fatalf("Expected 1 register, got %d", len(cat.Registers))
	}

	reg := cat.Registers[0]
	if reg.Name != "FOO" {
		t.Errorf("Expected register name 'FOO', got '%s'", reg.Name)
	}
	if reg.Address != 0x1000 {
		t.Errorf("Expected address 0x1000, got 0x%x", reg.Address)
	}
	if reg.Width != 4 {
		t.Errorf("Expected default width 4, got %d", reg.Width)
	}

	fields := cat.FieldsOf(reg)
	if len(fields) != 1 {
		t.Fatalf("Expected 1 field, got %d", len(fields))
	}
	if fields[0].Name != "bar" || fields[0].StartBit != 0 || fields[0].BitCount != 4 {
		t.Errorf("Unexpected field %+v", fields[0])
	}
}

func TestLoadWidthSuffix(t *testing.T) {
	cat := loadString(t, `
BYTE_REG 0x1000.b
WORD_REG 0x1002.w
LONG_REG 0x1004.l
`)

	if len(cat.Registers) != 3 {
		t.Fatalf("Expected 3 registers, got %d", len(cat.Registers))
	}
	for i, want := range []uint{1, 2, 4} {
		if cat.Registers[i].Width != want {
			t.Errorf("Register %d: expected width %d, got %d", i, want, cat.Registers[i].Width)
		}
	}
}

func TestLoadBareHexAddress(t *testing.T) {
	cat := loadString(t, `
UART1_URXD 20e4000
UART1_UTXD deadbeef
`)

	if len(cat.Registers) != 2 {
		t.Fatalf("Expected 2 registers, got %d", len(cat.Registers))
	}
	if cat.Registers[0].Address != 0x20e4000 {
		t.Errorf("Expected address 0x20e4000, got 0x%x", cat.Registers[0].Address)
	}
	if cat.Registers[1].Address != 0xdeadbeef {
		t.Errorf("Expected address 0xdeadbeef, got 0x%x", cat.Registers[1].Address)
	}
}

func TestLoadFieldOrderMatchesFile(t *testing.T) {
	cat := loadString(t, `
CTRL 0x2000
:enable:0
:mode:1-2
:irq:3
`)

	fields := cat.FieldsOf(cat.Registers[0])
	if len(fields) != 3 {
		t.Fatalf("Expected 3 fields, got %d", len(fields))
	}
	for i, name := range []string{"enable", "mode", "irq"} {
		if fields[i].Name != name {
			t.Errorf("Field %d: expected '%s', got '%s'", i, name, fields[i].Name)
		}
	}
}

func TestLoadFieldSetInclusion(t *testing.T) {
	cat := loadString(t, `
/common
:ctrl:0-1

X 0x2000
:common/

Y 0x3000
:own:7
:common/
`)

	if len(cat.Registers) != 2 {
		t.Fatalf("Expected 2 registers, got %d", len(cat.Registers))
	}

	x := cat.FieldsOf(cat.Registers[0])
	if len(x) != 1 {
		t.Fatalf("Expected 1 field on X, got %d", len(x))
	}
	if x[0].Name != "ctrl" || x[0].StartBit != 0 || x[0].BitCount != 2 {
		t.Errorf("Unexpected field on X: %+v", x[0])
	}

	// Included fields land after the register's own fields.
	y := cat.FieldsOf(cat.Registers[1])
	if len(y) != 2 {
		t.Fatalf("Expected 2 fields on Y, got %d", len(y))
	}
	if y[0].Name != "own" || y[1].Name != "ctrl" {
		t.Errorf("Unexpected field order on Y: %s, %s", y[0].Name, y[1].Name)
	}
}

func TestLoadIncludeStopsBareFields(t *testing.T) {
	cat := loadString(t, `
/common
:ctrl:0-1

X 0x2000
:common/
:late:5
`)

	fields := cat.FieldsOf(cat.Registers[0])
	if len(fields) != 1 {
		t.Fatalf("Expected late field to be rejected, got %d fields", len(fields))
	}
}

func TestLoadFieldBackReference(t *testing.T) {
	cat := loadString(t, `
CTRL 0x2000
:enable:0-0
:ctrl:enable
`)

	fields := cat.FieldsOf(cat.Registers[0])
	if len(fields) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(fields))
	}
	if fields[1].Name != "ctrl" || fields[1].StartBit != 0 || fields[1].BitCount != 1 {
		t.Errorf("Unexpected back-reference field %+v", fields[1])
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	cat := loadString(t, `
FOO 0x1000
this is ! not a declaration
:bad:99-105
BAR 0x2000
:ok:4-7
`)

	if len(cat.Registers) != 2 {
		t.Fatalf("Expected 2 registers despite bad lines, got %d", len(cat.Registers))
	}
	if len(cat.FieldsOf(cat.Registers[0])) != 0 {
		t.Errorf("Expected no fields on FOO, bad bit range must be dropped")
	}
	if len(cat.FieldsOf(cat.Registers[1])) != 1 {
		t.Errorf("Expected 1 field on BAR")
	}
}

func TestLoadCommentsAndBlankLines(t *testing.T) {
	cat := loadString(t, `
# leading comment
FOO 0x1000   # trailing comment
// another comment style

:bar:0-3  // field comment
`)

	if len(cat.Registers) != 1 {
		t.Fatalf("Expected 1 register, got %d", len(cat.Registers))
	}
	if len(cat.FieldsOf(cat.Registers[0])) != 1 {
		t.Errorf("Expected 1 field")
	}
}

func TestLoadDuplicateRegisterNames(t *testing.T) {
	cat := loadString(t, `
USDHC1 0x1000
USDHC1 0x2000
`)

	if len(cat.Registers) != 2 {
		t.Fatalf("Register names are not unique; expected 2 entries, got %d", len(cat.Registers))
	}
}

func TestFindAddress(t *testing.T) {
	cat := loadString(t, `
FOO 0x1000
BAR 0x2000.w
`)

	reg, ok := cat.FindAddress(0x2000)
	if !ok {
		t.Fatal("Expected to find register at 0x2000")
	}
	if reg.Name != "BAR" || reg.Width != 2 {
		t.Errorf("Unexpected register %+v", reg)
	}

	if _, ok := cat.FindAddress(0x3000); ok {
		t.Error("Did not expect a register at 0x3000")
	}
}
