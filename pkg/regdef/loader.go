package regdef

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/retroenv/retrogolib/log"

	"github.com/boundarydevices/devregs/pkg/bitfield"
)

// attachState tracks where field declarations currently land.
type attachState int

const (
	attachNone     attachState = iota // fields are not accepted
	attachRegister                    // fields go to the most recent register
	attachFieldSet                    // fields go to the most recent field set
)

// fieldSet is a named group of arena references, consumed during loading only.
type fieldSet struct {
	name   string
	fields []FieldRef
}

// Loader parses register definition files into catalogs. Malformed lines are
// reported through the logger and skipped; loading never aborts on a bad
// line.
type Loader struct {
	parser *participle.Parser[line]
	logger *log.Logger
}

// NewLoader builds the line parser.
func NewLoader(logger *log.Logger) (*Loader, error) {
	parser, err := participle.Build[line](
		participle.Lexer(defLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(3),
	)
	if err != nil {
		return nil, fmt.Errorf("regdef: failed to build parser: %w", err)
	}
	return &Loader{parser: parser, logger: logger}, nil
}

// LoadFile loads a definition file from a path.
func (l *Loader) LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("regdef: failed to open definitions: %w", err)
	}
	defer f.Close()

	cat, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("regdef: %s: %w", path, err)
	}
	return cat, nil
}

// Load reads definition lines from r and builds a catalog. The returned
// error reflects I/O failure only; syntax errors are reported per line and
// recovered.
func (l *Loader) Load(r io.Reader) (*Catalog, error) {
	cat := &Catalog{}
	sets := make(map[string]*fieldSet)

	state := attachNone
	var curSet *fieldSet

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		code := stripComment(scanner.Text())
		if code == "" {
			continue
		}

		parsed, err := l.parser.ParseString("", code)
		if err != nil {
			l.report(lineNum, code, err)
			continue
		}

		switch {
		case parsed.Register != nil:
			reg, err := buildRegister(parsed.Register)
			if err != nil {
				l.report(lineNum, code, err)
				continue
			}
			cat.Registers = append(cat.Registers, reg)
			state = attachRegister

		case parsed.FieldSet != nil:
			curSet = &fieldSet{name: parsed.FieldSet.Name}
			sets[curSet.name] = curSet
			state = attachFieldSet

		case parsed.Include != nil:
			if state != attachRegister {
				l.report(lineNum, code, fmt.Errorf("field set include outside a register"))
				continue
			}
			fs, ok := sets[parsed.Include.Name]
			if !ok {
				l.report(lineNum, code, fmt.Errorf("unknown field set %q", parsed.Include.Name))
				continue
			}
			reg := &cat.Registers[len(cat.Registers)-1]
			reg.Fields = append(reg.Fields, fs.fields...)
			// The register accepts no further bare field lines once a
			// set has been included.
			state = attachNone

		case parsed.Field != nil:
			if state == attachNone {
				l.report(lineNum, code, fmt.Errorf("field declaration outside a register or field set"))
				continue
			}
			descs, err := l.buildFields(cat, parsed.Field)
			if err != nil {
				l.report(lineNum, code, err)
				continue
			}
			for _, d := range descs {
				ref := cat.addField(d)
				if state == attachRegister {
					reg := &cat.Registers[len(cat.Registers)-1]
					reg.Fields = append(reg.Fields, ref)
				} else {
					curSet.fields = append(curSet.fields, ref)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	return cat, nil
}

// buildFields turns a field line into one or more descriptors. A numeric bit
// specification yields exactly one; a back-reference copies the bit range of
// every same-named field on the most recently declared register.
func (l *Loader) buildFields(cat *Catalog, fl *fieldLine) ([]FieldDescriptor, error) {
	if fl.Bits.Ref == "" {
		spec := fl.Bits.Start
		if fl.Bits.End != "" {
			spec += "-" + fl.Bits.End
		}
		start, count, err := bitfield.ParseRange(spec)
		if err != nil {
			return nil, err
		}
		return []FieldDescriptor{{Name: fl.Name, StartBit: start, BitCount: count}}, nil
	}

	if len(cat.Registers) == 0 {
		return nil, fmt.Errorf("field back-reference %q with no register declared", fl.Bits.Ref)
	}
	reg := cat.Registers[len(cat.Registers)-1]
	var out []FieldDescriptor
	for _, ref := range reg.Fields {
		f := cat.Field(ref)
		if strings.EqualFold(f.Name, fl.Bits.Ref) {
			out = append(out, FieldDescriptor{Name: fl.Name, StartBit: f.StartBit, BitCount: f.BitCount})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("field back-reference %q matches nothing on register %s", fl.Bits.Ref, reg.Name)
	}
	return out, nil
}

func buildRegister(rl *registerLine) (Register, error) {
	addr, err := parseHexAddress(rl.Addr)
	if err != nil {
		return Register{}, err
	}
	width := uint(4)
	if rl.Width != "" {
		width, err = parseWidthSuffix(rl.Width)
		if err != nil {
			return Register{}, err
		}
	}
	return Register{Name: rl.Name, Address: addr, Width: width}, nil
}

func parseHexAddress(s string) (uint64, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	addr, err := strconv.ParseUint(t, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: expected hexadecimal", s)
	}
	return addr, nil
}

func parseWidthSuffix(s string) (uint, error) {
	switch strings.ToLower(s) {
	case "b":
		return 1, nil
	case "w":
		return 2, nil
	case "l":
		return 4, nil
	}
	return 0, fmt.Errorf("invalid width suffix %q: use .b, .w or .l", s)
}

// stripComment removes a trailing `#` or `//` comment and surrounding
// whitespace, leaving only the significant part of the line.
func stripComment(s string) string {
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func (l *Loader) report(lineNum int, text string, err error) {
	l.logger.Warn("Skipping definition line",
		log.Int("line", lineNum),
		log.String("text", text),
		log.Err(err))
}
