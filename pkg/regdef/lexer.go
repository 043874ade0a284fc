package regdef

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// defLexer tokenizes one definition-file line. Comments are stripped by the
// loader before lexing, so no comment rule is needed here. Addresses written
// without a 0x prefix may tokenize as Number, Ident, or a Number directly
// followed by an Ident (e.g. "20e4000"); the grammar accepts all three
// shapes and validates the text as hexadecimal afterwards.
var defLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "HexLit", Pattern: `0[xX][0-9A-Fa-f]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Slash", Pattern: `/`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Whitespace", Pattern: `[ \t\r\f\v]+`},
})
