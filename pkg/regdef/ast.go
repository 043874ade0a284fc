package regdef

// line is the unit of the definition-file grammar. Files are parsed one line
// at a time so that a malformed line can be reported and skipped without
// losing the rest of the file.
type line struct {
	Register *registerLine `parser:"  @@"`
	Include  *includeLine  `parser:"| @@"`
	Field    *fieldLine    `parser:"| @@"`
	FieldSet *fieldSetLine `parser:"| @@"`
}

// registerLine declares a register: `NAME ADDRESS[.b|.w|.l]`. ADDRESS is
// hexadecimal with or without a 0x prefix.
type registerLine struct {
	Name  string `parser:"@Ident"`
	Addr  string `parser:"@(HexLit | Number Ident? | Ident)"`
	Width string `parser:"(Dot @Ident)?"`
}

// includeLine pulls a previously declared field set into the current
// register: `:setname/`.
type includeLine struct {
	Name string `parser:"Colon @Ident Slash"`
}

// fieldLine declares a field on the current register or field set:
// `:fieldname:bitspec`. The bit specification is either a decimal
// `start[-end]` range or the name of a field already declared on the
// current register (a back-reference).
type fieldLine struct {
	Name string  `parser:"Colon @Ident Colon"`
	Bits bitSpec `parser:"@@"`
}

type bitSpec struct {
	Start string `parser:"( @Number"`
	End   string `parser:"  (Dash @Number)?"`
	Ref   string `parser:"| @Ident )"`
}

// fieldSetLine starts a named, reusable group of field declarations:
// `/SETNAME`.
type fieldSetLine struct {
	Name string `parser:"Slash @Ident"`
}
