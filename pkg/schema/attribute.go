package schema

// RepeatKind selects how an attribute's "repeat" key is interpreted.
type RepeatKind int

const (
	// RepeatNone means the attribute is read exactly once.
	RepeatNone RepeatKind = iota
	// RepeatEos reads until the enclosing stream is exhausted.
	RepeatEos
	// RepeatExpr reads a fixed count given by RepeatCount.
	RepeatExpr
	// RepeatUntil reads until the RepeatUntil expression evaluates true against the most
	// recently read element (bound to "_").
	RepeatUntil
)

func (r RepeatKind) String() string {
	switch r {
	case RepeatEos:
		return "eos"
	case RepeatExpr:
		return "expr"
	case RepeatUntil:
		return "until"
	default:
		return "none"
	}
}

// Attribute is one entry of a "seq" list or a value-instance definition.
// Fields are unvalidated expression source strings (kexpr.Parse runs over
// them lazily, at first evaluation) except where the schema format fixes
// a literal shape, such as Contents or Terminator.
type Attribute struct {
	ID     Identifier
	Doc    Doc
	DocRef DocRef

	// Contents, when non-nil, is a fixed byte sequence the interpreter
	// must match verbatim at the current position; on mismatch this
	// produces kerr.ContentsMismatch. Mutually exclusive with Type.
	Contents []byte

	Type Type

	Repeat      RepeatKind
	RepeatCount string // expression source, valid when Repeat == RepeatExpr
	RepeatUntil string // expression source, valid when Repeat == RepeatUntil

	// If, when non-empty, is an expression source; the attribute is
	// skipped entirely (and its field left absent) when it evaluates
	// false.
	If string

	// Size and SizeEOS are mutually exclusive: the loader rejects an
	// attribute that sets both. The interpreter's readers check SizeEOS
	// before Size.
	Size    string // expression source, byte count
	SizeEOS bool

	// Process names a byte-transform applied to the raw bytes before
	// they are reinterpreted as Type: "zlib", "xor(key)", "rol(n)" or
	// "ror(n)". Validated against the Process pattern at load time.
	Process string

	// Enum, when non-empty, names an Enums entry the interpreter resolves
	// the attribute's integer value against after reading it.
	Enum string

	// Encoding names the text encoding applied when Type is str or strz;
	// empty defers to the schema's meta.encoding.
	Encoding string

	PadRight   *byte // optional pad byte stripped from the right of str/strz text
	Terminator *byte // optional terminator byte for str reads; strz defaults to 0

	// Consume, Include and EosError mirror the upstream str/strz reading
	// knobs. Consume defaults true (terminator byte is consumed from the
	// stream), Include defaults false (terminator excluded from the
	// decoded value), EosError defaults true (running out of stream
	// before finding Terminator is an error rather than a truncation).
	Consume  bool
	Include  bool
	EosError bool

	// Pos and IO, when non-empty, redirect a value-instance's read to an
	// explicit stream position / substream rather than the sequential
	// cursor; valid only on instances, never on seq attributes.
	Pos string
	IO  string

	// Value, when non-empty, makes this a computed instance: no bytes
	// are consumed, the field's value is this expression evaluated
	// against already-parsed sibling and ancestor values.
	Value string
}

// IsInstance reports whether this attribute is a computed ("value") or
// positioned ("pos") instance rather than a sequential seq entry.
func (a Attribute) IsInstance() bool {
	return a.Value != "" || a.Pos != ""
}
