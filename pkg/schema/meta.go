package schema

// Endian names the byte order a struct's sequence is read in.
type Endian int

const (
	// EndianDefault leaves byte order unspecified; a nested type inherits
	// its enclosing type's byte order, and the interpreter falls back to
	// little-endian when none is set, matching upstream Kaitai Struct's
	// default.
	EndianDefault Endian = iota
	EndianLittle
	EndianBig
)

func (e Endian) String() string {
	switch e {
	case EndianLittle:
		return "le"
	case EndianBig:
		return "be"
	default:
		return ""
	}
}

// Meta carries the "meta" section of a ksy schema: identity, versioning,
// encoding and cross-reference metadata. Only the top-level KsyStruct
// requires Identifier to be set; nested TypeSpecs carry a zero Meta unless
// they declare their own.
type Meta struct {
	Identifier    Identifier
	Title         string
	Application   []string
	FileExtension []string
	License       string
	KSVersion     string
	KSDebug       bool
	KSOpaqueTypes bool
	Imports       []string
	Encoding      string
	Endian        Endian
	XRef          XRef
}
