package schema

// TypeSpec is one entry of a "types" map: a nested user-defined type with
// its own optional meta, doc, params, seq, further nested types, instances
// and enums. TypeSpec is structurally identical to the top-level KsyStruct
// minus the requirement that Meta.Identifier be set.
type TypeSpec struct {
	Meta      Meta
	Doc       Doc
	DocRef    DocRef
	Params    Params
	Seq       []Attribute
	Types     Types
	Instances map[string]Attribute
	Enums     Enums
}

// Types maps a nested type's declared name to its spec.
type Types map[string]*TypeSpec
