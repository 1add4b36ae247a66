// Package schema holds the in-memory model a ksy YAML document is loaded
// into: Meta, Doc/DocRef, Params, Attribute and TypeSpec, rooted at
// KsyStruct. The model performs no I/O and no expression evaluation; it is
// built by pkg/ksyyaml and consumed by pkg/interpreter.
package schema

// KsyStruct is the root of a loaded schema: the top-level "meta", "doc",
// "doc-ref", "params", "seq", "types", "instances" and "enums" sections of
// a .ksy document. Unlike a nested TypeSpec, Meta.Identifier is mandatory.
type KsyStruct struct {
	Meta      Meta
	Doc       Doc
	DocRef    DocRef
	Params    Params
	Seq       []Attribute
	Types     Types
	Instances map[string]Attribute
	Enums     Enums
}

// RootTypeSpec views the top-level struct as a TypeSpec, letting the
// interpreter treat the root and any nested user type uniformly once
// parsing has started.
func (k *KsyStruct) RootTypeSpec() *TypeSpec {
	return &TypeSpec{
		Meta:      k.Meta,
		Doc:       k.Doc,
		DocRef:    k.DocRef,
		Params:    k.Params,
		Seq:       k.Seq,
		Types:     k.Types,
		Instances: k.Instances,
		Enums:     k.Enums,
	}
}
