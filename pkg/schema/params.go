package schema

// ParamSpec is one entry of a type's "params" list: a named, typed input
// the type declares. The interpreter does not bind parameter values when
// it instantiates the type as a user type.
type ParamSpec struct {
	ID   Identifier
	Type Type
	Doc  Doc
}

// Params is the ordered list of parameters a type declares.
type Params []ParamSpec
