package kexpr

// Scope abstracts the AST context an expression evaluates against,
// letting pkg/kexpr stay ignorant of pkg/kast's node representation.
// pkg/interpreter supplies the concrete implementation, backed by the
// scope stack it pushes/pops on user-type recursion (spec's AST
// ownership design: ancestry is resolved here, not via node back-
// pointers).
type Scope interface {
	// Self returns the "_" special variable: while a repeat-until
	// condition is evaluated, the most recently produced element; nil in
	// every other expression.
	Self() any
	// Parent returns the enclosing user type's field-name-to-value view,
	// or nil at the root.
	Parent() any
	// Root returns the top-level type's field-name-to-value view.
	Root() any
	// BytesRemaining returns the number of unread bytes in the current
	// stream.
	BytesRemaining() int64
	// IOPos, IOSize and IOEof report the current stream's cursor state.
	IOPos() int64
	IOSize() int64
	IOEof() bool
	// Lookup resolves a bare identifier against already-parsed sibling
	// and ancestor fields, DFS id-lookup style (first match wins).
	Lookup(name string) (any, bool)
}

// BuildActivationVars assembles the CEL activation map for evaluating an
// expression against scope: the fixed special variables, plus one entry
// per free variable name the expression actually references.
func BuildActivationVars(scope Scope, freeVars []string) map[string]any {
	vars := map[string]any{
		"_":                scope.Self(),
		"_parent":          scope.Parent(),
		"_root":            scope.Root(),
		"_bytes_remaining": scope.BytesRemaining(),
		"_io": map[string]any{
			"pos":     scope.IOPos(),
			"size":    scope.IOSize(),
			"eof":     scope.IOEof(),
			"sizeof":  scope.IOSize(),
			"alignof": int64(1),
		},
	}
	for _, name := range freeVars {
		if _, reserved := reservedWords[name]; reserved {
			continue
		}
		if v, ok := scope.Lookup(name); ok {
			vars[name] = v
		}
	}
	return vars
}

// EvalScope compiles (or reuses the cached compile of) src and evaluates
// it against scope, resolving free variables via scope.Lookup.
func (c *Cache) EvalScope(src string, scope Scope) (any, error) {
	program, err := c.Get(src)
	if err != nil {
		return nil, err
	}
	ast, err := Parse(src)
	if err != nil {
		return nil, err
	}
	celSrc, err := transformToCEL(ast)
	if err != nil {
		return nil, err
	}
	vars := BuildActivationVars(scope, extractVariables(celSrc))
	return c.evalProgram(program, vars, src)
}
