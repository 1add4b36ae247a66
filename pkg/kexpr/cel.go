package kexpr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// ioFunctions declares the stream-introspection functions _io.pos/.size/.eof
// lower to. They take the dynamic "_io" variable the interpreter supplies
// in its Activation (see scope.go) and read fields off it.
type ioLib struct{}

func ioFunctions() cel.EnvOption { return cel.Lib(&ioLib{}) }

func ioMapField(v ref.Val, field string) ref.Val {
	m, ok := v.(traitsMapper)
	if !ok {
		return types.NewErr("_io is not a stream map")
	}
	return m.Get(types.String(field))
}

// traitsMapper is satisfied by CEL's map value type; declared locally to
// avoid importing the traits package just for this one assertion.
type traitsMapper interface {
	Get(key ref.Val) ref.Val
}

func (*ioLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("ioPos",
			cel.Overload("io_pos", []*cel.Type{cel.DynType}, cel.IntType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return ioMapField(v, "pos") }))),
		cel.Function("ioSize",
			cel.Overload("io_size", []*cel.Type{cel.DynType}, cel.IntType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return ioMapField(v, "size") }))),
		cel.Function("ioEof",
			cel.Overload("io_eof", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return ioMapField(v, "eof") }))),
		cel.Function("sizeOf",
			cel.Overload("size_of_dyn", []*cel.Type{cel.DynType}, cel.IntType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return ioMapField(v, "sizeof") }))),
		cel.Function("alignOf",
			cel.Overload("align_of_dyn", []*cel.Type{cel.DynType}, cel.IntType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return ioMapField(v, "alignof") }))),
		cel.Function("castTo",
			cel.Overload("cast_to_dyn_string", []*cel.Type{cel.DynType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(func(v, _ ref.Val) ref.Val { return v }))),
	}
}

func (*ioLib) ProgramOptions() []cel.ProgramOption { return nil }

// NewEnvironment builds the CEL environment every expression compiles
// against: CEL's standard library plus the Kaitai-specific bitwise,
// floor-division/modulo and stream-introspection functions above.
func NewEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.StdLib(),
		bitwiseFunctions(),
		kaitaiMathFunctions(),
		ioFunctions(),
		cel.Variable("_", cel.DynType),
		cel.Variable("_io", cel.DynType),
		cel.Variable("_parent", cel.DynType),
		cel.Variable("_root", cel.DynType),
		cel.Variable("_bytes_remaining", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("kexpr: building CEL environment: %w", err)
	}
	return env, nil
}

// Cache compiles and caches CEL programs keyed by their original Kaitai
// expression source, so a repeated attribute (inside a repeated seq, or
// re-evaluated instance) pays the compile cost once. EvalScope still
// re-parses and re-lowers the source on every call to find its free
// variables.
type Cache struct {
	mu       sync.RWMutex
	programs map[string]cel.Program
	env      *cel.Env
}

// NewCache builds a Cache around a fresh base environment.
func NewCache() (*Cache, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, err
	}
	return &Cache{env: env, programs: make(map[string]cel.Program)}, nil
}

// Get returns the compiled program for src, parsing, lowering to CEL and
// compiling it on first use.
func (c *Cache) Get(src string) (cel.Program, error) {
	c.mu.RLock()
	if p, ok := c.programs[src]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	ast, err := Parse(src)
	if err != nil {
		return nil, err
	}
	celSrc, err := transformToCEL(ast)
	if err != nil {
		return nil, err
	}

	vars := extractVariables(celSrc)
	opts := make([]cel.EnvOption, 0, len(vars))
	for _, v := range vars {
		opts = append(opts, cel.Variable(v, cel.DynType))
	}
	env, err := c.env.Extend(opts...)
	if err != nil {
		return nil, fmt.Errorf("kexpr: extending environment for %q: %w", src, err)
	}

	checked, issues := env.Compile(celSrc)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("kexpr: compiling %q (as %q): %w", src, celSrc, issues.Err())
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("kexpr: building program for %q: %w", src, err)
	}

	c.mu.Lock()
	c.programs[src] = program
	c.mu.Unlock()
	return program, nil
}

// Eval compiles (or reuses the cached compile of) src and evaluates it
// against vars, returning the native Go result.
func (c *Cache) Eval(src string, vars map[string]any) (any, error) {
	program, err := c.Get(src)
	if err != nil {
		return nil, err
	}
	return c.evalProgram(program, vars, src)
}

func (c *Cache) evalProgram(program cel.Program, vars map[string]any, src string) (any, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	activation, err := cel.NewActivation(vars)
	if err != nil {
		return nil, fmt.Errorf("kexpr: building activation: %w", err)
	}
	val, _, err := program.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("kexpr: evaluating %q: %w", src, err)
	}
	return val.Value(), nil
}

var reservedWords = map[string]bool{
	"true": true, "false": true, "null": true,
	"bitAnd": true, "bitOr": true, "bitXor": true, "bitNot": true,
	"bitShiftLeft": true, "bitShiftRight": true,
	"kaitaiMod": true, "kaitaiDiv": true,
	"ioPos": true, "ioSize": true, "ioEof": true,
	"sizeOf": true, "alignOf": true, "castTo": true, "size": true,
	"_": true, "_io": true, "_parent": true, "_root": true, "_bytes_remaining": true,
}

// extractVariables tokenizes a lowered CEL expression and returns every
// free identifier that isn't a reserved word, function name or special
// variable, so the environment can declare each as a cel.DynType
// variable before compiling.
func extractVariables(celSrc string) []string {
	var vars []string
	seen := map[string]bool{}
	inWord := false
	start := 0
	isWordChar := func(c rune) bool {
		return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
	}
	consider := func(word string) {
		if word == "" || reservedWords[word] || seen[word] || (word[0] >= '0' && word[0] <= '9') {
			return
		}
		seen[word] = true
		vars = append(vars, word)
	}
	for i, c := range celSrc {
		if isWordChar(c) && !inWord {
			inWord, start = true, i
		} else if !isWordChar(c) && inWord {
			inWord = false
			consider(celSrc[start:i])
		}
	}
	if inWord {
		consider(celSrc[start:])
	}
	return vars
}
