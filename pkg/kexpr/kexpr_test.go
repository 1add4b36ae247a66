package kexpr

import "testing"

func TestParseLiteralsAndPrecedence(t *testing.T) {
	cases := map[string]string{
		"1 + 2 * 3":      "(1 + (2 * 3))",
		"(1 + 2) * 3":    "((1 + 2) * 3)",
		"a == b && c":    "((a == b) && c)",
		"x ? 1 : 2":      "(x ? 1 : 2)",
		"-a":             "(-a)",
		"!flag":          "(!flag)",
		"~mask":          "(~mask)",
		"foo.bar":        "foo.bar",
		"arr[0]":         "arr[0]",
		"foo.as<u4>()":   "foo.as<u4>()",
		"sizeof(foo)":    "sizeof(foo)",
	}
	for src, want := range cases {
		e, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if got := e.String(); got != want {
			t.Errorf("Parse(%q).String() = %q, want %q", src, got, want)
		}
	}
}

func TestParseSpecialVariables(t *testing.T) {
	cases := []string{"_", "_io", "_parent", "_root", "_bytes_remaining"}
	for _, src := range cases {
		e, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if e.String() != src {
			t.Errorf("Parse(%q).String() = %q", src, e.String())
		}
	}
}

func TestParseNumberLiteralsWithSeparators(t *testing.T) {
	e, err := Parse("1_000_000")
	if err != nil {
		t.Fatal(err)
	}
	lit, ok := e.(*IntLit)
	if !ok || lit.Value != 1000000 {
		t.Errorf("got %#v", e)
	}
}

func TestParseHexOctBin(t *testing.T) {
	cases := map[string]int64{"0x1F": 31, "0b101": 5, "0o17": 15}
	for src, want := range cases {
		e, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		lit, ok := e.(*IntLit)
		if !ok || lit.Value != want {
			t.Errorf("Parse(%q) = %#v, want %d", src, e, want)
		}
	}
}

func TestTransformBitwiseToCEL(t *testing.T) {
	e, err := Parse("a & b")
	if err != nil {
		t.Fatal(err)
	}
	got, err := transformToCEL(e)
	if err != nil {
		t.Fatal(err)
	}
	want := "bitAnd(a, b)"
	if got != want {
		t.Errorf("transformToCEL = %q, want %q", got, want)
	}
}

func TestTransformModDivToCEL(t *testing.T) {
	e, err := Parse("a % b")
	if err != nil {
		t.Fatal(err)
	}
	got, err := transformToCEL(e)
	if err != nil {
		t.Fatal(err)
	}
	if got != "kaitaiMod(a, b)" {
		t.Errorf("transformToCEL = %q", got)
	}
}

func TestCacheEvalArithmetic(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Eval("a + b * 2", map[string]any{"a": int64(1), "b": int64(3)})
	if err != nil {
		t.Fatal(err)
	}
	if result.(int64) != 7 {
		t.Errorf("got %v, want 7", result)
	}
}

func TestCacheEvalBitwiseAndShift(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Eval("(a & b) << 1", map[string]any{"a": int64(6), "b": int64(3)})
	if err != nil {
		t.Fatal(err)
	}
	if result.(int64) != 4 {
		t.Errorf("got %v, want 4", result)
	}
}

func TestCacheEvalTernary(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Eval("n > 0 ? 1 : -1", map[string]any{"n": int64(-5)})
	if err != nil {
		t.Fatal(err)
	}
	if result.(int64) != -1 {
		t.Errorf("got %v, want -1", result)
	}
}

type fakeScope struct {
	fields map[string]any
}

func (f fakeScope) Self() any              { return nil }
func (f fakeScope) Parent() any            { return nil }
func (f fakeScope) Root() any              { return nil }
func (f fakeScope) BytesRemaining() int64  { return 0 }
func (f fakeScope) IOPos() int64           { return 4 }
func (f fakeScope) IOSize() int64          { return 10 }
func (f fakeScope) IOEof() bool            { return false }
func (f fakeScope) Lookup(name string) (any, bool) {
	v, ok := f.fields[name]
	return v, ok
}

func TestEvalScopeResolvesFreeVariables(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatal(err)
	}
	scope := fakeScope{fields: map[string]any{"n": int64(3)}}
	result, err := c.EvalScope("n * 2", scope)
	if err != nil {
		t.Fatal(err)
	}
	if result.(int64) != 6 {
		t.Errorf("got %v, want 6", result)
	}
}
