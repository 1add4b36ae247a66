package interpreter

import (
	"context"
	"testing"

	"github.com/kbinterp/ksyinterp/pkg/schema"
)

func mustID(t *testing.T, s string) schema.Identifier {
	t.Helper()
	id, err := schema.IdentifierFromString(s)
	if err != nil {
		t.Fatalf("IdentifierFromString(%q): %v", s, err)
	}
	return id
}

func newKsyStruct(t *testing.T, seq []schema.Attribute) *schema.KsyStruct {
	t.Helper()
	id := mustID(t, "test_format")
	return &schema.KsyStruct{
		Meta: schema.Meta{Identifier: id, Endian: schema.EndianLittle},
		Seq:  seq,
	}
}

func newInterpreter(t *testing.T, ks *schema.KsyStruct) *Interpreter {
	t.Helper()
	in, err := New(ks)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in
}

func TestFixedMagicContents(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "magic"), Contents: []byte{0x4B, 0x41, 0x49}},
	})
	in := newInterpreter(t, ks)
	node, err := in.Parse(context.Background(), []byte{0x4B, 0x41, 0x49})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	magic, ok := node.GetNodeByID("magic")
	if !ok || string(magic.Data) != "KAI" {
		t.Errorf("magic node = %+v, ok=%v", magic, ok)
	}
}

func TestFixedMagicMismatch(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "magic"), Contents: []byte{0x4B, 0x41, 0x49}},
	})
	in := newInterpreter(t, ks)
	_, err := in.Parse(context.Background(), []byte{0x00, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected contents mismatch error")
	}
}

func TestTwoUnsignedLEFields(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "width"), Type: mustType(t, "u2")},
		{ID: mustID(t, "height"), Type: mustType(t, "u2")},
	})
	in := newInterpreter(t, ks)
	node, err := in.Parse(context.Background(), []byte{0x10, 0x00, 0x20, 0x00})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	width, _ := node.GetNodeByID("width")
	height, _ := node.GetNodeByID("height")
	if width.Text() == "" && len(width.Data) != 2 {
		t.Errorf("width node malformed: %+v", width)
	}
	wantW, wantH := []byte{0x10, 0x00}, []byte{0x20, 0x00}
	if string(width.Data) != string(wantW) || string(height.Data) != string(wantH) {
		t.Errorf("width/height data = %x/%x", width.Data, height.Data)
	}
}

func TestSizePrefixedByteArray(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "len"), Type: mustType(t, "u1")},
		{ID: mustID(t, "payload"), Type: mustType(t, "any"), Size: "len"},
	})
	in := newInterpreter(t, ks)
	data := []byte{0x03, 0xAA, 0xBB, 0xCC, 0xFF}
	node, err := in.Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	payload, ok := node.GetNodeByID("payload")
	if !ok || string(payload.Data) != "\xAA\xBB\xCC" {
		t.Errorf("payload = % x, ok=%v", payload.Data, ok)
	}
}

func TestNullTerminatedString(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "name"), Type: mustType(t, "strz"), Consume: true, EosError: true},
		{ID: mustID(t, "trailer"), Type: mustType(t, "u1")},
	})
	in := newInterpreter(t, ks)
	data := append([]byte("hello"), 0x00, 0x7F)
	node, err := in.Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	name, _ := node.GetNodeByID("name")
	if name.Text() != "hello" {
		t.Errorf("name.Text() = %q", name.Text())
	}
	trailer, _ := node.GetNodeByID("trailer")
	if len(trailer.Data) != 1 || trailer.Data[0] != 0x7F {
		t.Errorf("trailer = % x", trailer.Data)
	}
}

func TestRepetitionByExpression(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "count"), Type: mustType(t, "u1")},
		{ID: mustID(t, "items"), Type: mustType(t, "u1"), Repeat: schema.RepeatExpr, RepeatCount: "count"},
	})
	in := newInterpreter(t, ks)
	data := []byte{0x03, 0x01, 0x02, 0x03}
	node, err := in.Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	items, ok := node.GetNodeByID("items")
	if !ok || len(items.Children) != 3 {
		t.Fatalf("items = %+v, ok=%v", items, ok)
	}
	for i, want := range []byte{0x01, 0x02, 0x03} {
		if items.Children[i].Data[0] != want {
			t.Errorf("items[%d] = %x, want %x", i, items.Children[i].Data[0], want)
		}
	}
}

func TestEOFAbsorptionWithEosErrorFalse(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "declared"), Type: mustType(t, "any"), Size: "10", EosError: false},
	})
	in := newInterpreter(t, ks)
	data := []byte{0x01, 0x02, 0x03}
	node, err := in.Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	declared, _ := node.GetNodeByID("declared")
	if string(declared.Data) != "\x01\x02\x03" {
		t.Errorf("declared = % x, want truncated read", declared.Data)
	}
}

func TestEOFErrorsWhenEosErrorTrue(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "declared"), Type: mustType(t, "any"), Size: "10", EosError: true},
	})
	in := newInterpreter(t, ks)
	_, err := in.Parse(context.Background(), []byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("expected end-of-stream error")
	}
}

func TestRepeatUntilBindsSelf(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "entries"), Type: mustType(t, "u1"), Repeat: schema.RepeatUntil, RepeatUntil: "_ == 0"},
	})
	in := newInterpreter(t, ks)
	data := []byte{0x05, 0x06, 0x00}
	node, err := in.Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	entries, _ := node.GetNodeByID("entries")
	if len(entries.Children) != 3 {
		t.Fatalf("entries len = %d, want 3", len(entries.Children))
	}
}

func TestComputedInstance(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "width"), Type: mustType(t, "u1")},
		{ID: mustID(t, "height"), Type: mustType(t, "u1")},
	})
	ks.Instances = map[string]schema.Attribute{
		"area": {Value: "width * height"},
	}
	in := newInterpreter(t, ks)
	node, err := in.Parse(context.Background(), []byte{3, 4})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	area, ok := node.GetNodeByID("area")
	if !ok || string(area.Data) != "12" {
		t.Errorf("area = %+v, ok=%v", area, ok)
	}
}

func TestStrzStopsAtTerminatorWithinSize(t *testing.T) {
	ks := newKsyStruct(t, []schema.Attribute{
		{ID: mustID(t, "name"), Type: mustType(t, "strz"), Size: "8"},
		{ID: mustID(t, "trailer"), Type: mustType(t, "u1")},
	})
	in := newInterpreter(t, ks)
	data := append([]byte("hi"), 0x00, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0x7F)
	node, err := in.Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	name, _ := node.GetNodeByID("name")
	if name.Text() != "hi" {
		t.Errorf("name.Text() = %q, want %q", name.Text(), "hi")
	}
	trailer, _ := node.GetNodeByID("trailer")
	if len(trailer.Data) != 1 || trailer.Data[0] != 0x7F {
		t.Errorf("trailer = % x, want the byte right after the 8-byte window", trailer.Data)
	}
}

func mustType(t *testing.T, token string) schema.Type {
	t.Helper()
	typ, err := schema.ParseType(token)
	if err != nil {
		t.Fatalf("ParseType(%q): %v", token, err)
	}
	return typ
}
