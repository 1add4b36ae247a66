package ksyyaml

import (
	"testing"

	"github.com/kbinterp/ksyinterp/pkg/schema"
)

const sampleKsy = `
meta:
  id: simple_format
  endian: le
  encoding: ASCII
doc: A toy format used to exercise the loader.
doc-ref: "https://example.org/spec.html see section 3"
seq:
  - id: magic
    contents: [0x4B, 0x41, 0x49]
  - id: width
    type: u2
  - id: height
    type: u2
  - id: name_len
    type: u1
  - id: name
    type: str
    size: name_len
    encoding: ASCII
  - id: chunks
    type: chunk
    repeat: eos
types:
  chunk:
    seq:
      - id: tag
        type: u4
      - id: body
        size: 4
        if: tag != 0
instances:
  area:
    value: width * height
enums:
  chunk_kind:
    0: header
    1: data
`

func TestLoadBasicSchema(t *testing.T) {
	ks, err := Load([]byte(sampleKsy))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ks.Meta.Identifier.String() != "simple_format" {
		t.Errorf("meta.id = %q", ks.Meta.Identifier.String())
	}
	if len(ks.DocRef.Entries) != 1 || ks.DocRef.Entries[0].URL != "https://example.org/spec.html" {
		t.Errorf("doc-ref parsed wrong: %+v", ks.DocRef)
	}
	if len(ks.Seq) != 6 {
		t.Fatalf("seq length = %d, want 6", len(ks.Seq))
	}
	if string(ks.Seq[0].Contents) != "KAI" {
		t.Errorf("contents = %q", ks.Seq[0].Contents)
	}
	nameAttr := ks.Seq[4]
	if nameAttr.Size != "name_len" {
		t.Errorf("name.size = %q", nameAttr.Size)
	}
	chunks := ks.Seq[5]
	if chunks.Repeat != schema.RepeatEos {
		t.Errorf("chunks.repeat = %v", chunks.Repeat)
	}
	chunkType, ok := ks.Types["chunk"]
	if !ok {
		t.Fatal("expected nested type chunk")
	}
	if len(chunkType.Seq) != 2 || chunkType.Seq[1].If != "tag != 0" {
		t.Errorf("chunk.body.if not parsed: %+v", chunkType.Seq)
	}
	area, ok := ks.Instances["area"]
	if !ok || area.Value != "width * height" {
		t.Errorf("instances.area not parsed: %+v", area)
	}
	if name, ok := ks.Enums.Lookup("chunk_kind", 1); !ok || name != "data" {
		t.Errorf("enum lookup failed: %v %v", name, ok)
	}
}
