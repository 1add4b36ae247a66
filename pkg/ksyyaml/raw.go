package ksyyaml

import (
	"fmt"
	"log/slog"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ksyMappingKeys is the full set of top-level keys a .ksy document or a
// nested "types" entry recognizes; anything else is a forward-compatible
// extension this loader ignores, per upstream Kaitai's own stance on
// unrecognized keys.
var ksyMappingKeys = map[string]bool{
	"meta": true, "doc": true, "doc-ref": true, "params": true,
	"seq": true, "types": true, "instances": true, "enums": true,
}

// warnUnknownKeys logs every mapping key not in known at Warn level, naming
// the section it was found under. Called from rawKsyStruct/rawTypeSpec's
// UnmarshalYAML so every nesting depth gets the same forward-compatibility
// treatment, not just the document root.
func warnUnknownKeys(node *yaml.Node, known map[string]bool, section string) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !known[key] {
			slog.Default().Warn("ignoring unrecognized schema key", "section", section, "key", key)
		}
	}
}

// stringOrList accepts a YAML field written either as a single scalar or
// as a sequence of scalars, normalizing both into a slice. Several ksy
// fields (meta.application, meta.file-extension, every xref sub-key,
// doc-ref) use this shape.
type stringOrList []string

func (s *stringOrList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			out = append(out, item.Value)
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence, got %v", value.Kind)
	}
}

// scalarText captures a YAML scalar's literal text regardless of its
// inferred type, so ks-version (number or string) and every
// expression-bearing field (size, if, repeat-expr, ...) can be read as
// plain source text whether the author quoted it or not.
type scalarText string

func (s *scalarText) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar, got %v", value.Kind)
	}
	*s = scalarText(value.Value)
	return nil
}

type rawXRef struct {
	ForensicWiki stringOrList `yaml:"forensicswiki"`
	WikiData     stringOrList `yaml:"wikidata"`
	ISO          stringOrList `yaml:"iso"`
	JustSolve    stringOrList `yaml:"justsolve"`
	MIME         stringOrList `yaml:"mime"`
	PRONOM       stringOrList `yaml:"pronom"`
	LOC          stringOrList `yaml:"loc"`
	RFC          stringOrList `yaml:"rfc"`
}

type rawMeta struct {
	ID            string       `yaml:"id"`
	Title         string       `yaml:"title"`
	Application   stringOrList `yaml:"application"`
	FileExtension stringOrList `yaml:"file-extension"`
	License       string       `yaml:"license"`
	KSVersion     scalarText   `yaml:"ks-version"`
	KSDebug       bool         `yaml:"ks-debug"`
	KSOpaqueTypes bool         `yaml:"ks-opaque-types"`
	Imports       []string     `yaml:"imports"`
	Encoding      string       `yaml:"encoding"`
	Endian        string       `yaml:"endian"`
	XRef          rawXRef      `yaml:"xref"`
}

type rawParam struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`
	Doc    string `yaml:"doc"`
	DocRef string `yaml:"doc-ref"`
}

// rawAttribute covers both "seq" entries and "instances" entries; the two
// differ only in which fields are populated (pos/value vs. the sequential
// read fields). The loader tells them apart by the section they came from;
// schema.Attribute.IsInstance reports the same distinction from the fields.
type rawAttribute struct {
	ID          string       `yaml:"id"`
	Doc         string       `yaml:"doc"`
	DocRef      stringOrList `yaml:"doc-ref"`
	Contents    yaml.Node    `yaml:"contents"`
	Type        string       `yaml:"type"`
	Repeat      string       `yaml:"repeat"`
	RepeatExpr  scalarText   `yaml:"repeat-expr"`
	RepeatUntil scalarText   `yaml:"repeat-until"`
	If          scalarText   `yaml:"if"`
	Size        scalarText   `yaml:"size"`
	SizeEOS     bool         `yaml:"size-eos"`
	Process     string       `yaml:"process"`
	Enum        string       `yaml:"enum"`
	Encoding    string       `yaml:"encoding"`
	PadRight    *int         `yaml:"pad-right"`
	Terminator  *int         `yaml:"terminator"`
	Consume     *bool        `yaml:"consume"`
	Include     *bool        `yaml:"include"`
	EosError    *bool        `yaml:"eos-error"`
	Pos         scalarText   `yaml:"pos"`
	IO          scalarText   `yaml:"io"`
	Value       scalarText   `yaml:"value"`
}

// rawTypeSpec is structurally identical to rawKsyStruct; both are
// decoded from the same document shape, minus meta.id being mandatory
// only at the top level.
type rawTypeSpec struct {
	Meta      rawMeta                 `yaml:"meta"`
	Doc       string                  `yaml:"doc"`
	DocRef    stringOrList            `yaml:"doc-ref"`
	Params    []rawParam              `yaml:"params"`
	Seq       []rawAttribute          `yaml:"seq"`
	Types     map[string]rawTypeSpec  `yaml:"types"`
	Instances map[string]rawAttribute `yaml:"instances"`
	Enums     map[string]map[string]string `yaml:"enums"`
}

// UnmarshalYAML decodes the fields normally, via a defeated-recursion
// alias, then warns on any mapping key this loader doesn't recognize.
func (r *rawTypeSpec) UnmarshalYAML(node *yaml.Node) error {
	type alias rawTypeSpec
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*r = rawTypeSpec(a)
	warnUnknownKeys(node, ksyMappingKeys, "types")
	return nil
}

type rawKsyStruct struct {
	Meta      rawMeta                       `yaml:"meta"`
	Doc       string                        `yaml:"doc"`
	DocRef    stringOrList                  `yaml:"doc-ref"`
	Params    []rawParam                    `yaml:"params"`
	Seq       []rawAttribute                `yaml:"seq"`
	Types     map[string]rawTypeSpec        `yaml:"types"`
	Instances map[string]rawAttribute       `yaml:"instances"`
	Enums     map[string]map[string]string  `yaml:"enums"`
}

// UnmarshalYAML mirrors rawTypeSpec's hook for the document root.
func (r *rawKsyStruct) UnmarshalYAML(node *yaml.Node) error {
	type alias rawKsyStruct
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*r = rawKsyStruct(a)
	warnUnknownKeys(node, ksyMappingKeys, "document")
	return nil
}

// contentsBytes interprets a "contents" YAML node: a plain string
// contributes its own bytes, a sequence mixes string chunks (each
// contributing its ASCII bytes) and integers (each one raw byte).
func contentsBytes(node yaml.Node) ([]byte, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		return []byte(node.Value), nil
	case yaml.SequenceNode:
		var out []byte
		for _, item := range node.Content {
			if item.Tag == "!!int" {
				n, err := strconv.ParseInt(item.Value, 0, 16)
				if err != nil {
					return nil, fmt.Errorf("contents: invalid byte value %q: %w", item.Value, err)
				}
				out = append(out, byte(n))
				continue
			}
			out = append(out, []byte(item.Value)...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("contents: unsupported YAML shape")
	}
}

// parseEnumKey accepts decimal or 0x-prefixed hexadecimal enum keys.
func parseEnumKey(key string) (int64, error) {
	return strconv.ParseInt(key, 0, 64)
}
