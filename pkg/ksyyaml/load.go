// Package ksyyaml loads a .ksy YAML document into the pkg/schema model. It
// performs no expression evaluation and no binary interpretation: its only
// job is turning wire-exact YAML field names into validated, strongly typed
// Go values, routing each top-level mapping key (meta, doc, doc-ref, params,
// seq, types, instances, enums) to its own conversion step.
package ksyyaml

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/kbinterp/ksyinterp/pkg/kerr"
	"github.com/kbinterp/ksyinterp/pkg/schema"
	"github.com/kbinterp/ksyinterp/pkg/validator"
)

// Load decodes a top-level .ksy document into a *schema.KsyStruct. Any
// malformed node, unresolvable identifier or out-of-range value surfaces
// immediately as a *kerr.SchemaError; a validator failure is folded into
// its Reason text rather than wrapped.
func Load(data []byte) (*schema.KsyStruct, error) {
	var raw rawKsyStruct
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &kerr.SchemaError{Section: "document", Reason: err.Error()}
	}

	meta, err := parseMeta(raw.Meta)
	if err != nil {
		return nil, err
	}
	if meta.Identifier.IsZero() {
		return nil, &kerr.SchemaError{Section: "meta", Reason: "meta.id is required at the top level"}
	}

	doc, docRef, err := parseDocAndRef(raw.Doc, raw.DocRef)
	if err != nil {
		return nil, err
	}
	params, err := parseParams(raw.Params)
	if err != nil {
		return nil, err
	}
	seq, err := parseSeq(raw.Seq)
	if err != nil {
		return nil, err
	}
	types, err := parseTypes(raw.Types)
	if err != nil {
		return nil, err
	}
	instances, err := parseInstances(raw.Instances)
	if err != nil {
		return nil, err
	}
	enums, err := parseEnums(raw.Enums)
	if err != nil {
		return nil, err
	}

	return &schema.KsyStruct{
		Meta:      meta,
		Doc:       doc,
		DocRef:    docRef,
		Params:    params,
		Seq:       seq,
		Types:     types,
		Instances: instances,
		Enums:     enums,
	}, nil
}

func parseTypeSpec(raw rawTypeSpec) (*schema.TypeSpec, error) {
	meta, err := parseMeta(raw.Meta)
	if err != nil {
		return nil, err
	}
	doc, docRef, err := parseDocAndRef(raw.Doc, raw.DocRef)
	if err != nil {
		return nil, err
	}
	params, err := parseParams(raw.Params)
	if err != nil {
		return nil, err
	}
	seq, err := parseSeq(raw.Seq)
	if err != nil {
		return nil, err
	}
	types, err := parseTypes(raw.Types)
	if err != nil {
		return nil, err
	}
	instances, err := parseInstances(raw.Instances)
	if err != nil {
		return nil, err
	}
	enums, err := parseEnums(raw.Enums)
	if err != nil {
		return nil, err
	}
	return &schema.TypeSpec{
		Meta:      meta,
		Doc:       doc,
		DocRef:    docRef,
		Params:    params,
		Seq:       seq,
		Types:     types,
		Instances: instances,
		Enums:     enums,
	}, nil
}

func parseTypes(raw map[string]rawTypeSpec) (schema.Types, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(schema.Types, len(raw))
	for name, rt := range raw {
		if err := validator.ValidateOne(name, validator.Identifier); err != nil {
			return nil, &kerr.SchemaError{Section: "types", Reason: fmt.Sprintf("type name %q: %v", name, err)}
		}
		spec, err := parseTypeSpec(rt)
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}
	return out, nil
}

func parseMeta(raw rawMeta) (schema.Meta, error) {
	m := schema.Meta{
		Title:         raw.Title,
		Application:   []string(raw.Application),
		FileExtension: []string(raw.FileExtension),
		License:       raw.License,
		KSVersion:     string(raw.KSVersion),
		KSDebug:       raw.KSDebug,
		KSOpaqueTypes: raw.KSOpaqueTypes,
		Imports:       raw.Imports,
		Encoding:      raw.Encoding,
	}
	if raw.ID != "" {
		id, err := schema.IdentifierFromString(raw.ID)
		if err != nil {
			return schema.Meta{}, &kerr.SchemaError{Section: "meta", Reason: fmt.Sprintf("id: %v", err)}
		}
		m.Identifier = id
	}
	for _, imp := range raw.Imports {
		if err := validator.ValidateOne(imp, validator.Import); err != nil {
			return schema.Meta{}, &kerr.SchemaError{Section: "meta", Reason: fmt.Sprintf("imports: %v", err)}
		}
	}
	switch raw.Endian {
	case "":
		m.Endian = schema.EndianDefault
	case "le":
		m.Endian = schema.EndianLittle
	case "be":
		m.Endian = schema.EndianBig
	default:
		return schema.Meta{}, &kerr.SchemaError{Section: "meta", Reason: fmt.Sprintf("endian: unsupported value %q", raw.Endian)}
	}
	xref, err := parseXRef(raw.XRef)
	if err != nil {
		return schema.Meta{}, err
	}
	m.XRef = xref
	return m, nil
}

func parseXRef(raw rawXRef) (schema.XRef, error) {
	validated := func(values []string, name validator.Name, field string) ([]string, error) {
		for _, v := range values {
			if !validator.Match(v, name) {
				return nil, &kerr.SchemaError{Section: "meta.xref", Reason: fmt.Sprintf("%s: %q does not match pattern %q", field, v, name)}
			}
		}
		return values, nil
	}
	fw, err := validated(raw.ForensicWiki, validator.MediaWikiPage, "forensicswiki")
	if err != nil {
		return schema.XRef{}, err
	}
	iso, err := validated(raw.ISO, validator.ISO, "iso")
	if err != nil {
		return schema.XRef{}, err
	}
	js, err := validated(raw.JustSolve, validator.MediaWikiPage, "justsolve")
	if err != nil {
		return schema.XRef{}, err
	}
	loc, err := validated(raw.LOC, validator.LOC, "loc")
	if err != nil {
		return schema.XRef{}, err
	}
	mime, err := validated(raw.MIME, validator.MIME, "mime")
	if err != nil {
		return schema.XRef{}, err
	}
	pronom, err := validated(raw.PRONOM, validator.PRONOM, "pronom")
	if err != nil {
		return schema.XRef{}, err
	}
	rfc, err := validated(raw.RFC, validator.RFC, "rfc")
	if err != nil {
		return schema.XRef{}, err
	}
	wd, err := validated(raw.WikiData, validator.WikiData, "wikidata")
	if err != nil {
		return schema.XRef{}, err
	}
	return schema.XRef{
		ForensicWiki:     fw,
		ISO:              iso,
		JustSolve:        js,
		LocIdentifier:    loc,
		MIMEType:         mime,
		PronomIdentifier: pronom,
		RFCIdentifier:    rfc,
		WikiDataID:       wd,
	}, nil
}

func parseDocAndRef(docText string, rawRefs stringOrList) (schema.Doc, schema.DocRef, error) {
	doc := schema.Doc{Description: docText}
	if len(rawRefs) == 0 {
		return doc, schema.DocRef{}, nil
	}
	entries := make([]schema.DocRefEntry, 0, len(rawRefs))
	for _, ref := range rawRefs {
		groups := validator.Submatches(ref, validator.DocRef)
		if groups == nil {
			return schema.Doc{}, schema.DocRef{}, &kerr.SchemaError{Section: "doc-ref", Reason: fmt.Sprintf("malformed doc-ref entry: %q", ref)}
		}
		entries = append(entries, schema.DocRefEntry{
			URL:           groups["URL"],
			ArbitraryText: groups["arbitrary_string"],
		})
	}
	return doc, schema.DocRef{Entries: entries}, nil
}

func parseParams(raw []rawParam) (schema.Params, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(schema.Params, 0, len(raw))
	for _, p := range raw {
		id, err := schema.IdentifierFromString(p.ID)
		if err != nil {
			return nil, &kerr.SchemaError{Section: "params", Reason: fmt.Sprintf("id: %v", err)}
		}
		typ, err := schema.ParseType(p.Type)
		if err != nil {
			return nil, &kerr.SchemaError{Section: "params", Reason: fmt.Sprintf("type: %v", err)}
		}
		out = append(out, schema.ParamSpec{ID: id, Type: typ, Doc: schema.Doc{Description: p.Doc}})
	}
	return out, nil
}

func parseSeq(raw []rawAttribute) ([]schema.Attribute, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]schema.Attribute, 0, len(raw))
	for _, ra := range raw {
		attr, err := parseAttribute(ra, "seq")
		if err != nil {
			return nil, err
		}
		out = append(out, attr)
	}
	return out, nil
}

func parseInstances(raw map[string]rawAttribute) (map[string]schema.Attribute, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]schema.Attribute, len(raw))
	for name, ra := range raw {
		if err := validator.ValidateOne(name, validator.Identifier); err != nil {
			return nil, &kerr.SchemaError{Section: "instances", Reason: fmt.Sprintf("name %q: %v", name, err)}
		}
		ra.ID = name
		attr, err := parseAttribute(ra, "instances")
		if err != nil {
			return nil, err
		}
		out[name] = attr
	}
	return out, nil
}

func parseAttribute(raw rawAttribute, section string) (schema.Attribute, error) {
	slog.Default().Debug("parsing attribute", "section", section, "id", raw.ID, "type", raw.Type, "repeat", raw.Repeat)
	attr := schema.Attribute{
		DocRef:      schema.DocRef{},
		Doc:         schema.Doc{Description: raw.Doc},
		Repeat:      schema.RepeatNone,
		RepeatCount: string(raw.RepeatExpr),
		RepeatUntil: string(raw.RepeatUntil),
		If:          string(raw.If),
		Size:        string(raw.Size),
		SizeEOS:     raw.SizeEOS,
		Process:     raw.Process,
		Enum:        raw.Enum,
		Encoding:    raw.Encoding,
		Consume:     true,
		Include:     false,
		EosError:    true,
		Pos:         string(raw.Pos),
		IO:          string(raw.IO),
		Value:       string(raw.Value),
	}

	if raw.ID != "" {
		id, err := schema.IdentifierFromString(raw.ID)
		if err != nil {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: fmt.Sprintf("id: %v", err)}
		}
		attr.ID = id
	}

	if len(raw.DocRef) > 0 {
		_, docRef, err := parseDocAndRef("", raw.DocRef)
		if err != nil {
			return schema.Attribute{}, err
		}
		attr.DocRef = docRef
	}

	contents, err := contentsBytes(raw.Contents)
	if err != nil {
		return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: err.Error()}
	}
	attr.Contents = contents

	if raw.Type != "" {
		typ, err := schema.ParseType(raw.Type)
		if err != nil {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: fmt.Sprintf("type: %v", err)}
		}
		attr.Type = typ
	}

	switch raw.Repeat {
	case "":
		attr.Repeat = schema.RepeatNone
	case "eos":
		attr.Repeat = schema.RepeatEos
	case "expr":
		attr.Repeat = schema.RepeatExpr
		if attr.RepeatCount == "" {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: "repeat: expr requires repeat-expr"}
		}
	case "until":
		attr.Repeat = schema.RepeatUntil
		if attr.RepeatUntil == "" {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: "repeat: until requires repeat-until"}
		}
	default:
		return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: fmt.Sprintf("repeat: unsupported value %q", raw.Repeat)}
	}

	if raw.Process != "" {
		if err := validator.ValidateOne(raw.Process, validator.Process); err != nil {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: fmt.Sprintf("process: %v", err)}
		}
	}
	if raw.Enum != "" {
		if err := validator.ValidateOne(raw.Enum, validator.EnumName); err != nil {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: fmt.Sprintf("enum: %v", err)}
		}
	}

	if raw.PadRight != nil {
		b, err := toByte(*raw.PadRight)
		if err != nil {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: fmt.Sprintf("pad-right: %v", err)}
		}
		attr.PadRight = &b
	}
	if raw.Terminator != nil {
		b, err := toByte(*raw.Terminator)
		if err != nil {
			return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: fmt.Sprintf("terminator: %v", err)}
		}
		attr.Terminator = &b
	}
	if raw.Consume != nil {
		attr.Consume = *raw.Consume
	}
	if raw.Include != nil {
		attr.Include = *raw.Include
	}
	if raw.EosError != nil {
		attr.EosError = *raw.EosError
	}

	if attr.SizeEOS && attr.Size != "" {
		return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: "size and size-eos are mutually exclusive"}
	}
	if attr.Contents != nil && raw.Type != "" {
		return schema.Attribute{}, &kerr.SchemaError{Section: section, Reason: "contents and type are mutually exclusive"}
	}

	return attr, nil
}

func toByte(n int) (byte, error) {
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("value %d out of byte range", n)
	}
	return byte(n), nil
}

func parseEnums(raw map[string]map[string]string) (schema.Enums, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(schema.Enums, len(raw))
	for name, values := range raw {
		if err := validator.ValidateOne(name, validator.EnumName); err != nil {
			return nil, &kerr.SchemaError{Section: "enums", Reason: fmt.Sprintf("name %q: %v", name, err)}
		}
		enum := make(schema.Enum, len(values))
		for key, symbol := range values {
			n, err := parseEnumKey(key)
			if err != nil {
				return nil, &kerr.SchemaError{Section: "enums", Reason: fmt.Sprintf("%s: invalid key %q: %v", name, key, err)}
			}
			if n < 0 || n > 0xFFFFFFFF {
				return nil, &kerr.SchemaError{Section: "enums", Reason: fmt.Sprintf("%s: value %d out of unsigned 32-bit range", name, n)}
			}
			if err := validator.ValidateOne(symbol, validator.Identifier); err != nil {
				return nil, &kerr.SchemaError{Section: "enums", Reason: fmt.Sprintf("%s: symbol %q: %v", name, symbol, err)}
			}
			enum[n] = symbol
		}
		out[name] = enum
	}
	return out, nil
}
