package interpreter

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/kbinterp/ksyinterp/pkg/kast"
	"github.com/kbinterp/ksyinterp/pkg/kerr"
	"github.com/kbinterp/ksyinterp/pkg/schema"
)

// readN reads n bytes, honoring eosError: true surfaces a short read as
// kerr.EndOfStream before ever touching the stream, false clamps n down to
// whatever remains. Checking availability up front (rather than reading
// and recovering from a failed read) keeps this independent of exactly how
// much a failed ReadBytes call leaves consumed.
func (rs *runState) readN(stream *kaitai.Stream, n int, attrID string, eosError bool) ([]byte, error) {
	pos, _ := stream.Pos()
	size, _ := stream.Size()
	avail := size - pos
	if int64(n) > avail {
		if eosError {
			return nil, &kerr.EndOfStream{Attr: attrID, Needed: int64(n), Available: avail}
		}
		n = int(avail)
	}
	if n <= 0 {
		return []byte{}, nil
	}
	return stream.ReadBytes(n)
}

func (rs *runState) evalInt(src string, scope *fieldScope) (int64, error) {
	v, err := rs.eval(src, scope)
	if err != nil {
		return 0, &kerr.ExpressionError{Expr: src, Cause: err}
	}
	return asInt64(v)
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func (rs *runState) lookupType(spec *schema.TypeSpec, name string) (*schema.TypeSpec, bool) {
	if ts, ok := spec.Types[name]; ok {
		return ts, true
	}
	if ts, ok := rs.interp.schema.Types[name]; ok {
		return ts, true
	}
	return nil, false
}

func (rs *runState) lookupEnum(spec *schema.TypeSpec, enumName string, value int64) (string, bool) {
	if name, ok := spec.Enums.Lookup(enumName, value); ok {
		return name, true
	}
	return rs.interp.schema.Enums.Lookup(enumName, value)
}

// readSeqAttribute evaluates attr's "if" guard and repeat wrapping, then
// delegates each individual element read to readOnce.
func (rs *runState) readSeqAttribute(ctx context.Context, attr schema.Attribute, spec *schema.TypeSpec, stream *kaitai.Stream, scope, root *fieldScope) (*kast.Node, any, bool, error) {
	if attr.If != "" {
		v, err := rs.eval(attr.If, scope)
		if err != nil {
			return nil, nil, false, &kerr.ExpressionError{Expr: attr.If, Cause: err}
		}
		ok, err := asBool(v)
		if err != nil {
			return nil, nil, false, err
		}
		if !ok {
			return nil, nil, false, nil
		}
	}

	switch attr.Repeat {
	case schema.RepeatNone:
		node, val, err := rs.readOnce(ctx, attr, spec, stream, scope, root)
		return node, val, true, err

	case schema.RepeatEos:
		wrapper := &kast.Node{NodeType: kast.TagArray}
		var values []any
		for {
			eof, _ := stream.EOF()
			if eof {
				break
			}
			child, val, err := rs.readOnce(ctx, attr, spec, stream, scope, root)
			if err != nil {
				return nil, nil, false, err
			}
			child.ID = attr.ID.String()
			wrapper.AddChild(child)
			values = append(values, val)
		}
		return wrapper, values, true, nil

	case schema.RepeatExpr:
		n, err := rs.evalInt(attr.RepeatCount, scope)
		if err != nil {
			return nil, nil, false, err
		}
		wrapper := &kast.Node{NodeType: kast.TagArray}
		values := make([]any, 0, n)
		for i := int64(0); i < n; i++ {
			child, val, err := rs.readOnce(ctx, attr, spec, stream, scope, root)
			if err != nil {
				return nil, nil, false, err
			}
			child.ID = attr.ID.String()
			wrapper.AddChild(child)
			values = append(values, val)
		}
		return wrapper, values, true, nil

	case schema.RepeatUntil:
		wrapper := &kast.Node{NodeType: kast.TagArray}
		var values []any
		for {
			child, val, err := rs.readOnce(ctx, attr, spec, stream, scope, root)
			if err != nil {
				return nil, nil, false, err
			}
			child.ID = attr.ID.String()
			wrapper.AddChild(child)
			values = append(values, val)
			scope.self = val
			cond, err := rs.eval(attr.RepeatUntil, scope)
			if err != nil {
				return nil, nil, false, &kerr.ExpressionError{Expr: attr.RepeatUntil, Cause: err}
			}
			stop, err := asBool(cond)
			if err != nil {
				return nil, nil, false, err
			}
			if stop {
				break
			}
		}
		scope.self = nil
		return wrapper, values, true, nil

	default:
		return nil, nil, false, &kerr.IntegrityError{Reason: fmt.Sprintf("unhandled repeat kind %v", attr.Repeat)}
	}
}

// readInstance evaluates a computed ("value") or positioned ("pos")
// instance; neither consumes the sequential cursor.
func (rs *runState) readInstance(ctx context.Context, name string, attr schema.Attribute, spec *schema.TypeSpec, stream *kaitai.Stream, scope, root *fieldScope) (*kast.Node, any, bool, error) {
	if attr.If != "" {
		v, err := rs.eval(attr.If, scope)
		if err != nil {
			return nil, nil, false, &kerr.ExpressionError{Expr: attr.If, Cause: err}
		}
		ok, err := asBool(v)
		if err != nil {
			return nil, nil, false, err
		}
		if !ok {
			return nil, nil, false, nil
		}
	}

	if attr.Value != "" {
		v, err := rs.eval(attr.Value, scope)
		if err != nil {
			return nil, nil, false, &kerr.ExpressionError{Expr: attr.Value, Cause: err}
		}
		return valueNode(v), v, true, nil
	}

	pos, err := rs.evalInt(attr.Pos, scope)
	if err != nil {
		return nil, nil, false, err
	}
	// attr.IO (an explicit substream reference) is not modeled separately;
	// "pos" always seeks within the document's own backing bytes.
	posStream := kaitai.NewStream(bytes.NewReader(rs.raw))
	if pos > 0 {
		if _, err := posStream.ReadBytes(int(pos)); err != nil {
			return nil, nil, false, &kerr.EndOfStream{Attr: name, Needed: pos, Available: int64(len(rs.raw))}
		}
	}
	node, val, err := rs.readOnce(ctx, attr, spec, posStream, scope, root)
	return node, val, true, err
}

// valueNode wraps a computed instance's result in a leaf node. Computed
// instances never touch the stream, so Data holds a textual rendering
// rather than a byte-exact wire representation.
func valueNode(v any) *kast.Node {
	switch val := v.(type) {
	case int64:
		n := &kast.Node{NodeType: kast.TagInteger, Data: []byte(strconv.FormatInt(val, 10))}
		return n
	case uint64:
		return &kast.Node{NodeType: kast.TagInteger, Data: []byte(strconv.FormatUint(val, 10))}
	case float64:
		return &kast.Node{NodeType: kast.TagInteger, Data: []byte(strconv.FormatFloat(val, 'g', -1, 64))}
	case bool:
		n := &kast.Node{NodeType: kast.TagInteger}
		if val {
			n.Data = []byte{1}
		} else {
			n.Data = []byte{0}
		}
		return n
	case string:
		n := &kast.Node{NodeType: kast.TagString, Data: []byte(val)}
		n.SetText(val)
		return n
	default:
		return &kast.Node{NodeType: kast.TagArray, Data: []byte(fmt.Sprint(val))}
	}
}

// readOnce reads a single element of attr (one iteration of whatever
// repeat wrapping the caller applies), checking in this order: fixed
// contents, a nested user type, then a primitive leaf. An attribute with
// no type token is read as a raw byte run bounded by size or size_eos.
// Fixed-width numeric types always read their own width; size and
// size_eos are not consulted for them.
func (rs *runState) readOnce(ctx context.Context, attr schema.Attribute, spec *schema.TypeSpec, stream *kaitai.Stream, scope, root *fieldScope) (*kast.Node, any, error) {
	id := attr.ID.String()

	if attr.Type == (schema.Type{}) {
		attr.Type.Pure.Kind = schema.KindByteArray
	}

	if attr.Contents != nil {
		raw, err := rs.readN(stream, len(attr.Contents), id, true)
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(raw, attr.Contents) {
			return nil, nil, &kerr.ContentsMismatch{Attr: id, Expected: attr.Contents, Got: raw}
		}
		return &kast.Node{NodeType: kast.TagArray, Data: raw}, raw, nil
	}

	if attr.Type.Pure.Kind == schema.KindUserType {
		return rs.readUserType(ctx, attr, spec, stream, scope, root)
	}

	return rs.readPrimitive(attr, spec, stream, scope)
}

func (rs *runState) readUserType(ctx context.Context, attr schema.Attribute, spec *schema.TypeSpec, stream *kaitai.Stream, scope, root *fieldScope) (*kast.Node, any, error) {
	id := attr.ID.String()
	nested, ok := rs.lookupType(spec, attr.Type.Pure.UserTypeName)
	if !ok {
		return nil, nil, &kerr.UnknownType{Name: attr.Type.Pure.UserTypeName}
	}
	// A nested type without its own meta.endian / meta.encoding inherits
	// the enclosing type's.
	inherited := *nested
	if inherited.Meta.Endian == schema.EndianDefault {
		inherited.Meta.Endian = spec.Meta.Endian
	}
	if inherited.Meta.Encoding == "" {
		inherited.Meta.Encoding = spec.Meta.Encoding
	}
	nested = &inherited

	switch {
	case attr.SizeEOS:
		raw, err := stream.ReadBytesFull()
		if err != nil {
			return nil, nil, &kerr.EndOfStream{Attr: id}
		}
		raw, err = rs.applyProcess(attr.Process, raw, scope)
		if err != nil {
			return nil, nil, err
		}
		sub := kaitai.NewStream(bytes.NewReader(raw))
		childScope := newFieldScope(scope, root, sub)
		node, err := rs.parseType(ctx, nested, sub, childScope, root)
		return node, childScope.asMap(), err

	case attr.Size != "":
		n, err := rs.evalInt(attr.Size, scope)
		if err != nil {
			return nil, nil, err
		}
		raw, err := rs.readN(stream, int(n), id, attr.EosError)
		if err != nil {
			return nil, nil, err
		}
		raw, err = rs.applyProcess(attr.Process, raw, scope)
		if err != nil {
			return nil, nil, err
		}
		sub := kaitai.NewStream(bytes.NewReader(raw))
		childScope := newFieldScope(scope, root, sub)
		node, err := rs.parseType(ctx, nested, sub, childScope, root)
		return node, childScope.asMap(), err

	default:
		childScope := newFieldScope(scope, root, stream)
		node, err := rs.parseType(ctx, nested, stream, childScope, root)
		return node, childScope.asMap(), err
	}
}

func (rs *runState) readPrimitive(attr schema.Attribute, spec *schema.TypeSpec, stream *kaitai.Stream, scope *fieldScope) (*kast.Node, any, error) {
	id := attr.ID.String()
	pure := attr.Type.Pure

	switch pure.Kind {
	case schema.KindUnsignedInt, schema.KindSignedInt, schema.KindFloat:
		raw, err := rs.readN(stream, pure.Width, id, true)
		if err != nil {
			return nil, nil, err
		}
		if attr.Process != "" {
			raw, err = rs.applyProcess(attr.Process, raw, scope)
			if err != nil {
				return nil, nil, err
			}
		}
		endian := resolveEndian(pure, spec.Meta.Endian)
		val, _ := decodeFixedWidth(raw, pure, endian)
		node := &kast.Node{NodeType: kast.TagInteger, Data: raw}
		if attr.Enum != "" {
			n, err := asInt64(val)
			if err == nil {
				if symbol, ok := rs.lookupEnum(spec, attr.Enum, n); ok {
					node.EnumName = symbol
				}
			}
		}
		return node, val, nil

	case schema.KindBool:
		raw, err := rs.readN(stream, 1, id, true)
		if err != nil {
			return nil, nil, err
		}
		return &kast.Node{NodeType: kast.TagInteger, Data: raw}, raw[0] != 0, nil

	case schema.KindBitSizedInt:
		endian := resolveEndian(pure, spec.Meta.Endian)
		var v uint64
		var err error
		if endian == schema.EndianBig {
			v, err = stream.ReadBitsIntBe(pure.Bits)
		} else {
			v, err = stream.ReadBitsIntLe(pure.Bits)
		}
		if err != nil {
			return nil, nil, &kerr.EndOfStream{Attr: id, Needed: int64(pure.Bits)}
		}
		node := &kast.Node{NodeType: kast.TagInteger, Data: encodeUint64(v)}
		return node, int64(v), nil

	case schema.KindString, schema.KindStringZ:
		raw, err := rs.readVarBytes(stream, attr, scope)
		if err != nil {
			return nil, nil, err
		}
		raw, err = rs.applyProcess(attr.Process, raw, scope)
		if err != nil {
			return nil, nil, err
		}
		trimmed := raw
		if attr.PadRight != nil {
			trimmed = trimPadRight(raw, *attr.PadRight)
		}
		encName := attr.Encoding
		if encName == "" {
			encName = spec.Meta.Encoding
		}
		decoded := decodeText(trimmed, encName)
		node := &kast.Node{NodeType: kast.TagString, Data: raw, Encoding: encName}
		node.SetText(decoded)
		return node, decoded, nil

	case schema.KindByteArray, schema.KindAny, schema.KindStruct:
		raw, err := rs.readVarBytes(stream, attr, scope)
		if err != nil {
			return nil, nil, err
		}
		raw, err = rs.applyProcess(attr.Process, raw, scope)
		if err != nil {
			return nil, nil, err
		}
		return &kast.Node{NodeType: kast.TagArray, Data: raw}, raw, nil

	case schema.KindIOStream:
		return &kast.Node{NodeType: kast.TagArray}, nil, nil

	default:
		return nil, nil, &kerr.IntegrityError{Reason: fmt.Sprintf("unhandled type kind %v", pure.Kind)}
	}
}

// readVarBytes resolves the byte run a string/byte-array attribute reads,
// following size_eos -> (strz bounded by size, stopping at whichever of
// size/terminator comes first) -> explicit size -> terminator ->
// full-read-to-eos.
func (rs *runState) readVarBytes(stream *kaitai.Stream, attr schema.Attribute, scope *fieldScope) ([]byte, error) {
	switch {
	case attr.SizeEOS:
		return stream.ReadBytesFull()
	case attr.Size != "" && attr.Type.Pure.Kind == schema.KindStringZ:
		n, err := rs.evalInt(attr.Size, scope)
		if err != nil {
			return nil, err
		}
		bounded, err := rs.readN(stream, int(n), attr.ID.String(), attr.EosError)
		if err != nil {
			return nil, err
		}
		term := byte(0)
		if attr.Terminator != nil {
			term = *attr.Terminator
		}
		return terminateWithin(bounded, term, attr.Include), nil
	case attr.Size != "":
		n, err := rs.evalInt(attr.Size, scope)
		if err != nil {
			return nil, err
		}
		return rs.readN(stream, int(n), attr.ID.String(), attr.EosError)
	case attr.Type.Pure.Kind == schema.KindStringZ:
		term := byte(0)
		if attr.Terminator != nil {
			term = *attr.Terminator
		}
		return stream.ReadBytesTerm(term, attr.Include, attr.Consume, attr.EosError)
	case attr.Terminator != nil:
		return stream.ReadBytesTerm(*attr.Terminator, attr.Include, attr.Consume, attr.EosError)
	default:
		return stream.ReadBytesFull()
	}
}

// terminateWithin truncates raw at the first occurrence of term, keeping
// the terminator itself only when include is set. The stream cursor has
// already advanced past the full bounded window regardless of where (or
// whether) the terminator was found within it.
func terminateWithin(raw []byte, term byte, include bool) []byte {
	idx := bytes.IndexByte(raw, term)
	if idx < 0 {
		return raw
	}
	if include {
		return raw[:idx+1]
	}
	return raw[:idx]
}

func trimPadRight(raw []byte, pad byte) []byte {
	end := len(raw)
	for end > 0 && raw[end-1] == pad {
		end--
	}
	return raw[:end]
}

func encodeUint64(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}
