package interpreter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// applyProcess runs attr.Process against raw bytes already read from the
// stream, before they are reinterpreted as the attribute's declared type.
// The byte-transform primitives (XOR, zlib inflate, bit rotation) are the
// runtime library's own — not reimplemented here — since process specs
// describe exactly the transforms that library already exports.
func (rs *runState) applyProcess(spec string, raw []byte, scope *fieldScope) ([]byte, error) {
	if spec == "" {
		return raw, nil
	}
	if spec == "zlib" {
		return kaitai.ProcessZlib(raw)
	}
	name, argSrc, err := splitProcessSpec(spec)
	if err != nil {
		return nil, err
	}
	switch name {
	case "xor":
		key, err := rs.processArgBytes(argSrc, scope)
		if err != nil {
			return nil, fmt.Errorf("process xor: %w", err)
		}
		return kaitai.ProcessXOR(raw, key), nil
	case "rol":
		n, err := rs.processArgInt(argSrc, scope)
		if err != nil {
			return nil, fmt.Errorf("process rol: %w", err)
		}
		return kaitai.ProcessRotateLeft(raw, int(n)), nil
	case "ror":
		n, err := rs.processArgInt(argSrc, scope)
		if err != nil {
			return nil, fmt.Errorf("process ror: %w", err)
		}
		return kaitai.ProcessRotateRight(raw, int(n)), nil
	default:
		return nil, fmt.Errorf("unknown process function: %s", name)
	}
}

// splitProcessSpec extracts "xor", "key" from "xor(key)".
func splitProcessSpec(spec string) (name, arg string, err error) {
	open := strings.IndexByte(spec, '(')
	closeIdx := strings.LastIndexByte(spec, ')')
	if open < 0 || closeIdx < open {
		return "", "", fmt.Errorf("malformed process spec %q", spec)
	}
	return strings.TrimSpace(spec[:open]), strings.TrimSpace(spec[open+1 : closeIdx]), nil
}

// processArgInt evaluates a process argument as an integer, either a bare
// integer literal (0x5F, 3) or an expression resolved against scope.
func (rs *runState) processArgInt(argSrc string, scope *fieldScope) (int64, error) {
	if n, err := strconv.ParseInt(argSrc, 0, 64); err == nil {
		return n, nil
	}
	v, err := rs.eval(argSrc, scope)
	if err != nil {
		return 0, err
	}
	return asInt64(v)
}

// processArgBytes evaluates a process argument as a byte key: a single
// integer becomes a one-byte key, repeated cyclically by ProcessXOR.
func (rs *runState) processArgBytes(argSrc string, scope *fieldScope) ([]byte, error) {
	n, err := rs.processArgInt(argSrc, scope)
	if err != nil {
		return nil, err
	}
	return []byte{byte(n)}, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
