package kexpr

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// bitwiseLib declares the CEL functions the toCEL visitor lowers Kaitai's
// bitwise operators (&, |, ^, <<, >>, ~) to. CEL has no native bitwise
// operators, so every such operator becomes one of these calls.
type bitwiseLib struct{}

func bitwiseFunctions() cel.EnvOption { return cel.Lib(&bitwiseLib{}) }

func asUint64(v ref.Val) (uint64, bool) {
	switch x := v.(type) {
	case types.Int:
		return uint64(x), true
	case types.Uint:
		return uint64(x), true
	case types.Double:
		return uint64(x), true
	default:
		return 0, false
	}
}

func bitwiseOp(lhs, rhs ref.Val, op func(a, b uint64) uint64) ref.Val {
	l, lok := asUint64(lhs)
	r, rok := asUint64(rhs)
	if !lok || !rok {
		return types.NewErr("bitwise arguments must be numeric, got %T and %T", lhs.Value(), rhs.Value())
	}
	result := op(l, r)
	if result <= uint64(int64(^uint64(0)>>1)) {
		return types.Int(result)
	}
	return types.Uint(result)
}

func (*bitwiseLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("bitAnd",
			cel.Overload("bitand_numeric", []*cel.Type{cel.DynType, cel.DynType}, cel.DynType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return bitwiseOp(lhs, rhs, func(a, b uint64) uint64 { return a & b })
				}))),
		cel.Function("bitOr",
			cel.Overload("bitor_numeric", []*cel.Type{cel.DynType, cel.DynType}, cel.DynType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return bitwiseOp(lhs, rhs, func(a, b uint64) uint64 { return a | b })
				}))),
		cel.Function("bitXor",
			cel.Overload("bitxor_numeric", []*cel.Type{cel.DynType, cel.DynType}, cel.DynType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return bitwiseOp(lhs, rhs, func(a, b uint64) uint64 { return a ^ b })
				}))),
		cel.Function("bitNot",
			cel.Overload("bitnot_numeric", []*cel.Type{cel.DynType}, cel.DynType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					u, ok := asUint64(v)
					if !ok {
						return types.NewErr("bitNot argument must be numeric, got %T", v.Value())
					}
					return types.Int(^u)
				}))),
		cel.Function("bitShiftLeft",
			cel.Overload("bitshiftleft_numeric", []*cel.Type{cel.DynType, cel.IntType}, cel.DynType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					l, ok := asUint64(lhs)
					shift, ok2 := rhs.(types.Int)
					if !ok || !ok2 || shift < 0 {
						return types.NewErr("invalid arguments to bitShiftLeft")
					}
					return types.Int(l << uint(shift))
				}))),
		cel.Function("bitShiftRight",
			cel.Overload("bitshiftright_numeric", []*cel.Type{cel.DynType, cel.IntType}, cel.DynType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					l, ok := asUint64(lhs)
					shift, ok2 := rhs.(types.Int)
					if !ok || !ok2 || shift < 0 {
						return types.NewErr("invalid arguments to bitShiftRight")
					}
					return types.Int(l >> uint(shift))
				}))),
	}
}

func (*bitwiseLib) ProgramOptions() []cel.ProgramOption { return nil }
