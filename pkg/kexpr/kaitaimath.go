package kexpr

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// kaitaiMathLib declares kaitaiDiv/kaitaiMod: Kaitai's `/` and `%` follow
// Python's floor-division and sign-of-divisor modulo, which differ from
// CEL's truncating built-ins, so the transformer lowers them to these
// named functions instead of the native operators.
type kaitaiMathLib struct{}

func kaitaiMathFunctions() cel.EnvOption { return cel.Lib(&kaitaiMathLib{}) }

func (*kaitaiMathLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("kaitaiMod",
			cel.Overload("kaitai_mod_numeric", []*cel.Type{cel.DynType, cel.DynType}, cel.IntType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					x, ok1 := lhs.ConvertToType(types.IntType).(types.Int)
					y, ok2 := rhs.ConvertToType(types.IntType).(types.Int)
					if !ok1 || !ok2 {
						return types.NewErr("arguments to kaitaiMod must be integers")
					}
					if y == 0 {
						return types.NewErr("division by zero in modulo operation")
					}
					r := int64(x) % int64(y)
					if r != 0 && (r < 0) != (int64(y) < 0) {
						r += int64(y)
					}
					return types.Int(r)
				}))),
		cel.Function("kaitaiDiv",
			cel.Overload("kaitai_div_numeric", []*cel.Type{cel.DynType, cel.DynType}, cel.IntType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					x, ok1 := lhs.ConvertToType(types.IntType).(types.Int)
					y, ok2 := rhs.ConvertToType(types.IntType).(types.Int)
					if !ok1 || !ok2 {
						return types.NewErr("arguments to kaitaiDiv must be integers")
					}
					if y == 0 {
						return types.NewErr("division by zero")
					}
					dividend, divisor := int64(x), int64(y)
					result := dividend / divisor
					if (dividend < 0) != (divisor < 0) && dividend%divisor != 0 {
						result--
					}
					return types.Int(result)
				}))),
	}
}

func (*kaitaiMathLib) ProgramOptions() []cel.ProgramOption { return nil }
