package kexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// toCEL lowers a kexpr.Expr tree into a CEL program text. Most operators
// pass through to CEL's own (StdLib-provided) infix forms; bitwise
// operators and Kaitai's floor-division/sign-of-divisor modulo have no
// native CEL equivalent and are lowered to the named functions declared
// in bitwise.go and kaitaimath.go instead.
type toCEL struct {
	sb strings.Builder
}

func transformToCEL(e Expr) (string, error) {
	t := &toCEL{}
	if err := e.Accept(t); err != nil {
		return "", fmt.Errorf("kexpr: lowering to CEL: %w", err)
	}
	return t.sb.String(), nil
}

func (t *toCEL) VisitBoolLit(n *BoolLit) error {
	fmt.Fprintf(&t.sb, "%t", n.Value)
	return nil
}

func (t *toCEL) VisitIntLit(n *IntLit) error {
	fmt.Fprintf(&t.sb, "%d", n.Value)
	return nil
}

func (t *toCEL) VisitStrLit(n *StrLit) error {
	t.sb.WriteString(strconv.Quote(n.Value))
	return nil
}

func (t *toCEL) VisitFltLit(n *FltLit) error {
	fmt.Fprintf(&t.sb, "%g", n.Value)
	return nil
}

func (t *toCEL) VisitNullLit(*NullLit) error { t.sb.WriteString("null"); return nil }

func (t *toCEL) VisitId(n *Id) error { t.sb.WriteString(n.Name); return nil }

func (t *toCEL) VisitSelf(*Self) error { t.sb.WriteString("_"); return nil }
func (t *toCEL) VisitIo(*Io) error     { t.sb.WriteString("_io"); return nil }
func (t *toCEL) VisitParent(*Parent) error {
	t.sb.WriteString("_parent")
	return nil
}
func (t *toCEL) VisitRoot(*Root) error { t.sb.WriteString("_root"); return nil }
func (t *toCEL) VisitBytesRemaining(*BytesRemaining) error {
	t.sb.WriteString("_bytes_remaining")
	return nil
}

var bitwiseFuncName = map[BinOpOp]string{
	BinOpBitwiseAnd: "bitAnd",
	BinOpBitwiseOr:  "bitOr",
	BinOpBitwiseXor: "bitXor",
	BinOpLShift:     "bitShiftLeft",
	BinOpRShift:     "bitShiftRight",
	BinOpMod:        "kaitaiMod",
	BinOpDiv:        "kaitaiDiv",
}

var infixOperator = map[BinOpOp]string{
	BinOpAdd: " + ", BinOpSub: " - ", BinOpMul: " * ",
	BinOpEq: " == ", BinOpNotEq: " != ",
	BinOpLt: " < ", BinOpGt: " > ", BinOpLtEq: " <= ", BinOpGtEq: " >= ",
	BinOpAnd: " && ", BinOpOr: " || ",
}

func (t *toCEL) VisitBinOp(n *BinOp) error {
	if fn, ok := bitwiseFuncName[n.Op]; ok {
		t.sb.WriteString(fn)
		t.sb.WriteString("(")
		if err := n.Arg1.Accept(t); err != nil {
			return err
		}
		t.sb.WriteString(", ")
		if err := n.Arg2.Accept(t); err != nil {
			return err
		}
		t.sb.WriteString(")")
		return nil
	}
	op, ok := infixOperator[n.Op]
	if !ok {
		return fmt.Errorf("unsupported binary operator %s", n.Op)
	}
	t.sb.WriteString("(")
	if err := n.Arg1.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(op)
	if err := n.Arg2.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(")")
	return nil
}

func (t *toCEL) VisitUnOp(n *UnOp) error {
	switch n.Op {
	case UnOpNot:
		t.sb.WriteString("!")
		return n.Arg.Accept(t)
	case UnOpNeg:
		t.sb.WriteString("-")
		return n.Arg.Accept(t)
	case UnOpBitwiseNot:
		t.sb.WriteString("bitNot(")
		if err := n.Arg.Accept(t); err != nil {
			return err
		}
		t.sb.WriteString(")")
		return nil
	default:
		return fmt.Errorf("unsupported unary operator %s", n.Op)
	}
}

func (t *toCEL) VisitTernaryOp(n *TernaryOp) error {
	t.sb.WriteString("(")
	if err := n.Cond.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(" ? ")
	if err := n.IfTrue.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(" : ")
	if err := n.IfFalse.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(")")
	return nil
}

// ioAttrFunc maps _io.pos / _io.size / _io.eof to the stream-introspection
// functions the Activation supplies (see scope.go), since CEL has no
// notion of a Kaitai stream object.
var ioAttrFunc = map[string]string{
	"pos": "ioPos", "size": "ioSize", "eof": "ioEof", "is_eof": "ioEof",
}

func (t *toCEL) VisitAttr(n *Attr) error {
	if _, isIo := n.Value.(*Io); isIo {
		if fn, ok := ioAttrFunc[n.Name]; ok {
			t.sb.WriteString(fn)
			t.sb.WriteString("(")
			if err := n.Value.Accept(t); err != nil {
				return err
			}
			t.sb.WriteString(")")
			return nil
		}
	}
	if n.Name == "length" || n.Name == "size" {
		t.sb.WriteString("size(")
		if err := n.Value.Accept(t); err != nil {
			return err
		}
		t.sb.WriteString(")")
		return nil
	}
	if err := n.Value.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(".")
	t.sb.WriteString(n.Name)
	return nil
}

func (t *toCEL) VisitCall(n *Call) error {
	if err := n.Value.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString("(")
	for i, arg := range n.Args {
		if i > 0 {
			t.sb.WriteString(", ")
		}
		if err := arg.Accept(t); err != nil {
			return err
		}
	}
	t.sb.WriteString(")")
	return nil
}

func (t *toCEL) VisitArrayIdx(n *ArrayIdx) error {
	if err := n.Value.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString("[")
	if err := n.Idx.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString("]")
	return nil
}

func (t *toCEL) VisitCastToType(n *CastToType) error {
	t.sb.WriteString("castTo(")
	if err := n.Value.Accept(t); err != nil {
		return err
	}
	fmt.Fprintf(&t.sb, ", %s)", strconv.Quote(n.TypeName))
	return nil
}

func (t *toCEL) VisitSizeOf(n *SizeOf) error {
	t.sb.WriteString("sizeOf(")
	if err := n.Value.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(")")
	return nil
}

func (t *toCEL) VisitAlignOf(n *AlignOf) error {
	t.sb.WriteString("alignOf(")
	if err := n.Value.Accept(t); err != nil {
		return err
	}
	t.sb.WriteString(")")
	return nil
}
