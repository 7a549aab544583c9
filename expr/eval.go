package expr

import (
	"github.com/jetsetilly/retrodbg/cpukind"
	"github.com/jetsetilly/retrodbg/memmap"
)

// ResultKind classifies the outcome of evaluating a compiled expression.
// Any kind other than Numeric/Boolean means the condition did not -
// indeed, per spec.md §4.1, *could* not - produce a usable value, and a
// breakpoint guarded by it must be treated as not matching.
type ResultKind int

const (
	Invalid ResultKind = iota
	Numeric
	Boolean
	DivideByZero
	OutOfScope
)

// Result is the outcome of Eval.
type Result struct {
	Value int64
	Kind  ResultKind
}

// Matched reports whether this result should be treated as a firing
// condition: a Boolean true, or a non-zero Numeric value. Any other kind
// - including DivideByZero and OutOfScope - is conservatively false, per
// spec.md §4.1's "the caller decides whether to treat the expression as
// true (the conservative choice...)".
func (r Result) Matched() bool {
	switch r.Kind {
	case Boolean, Numeric:
		return r.Value != 0
	}
	return false
}

// Context supplies everything a compiled expression might reference:
// the CPU/PPU register table (via cpukind.EmulatedCpu), the memory bus
// for dereferences, the access that triggered evaluation (for the
// iswrite/isread/isdma/isdummy/value/address tokens), and a label
// resolver.
type Context struct {
	Cpu          cpukind.EmulatedCpu
	Bus          cpukind.MemoryBus
	Op           memmap.Operation
	HasOp        bool
	ResolveLabel func(name string) (memmap.AddressInfo, bool)
}

const maxStack = 64

// Eval interprets a compiled RPN sequence as a stack machine, per
// spec.md §4.1. The value stack has fixed capacity; an expression that
// overflows it (malformed compiled data, or a pathologically nested
// operand) yields Invalid rather than panicking or growing unbounded -
// the emulation thread must never be taken down by a bad condition.
func Eval(d Data, ctx Context) Result {
	if d.Invalid() {
		return Result{Kind: Invalid}
	}

	var stack [maxStack]int64
	sp := 0
	topKind := Numeric // kind of the value most recently pushed

	push := func(v int64) bool {
		if sp >= maxStack {
			return false
		}
		stack[sp] = v
		sp++
		return true
	}
	pop := func() (int64, bool) {
		if sp == 0 {
			return 0, false
		}
		sp--
		return stack[sp], true
	}

	for _, t := range d.RPN {
		switch t.Op {
		case opConst:
			if !push(t.IntValue) {
				return Result{Kind: Invalid}
			}
			topKind = Numeric

		case opName:
			v, kind := evalName(t, ctx)
			if kind != Numeric && kind != Boolean {
				return Result{Kind: kind}
			}
			if !push(v) {
				return Result{Kind: Invalid}
			}
			topKind = kind

		case opDeref1, opDeref2, opDeref4:
			addr, ok := pop()
			if !ok {
				return Result{Kind: Invalid}
			}
			width := 1
			if t.Op == opDeref2 {
				width = 2
			} else if t.Op == opDeref4 {
				width = 4
			}
			v, ok := derefLittleEndian(ctx, addr, width)
			if !ok {
				return Result{Kind: Invalid}
			}
			if !push(v) {
				return Result{Kind: Invalid}
			}
			topKind = Numeric

		case opNeg:
			v, ok := pop()
			if !ok || !push(-v) {
				return Result{Kind: Invalid}
			}
			topKind = Numeric
		case opNot:
			v, ok := pop()
			if !ok {
				return Result{Kind: Invalid}
			}
			if v == 0 {
				push(1)
			} else {
				push(0)
			}
			topKind = Boolean
		case opBitNot:
			v, ok := pop()
			if !ok || !push(^v) {
				return Result{Kind: Invalid}
			}
			topKind = Numeric

		case opAdd, opSub, opMul, opDiv, opMod, opBitAnd, opBitOr, opBitXor,
			opShl, opShr, opEq, opNe, opLt, opLe, opGt, opGe, opLogAnd, opLogOr, opPow:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return Result{Kind: Invalid}
			}
			res, kind := evalBinary(t.Op, a, b)
			if kind != Numeric && kind != Boolean {
				return Result{Kind: kind}
			}
			if !push(res) {
				return Result{Kind: Invalid}
			}
			topKind = kind

		default:
			return Result{Kind: Invalid}
		}
	}

	if sp != 1 {
		return Result{Kind: Invalid}
	}

	v := stack[0]
	return Result{Value: v, Kind: topKind}
}

func evalBinary(op opCode, a, b int64) (int64, ResultKind) {
	switch op {
	case opAdd:
		return a + b, Numeric
	case opSub:
		return a - b, Numeric
	case opMul:
		return a * b, Numeric
	case opDiv:
		if b == 0 {
			return 0, DivideByZero
		}
		return a / b, Numeric
	case opMod:
		if b == 0 {
			return 0, DivideByZero
		}
		return a % b, Numeric
	case opPow:
		return ipow(a, b), Numeric
	case opBitAnd:
		return a & b, Numeric
	case opBitOr:
		return a | b, Numeric
	case opBitXor:
		return a ^ b, Numeric
	case opShl:
		return a << uint(b), Numeric
	case opShr:
		return a >> uint(b), Numeric
	case opEq:
		return boolInt(a == b), Boolean
	case opNe:
		return boolInt(a != b), Boolean
	case opLt:
		return boolInt(a < b), Boolean
	case opLe:
		return boolInt(a <= b), Boolean
	case opGt:
		return boolInt(a > b), Boolean
	case opGe:
		return boolInt(a >= b), Boolean
	case opLogAnd:
		return boolInt(a != 0 && b != 0), Boolean
	case opLogOr:
		return boolInt(a != 0 || b != 0), Boolean
	}
	return 0, Invalid
}

func ipow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	var result int64 = 1
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// evalName resolves a bare identifier: first as a memory-operation
// context token, then as a CPU/PPU register, then as a label. This
// ordering matches the teacher's precedence of built-in targets over
// user-defined symbols (see debugger/breakpoints.go's "PC"/"BANK"
// built-in targets).
func evalName(t Token, ctx Context) (int64, ResultKind) {
	switch t.Name {
	case "ISWRITE":
		return boolInt(ctx.HasOp && ctx.Op.Kind.IsWrite()), Boolean
	case "ISREAD":
		return boolInt(ctx.HasOp && !ctx.Op.Kind.IsWrite() && !ctx.Op.Kind.IsExec()), Boolean
	case "ISDMA":
		return boolInt(ctx.HasOp && ctx.Op.Kind.IsDMA()), Boolean
	case "ISDUMMY":
		return boolInt(ctx.HasOp && ctx.Op.Kind.IsDummy()), Boolean
	case "VALUE":
		if !ctx.HasOp {
			return 0, OutOfScope
		}
		return int64(ctx.Op.Value), Numeric
	case "ADDRESS":
		if !ctx.HasOp {
			return 0, OutOfScope
		}
		return int64(ctx.Op.Addr), Numeric
	}

	if ctx.Cpu != nil {
		if rv := ctx.Cpu.Register(t.Name); rv.IsValid {
			return rv.Value, Numeric
		}
	}

	if ctx.ResolveLabel != nil {
		if ai, ok := ctx.ResolveLabel(t.Name); ok {
			return int64(ai.Offset), Numeric
		}
	}

	return 0, OutOfScope
}

func derefLittleEndian(ctx Context, addr int64, width int) (int64, bool) {
	if ctx.Bus == nil {
		return 0, false
	}

	region, offset := ctx.Bus.Resolve(uint32(addr))
	var v int64
	for i := 0; i < width; i++ {
		b, ok := ctx.Bus.PeekByte(region, offset+int32(i))
		if !ok {
			// out-of-range memory dereference: spec.md §7 says read
			// returns 0 and the overall result is flagged Invalid.
			return 0, false
		}
		v |= int64(b) << uint(8*i)
	}
	return v, true
}
