package expr_test

import (
	"testing"

	"github.com/jetsetilly/retrodbg/cpukind"
	"github.com/jetsetilly/retrodbg/expr"
	"github.com/jetsetilly/retrodbg/memmap"
)

type fakeCpu struct {
	regs map[string]int64
}

func (f fakeCpu) Kind() cpukind.Kind       { return cpukind.NesCpu }
func (f fakeCpu) PC() uint32               { return uint32(f.regs["PC"]) }
func (f fakeCpu) StackPointer() uint32     { return uint32(f.regs["SP"]) }
func (f fakeCpu) Register(name string) cpukind.RegisterValue {
	v, ok := f.regs[name]
	return cpukind.RegisterValue{Value: v, IsValid: ok}
}

type fakeBus struct {
	mem map[int32]uint8
}

func (b fakeBus) Resolve(addr uint32) (int, int32) {
	return int(memmap.RegionWorkRAM), int32(addr)
}

func (b fakeBus) PeekByte(region int, offset int32) (uint8, bool) {
	v, ok := b.mem[offset]
	return v, ok
}

func evalStr(t *testing.T, src string, ctx expr.Context) expr.Result {
	t.Helper()
	data, err := expr.Compile(src)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return expr.Eval(data, ctx)
}

func TestArithmeticPrecedence(t *testing.T) {
	ctx := expr.Context{}
	r := evalStr(t, "2 + 3 * 4", ctx)
	if r.Kind != expr.Numeric || r.Value != 14 {
		t.Fatalf("got %+v", r)
	}

	r = evalStr(t, "(2 + 3) * 4", ctx)
	if r.Value != 20 {
		t.Fatalf("got %+v", r)
	}

	r = evalStr(t, "2 ** 3 ** 2", ctx)
	if r.Value != 512 { // right-associative: 2**(3**2)
		t.Fatalf("got %+v", r)
	}
}

func TestHexAndBinaryLiterals(t *testing.T) {
	ctx := expr.Context{}
	r := evalStr(t, "$FF", ctx)
	if r.Value != 255 {
		t.Fatalf("got %+v", r)
	}
	r = evalStr(t, "%1010", ctx)
	if r.Value != 10 {
		t.Fatalf("got %+v", r)
	}
}

func TestLogicalAndComparison(t *testing.T) {
	ctx := expr.Context{Cpu: fakeCpu{regs: map[string]int64{"A": 0x80}}}
	r := evalStr(t, "A > $7F && A < $FF", ctx)
	if r.Kind != expr.Boolean || r.Value != 1 {
		t.Fatalf("got %+v", r)
	}
}

func TestMemoryDeref(t *testing.T) {
	bus := fakeBus{mem: map[int32]uint8{0x10: 0x34, 0x11: 0x12}}
	ctx := expr.Context{Bus: bus}

	r := evalStr(t, "[$10]", ctx)
	if r.Value != 0x34 {
		t.Fatalf("got %+v", r)
	}

	r = evalStr(t, "{$10}", ctx)
	if r.Value != 0x1234 {
		t.Fatalf("little-endian 2-byte deref got %+v", r)
	}
}

func TestDivideByZero(t *testing.T) {
	ctx := expr.Context{}
	r := evalStr(t, "1 / 0", ctx)
	if r.Kind != expr.DivideByZero {
		t.Fatalf("got %+v", r)
	}
	if r.Matched() {
		t.Fatalf("DivideByZero must never be treated as a match")
	}
}

func TestUnresolvedLabelIsOutOfScope(t *testing.T) {
	ctx := expr.Context{}
	r := evalStr(t, "SomeDeletedLabel", ctx)
	if r.Kind != expr.OutOfScope {
		t.Fatalf("got %+v", r)
	}
	if r.Matched() {
		t.Fatalf("OutOfScope must never be treated as a match")
	}
}

func TestContextTokens(t *testing.T) {
	ctx := expr.Context{
		HasOp: true,
		Op:    memmap.Operation{Addr: 0x200, Value: 0x80, Kind: memmap.OpWrite},
	}
	r := evalStr(t, "iswrite && value > $7F", ctx)
	if !r.Matched() {
		t.Fatalf("expected match, got %+v", r)
	}
}

func TestMalformedExpressionIsInvalid(t *testing.T) {
	if _, err := expr.Compile("1 + "); err == nil {
		t.Fatalf("expected a compile error for a truncated expression")
	}
	if _, err := expr.Compile("(1 + 2"); err == nil {
		t.Fatalf("expected a compile error for a mismatched paren")
	}
}

func TestCacheReusesCompilation(t *testing.T) {
	c := expr.NewCache()

	d1, err := c.Get("A + 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d2, err := c.Get(" A + 1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d1.RPN) != len(d2.RPN) {
		t.Fatalf("expected normalised keys to share a cache entry")
	}

	if _, err := c.Get("1 +"); err == nil {
		t.Fatalf("expected the malformed expression to still report an error")
	}
	// second lookup should hit the cached sentinel and still report the error
	if _, err := c.Get("1 +"); err == nil {
		t.Fatalf("expected the cached sentinel to still report an error")
	}
}
