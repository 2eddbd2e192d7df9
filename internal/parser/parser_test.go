package parser

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"tradedsl/internal/ast"
)

func assertParseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := New(src).Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func assertParseErr(t *testing.T, src, wantSubstring string) {
	t.Helper()
	_, err := New(src).Parse()
	if err == nil {
		t.Fatalf("expected parse error, got none")
	}
	if !strings.Contains(err.Error(), wantSubstring) {
		t.Errorf("got error %q, want it to contain %q", err.Error(), wantSubstring)
	}
}

func TestMinimalProgram(t *testing.T) {
	prog := assertParseOK(t, `symbol "AAPL"`)
	if prog.Symbol != `"AAPL"` {
		t.Errorf("got symbol %q, want %q", prog.Symbol, `"AAPL"`)
	}
	if len(prog.Rules) != 0 {
		t.Errorf("got %d rules, want 0", len(prog.Rules))
	}
}

func TestSingleRule(t *testing.T) {
	prog := assertParseOK(t, `
symbol "AAPL"
if close > 10 then buy 1 end
`)
	if len(prog.Rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(prog.Rules))
	}
	rule := prog.Rules[0]
	if rule.Action.Kind != ast.StmtBuy || rule.Action.Qty != 1 {
		t.Errorf("got action %+v, want buy 1", rule.Action)
	}
	bin, ok := rule.Condition.(*ast.Binary)
	if !ok || bin.Op != ast.Gt {
		t.Fatalf("got condition %#v, want a Gt Binary", rule.Condition)
	}
}

func TestMultipleRules(t *testing.T) {
	prog := assertParseOK(t, `
symbol "MSFT"
if close > 10 then buy 1 end
if close < 5 then sell 2 end
`)
	if len(prog.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(prog.Rules))
	}
	if prog.Rules[1].Action.Kind != ast.StmtSell {
		t.Errorf("got %v, want StmtSell", prog.Rules[1].Action.Kind)
	}
}

func TestOperatorPrecedenceAndGrammar(t *testing.T) {
	prog := assertParseOK(t, `
symbol "X"
if close > open and volume > 100 or not (rsi(14) < 30) then buy 1 end
`)
	cond := prog.Rules[0].Condition
	or, ok := cond.(*ast.Binary)
	if !ok || or.Op != ast.LogicalOr {
		t.Fatalf("top-level node is %#v, want a LogicalOr Binary", cond)
	}
	and, ok := or.Left.(*ast.Binary)
	if !ok || and.Op != ast.LogicalAnd {
		t.Fatalf("left of or is %#v, want a LogicalAnd Binary", or.Left)
	}
	not, ok := or.Right.(*ast.Unary)
	if !ok || not.Op != ast.LogicalNot {
		t.Fatalf("right of or is %#v, want a LogicalNot Unary", or.Right)
	}
}

func TestCallWithArgs(t *testing.T) {
	prog := assertParseOK(t, `
symbol "X"
if sma(close, 20) > ema(close, 10) then buy 1 end
`)
	bin := prog.Rules[0].Condition.(*ast.Binary)
	left, ok := bin.Left.(*ast.Call)
	if !ok || left.Name != "sma" || len(left.Args) != 2 {
		t.Fatalf("got %#v, want a 2-arg sma call", bin.Left)
	}
}

func TestArithmeticExpression(t *testing.T) {
	prog := assertParseOK(t, `
symbol "X"
if close - open > high / 2 then buy 1 end
`)
	bin := prog.Rules[0].Condition.(*ast.Binary)
	if bin.Op != ast.Gt {
		t.Fatalf("got top op %v, want Gt", bin.Op)
	}
	left := bin.Left.(*ast.Binary)
	if left.Op != ast.Sub {
		t.Errorf("got left op %v, want Sub", left.Op)
	}
	right := bin.Right.(*ast.Binary)
	if right.Op != ast.Div {
		t.Errorf("got right op %v, want Div", right.Op)
	}
}

func TestMissingSymbolKeyword(t *testing.T) {
	assertParseErr(t, `if close > 1 then buy 1 end`, "Expected 'symbol'")
}

func TestMissingThen(t *testing.T) {
	assertParseErr(t, `
symbol "X"
if close > 1 buy 1 end
`, "Expected 'then'")
}

func TestMissingEnd(t *testing.T) {
	assertParseErr(t, `
symbol "X"
if close > 1 then buy 1
`, "Expected 'end'")
}

func TestTrailingGarbageRejected(t *testing.T) {
	assertParseErr(t, `
symbol "X"
if close > 1 then buy 1 end
garbage
`, "Expected end of input")
}

func TestBareStringAcceptedSyntactically(t *testing.T) {
	// Parsing accepts a string literal in expression position; the
	// compiler is the phase that rejects it (spec §4.3).
	prog := assertParseOK(t, `
symbol "X"
if "foo" then buy 1 end
`)
	if _, ok := prog.Rules[0].Condition.(*ast.String); !ok {
		t.Fatalf("got %#v, want *ast.String", prog.Rules[0].Condition)
	}
}

func TestUnterminatedStringSurfacesAsLexFault(t *testing.T) {
	assertParseErr(t, `symbol "AAPL`, "token: Unterminated string")
}

func TestUnexpectedCharacterSurfacesAsLexFault(t *testing.T) {
	assertParseErr(t, `
symbol "X"
if close = 1 then buy 1 end
`, "token: Unexpected character")
}

func TestNonAssociativeComparison(t *testing.T) {
	assertParseErr(t, `
symbol "X"
if close > open > high then buy 1 end
`, "Expected 'then'")
}

func TestFullProgramStructure(t *testing.T) {
	got := assertParseOK(t, `
symbol "AAPL"
if close > 10 then buy 1 end
`)
	want := &ast.Program{
		Symbol: `"AAPL"`,
		Rules: []ast.Rule{{
			Condition: &ast.Binary{
				Op:    ast.Gt,
				Left:  &ast.Ident{Name: "close"},
				Right: &ast.Number{Value: 10},
			},
			Action: ast.Stmt{Kind: ast.StmtBuy, Qty: 1},
		}},
	}
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("AST mismatch:\n%s", strings.Join(diff, "\n"))
	}
}
