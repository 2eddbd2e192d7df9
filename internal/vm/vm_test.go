package vm

import (
	"bytes"
	"strings"
	"testing"

	"tradedsl/internal/bytecode"
	"tradedsl/internal/compiler"
	"tradedsl/internal/parser"
)

func mustCompile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	prog, err := parser.New(src).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return chunk
}

func runAgainst(t *testing.T, src string, ctx Context, provider FunctionProvider) string {
	t.Helper()
	chunk := mustCompile(t, src)
	var buf bytes.Buffer
	machine := New(provider, WriterSink{W: &buf})
	prog, _ := parser.New(src).Parse()
	if err := machine.Run(chunk, ctx, prog.Symbol); err != nil {
		t.Fatalf("run error: %v", err)
	}
	return buf.String()
}

func TestBuyWhenConditionTrue(t *testing.T) {
	out := runAgainst(t, `
symbol "AAPL"
if close > 10 then buy 1 end
`, Context{Close: 20}, nil)
	if out != `SYMBOL "AAPL": BUY 1`+"\n" {
		t.Errorf("got %q", out)
	}
}

func TestNoActionWhenConditionFalse(t *testing.T) {
	out := runAgainst(t, `
symbol "AAPL"
if close > 10 then buy 1 end
`, Context{Close: 5}, nil)
	if out != "" {
		t.Errorf("got %q, want empty output", out)
	}
}

func TestSellAction(t *testing.T) {
	out := runAgainst(t, `
symbol "MSFT"
if close < open then sell 3 end
`, Context{Open: 10, Close: 5}, nil)
	if out != `SYMBOL "MSFT": SELL 3`+"\n" {
		t.Errorf("got %q", out)
	}
}

func TestMultipleRulesIndependentlyEvaluated(t *testing.T) {
	out := runAgainst(t, `
symbol "X"
if close > 100 then buy 1 end
if close < 100 then sell 2 end
`, Context{Close: 50}, nil)
	if out != `SYMBOL "X": SELL 2`+"\n" {
		t.Errorf("got %q", out)
	}
}

func TestLogicalAndOr(t *testing.T) {
	out := runAgainst(t, `
symbol "X"
if close > 10 and volume > 100 then buy 1 end
`, Context{Close: 20, Volume: 200}, nil)
	if !strings.Contains(out, "BUY 1") {
		t.Errorf("got %q, want a BUY", out)
	}

	out = runAgainst(t, `
symbol "X"
if close > 10 or volume > 100 then buy 1 end
`, Context{Close: 1, Volume: 200}, nil)
	if !strings.Contains(out, "BUY 1") {
		t.Errorf("got %q, want a BUY via or", out)
	}
}

func TestNotOperator(t *testing.T) {
	out := runAgainst(t, `
symbol "X"
if not (close > 10) then buy 1 end
`, Context{Close: 5}, nil)
	if !strings.Contains(out, "BUY 1") {
		t.Errorf("got %q, want a BUY", out)
	}
}

func TestDivisionByZeroIsNonTrapping(t *testing.T) {
	out := runAgainst(t, `
symbol "X"
if close / 0 > 0 then buy 1 end
`, Context{Close: 1}, nil)
	if !strings.Contains(out, "BUY 1") {
		t.Errorf("got %q, want a BUY since 1/0 == +Inf > 0", out)
	}
}

func TestStubProviderRSIIsFifty(t *testing.T) {
	out := runAgainst(t, `
symbol "X"
if rsi(14) == 50 then buy 1 end
`, Context{}, nil)
	if !strings.Contains(out, "BUY 1") {
		t.Errorf("got %q, want a BUY since StubProvider.RSI always returns 50", out)
	}
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	prog, err := parser.New(`
symbol "X"
if sma(close) > 0 then buy 1 end
`).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	machine := New(nil, WriterSink{W: &bytes.Buffer{}})
	err = machine.Run(chunk, Context{}, prog.Symbol)
	if err == nil || !strings.Contains(err.Error(), "sma expects 2 args") {
		t.Fatalf("got %v, want an arity-mismatch runtime error", err)
	}
}

func TestAllContextVariablesLoad(t *testing.T) {
	out := runAgainst(t, `
symbol "X"
if open > 0 and high > 0 and low > 0 and close > 0 and volume > 0 and date > 0 and time > 0 and hour > 0 and minute > 0 and weekday > 0 then buy 1 end
`, Context{Open: 1, High: 1, Low: 1, Close: 1, Volume: 1, Date: 1, Time: 1, Hour: 1, Minute: 1, Weekday: 1}, nil)
	if !strings.Contains(out, "BUY 1") {
		t.Errorf("got %q, want a BUY with every context field nonzero", out)
	}
}

type countingProvider struct{ calls int }

func (c *countingProvider) SMA(series, _ float64) float64 { c.calls++; return series }
func (c *countingProvider) EMA(series, _ float64) float64 { c.calls++; return series }
func (c *countingProvider) RSI(_ float64) float64         { c.calls++; return 50 }

func TestLogicalOperatorsAreNotShortCircuited(t *testing.T) {
	p := &countingProvider{}
	runAgainst(t, `
symbol "X"
if close > 10 and sma(close, 5) > 0 then buy 1 end
`, Context{Close: 1}, p)
	if p.calls != 1 {
		t.Errorf("got %d calls, want 1: and evaluates both sides regardless of the left operand", p.calls)
	}
}
