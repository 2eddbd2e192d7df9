// Command tradedsl parses, compiles, and executes a rule-DSL source
// file against one or more candle contexts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"tradedsl/internal/ast"
	"tradedsl/internal/batch"
	"tradedsl/internal/bytecode"
	"tradedsl/internal/compiler"
	"tradedsl/internal/indicator"
	"tradedsl/internal/langerr"
	"tradedsl/internal/logx"
	"tradedsl/internal/parser"
	"tradedsl/internal/vm"
)

// Exit codes distinguish a static fault (lex/parse/compile) from a
// runtime fault, so a batch caller can tell "the rule is broken" from
// "this candle triggered a fault".
const (
	exitOK      = 0
	exitStatic  = 1
	exitRuntime = 2
)

func main() {
	os.Exit(run())
}

// run implements the whole CLI and returns an exit code rather than
// calling os.Exit itself, so testscript.RunMain can register it as the
// tradedsl command that the scripts in testdata/script exec.
func run() int {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	var (
		dumpAST      = fs.Bool("dump-ast", false, "print the parsed AST and exit without compiling")
		dumpBytecode = fs.Bool("dump-bytecode", false, "print the compiled bytecode and exit without running")
		contextPath  = fs.String("context", "", "path to a JSON file holding one candle context")
		batchPath    = fs.String("batch", "", "path to a JSON file holding an array of candle contexts")
		workers      = fs.Int("workers", 4, "max concurrent VMs when -batch is set")
		stateful     = fs.Bool("stateful-indicators", false, "use the stateful SMA/EMA/RSI reference provider instead of the pass-through stub")
		colorMode    = fs.String("color", "auto", "colorize trade output: auto, always, never")
		logLevel     = fs.String("log-level", "info", "debug, info, warn, error")
		debug        = fs.Bool("debug", false, "print the full cause chain (via github.com/pkg/errors) for a wrapped diagnostic instead of its terse message")
	)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <source.rule>\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return exitStatic
	}
	logx.Setup(*logLevel)

	if fs.NArg() != 1 {
		fs.Usage()
		return exitStatic
	}
	sourcePath := fs.Arg(0)

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		reportErr(err, *debug)
		return exitStatic
	}

	prog, err := parser.New(string(source)).Parse()
	if err != nil {
		reportErr(err, *debug)
		return exitStatic
	}

	if *dumpAST {
		dumpProgram(os.Stdout, prog)
		return exitOK
	}

	chunk, err := compiler.Compile(prog)
	if err != nil {
		reportErr(err, *debug)
		return exitStatic
	}

	if *dumpBytecode {
		dumpChunk(os.Stdout, chunk)
		return exitOK
	}

	var provider vm.FunctionProvider
	if *stateful {
		provider = indicator.NewProvider()
	}

	colorize := shouldColorize(*colorMode)
	sink := vm.WriterSink{W: os.Stdout}

	switch {
	case *batchPath != "":
		contexts, err := readContexts(*batchPath)
		if err != nil {
			reportErr(err, *debug)
			return exitStatic
		}
		results, err := batch.Run(chunk, contexts, prog.Symbol, provider, colorSink{sink, colorize}, *workers)
		for _, r := range results {
			if r.Err != nil {
				logx.Errorf("context %d (%s): %v", r.Index, r.Timestamp, r.Err)
			}
		}
		if err != nil {
			return exitRuntime
		}
		logx.Infof("processed %s contexts", humanize.Comma(int64(len(results))))

	case *contextPath != "":
		ctx, err := readContext(*contextPath)
		if err != nil {
			reportErr(err, *debug)
			return exitStatic
		}
		if err := runOne(chunk, ctx, prog.Symbol, provider, sink, colorize); err != nil {
			reportErr(err, *debug)
			return exitRuntime
		}

	default:
		// Without -context, run against the built-in example candle row.
		example := vm.Context{Open: 100, High: 110, Low: 95, Close: 108, Volume: 1000000,
			Date: 20251117, Time: 940, Hour: 9, Minute: 40, Weekday: 1}
		if err := runOne(chunk, example, prog.Symbol, provider, sink, colorize); err != nil {
			reportErr(err, *debug)
			return exitRuntime
		}
	}

	return exitOK
}

// reportErr logs err's terse message at Error level. When debug is
// set and err is a *langerr.Error wrapping a lower-phase cause (see
// langerr.Wrap), it instead prints the cause with %+v, which
// github.com/pkg/errors renders as the message plus a full stack
// trace from where the cause was wrapped.
func reportErr(err error, debug bool) {
	var le *langerr.Error
	if debug && errors.As(err, &le) && le.Cause != nil {
		fmt.Fprintf(os.Stderr, "%s\ncaused by: %+v\n", le.Error(), le.Cause)
		return
	}
	logx.Errorf("error: %v", err)
}

func runOne(chunk *bytecode.Chunk, ctx vm.Context, symbol string, provider vm.FunctionProvider, sink vm.TradeSink, colorize bool) error {
	machine := vm.New(provider, colorSink{sink, colorize})
	return machine.Run(chunk, ctx, symbol)
}

// colorSink wraps a TradeSink to prefix buy/sell lines with an ANSI
// color when writing to an interactive terminal; it defers the actual
// line rendering to the wrapped sink and only adds a color code before
// and a reset code after, written directly to stdout, since WriterSink owns the
// line format spec's wire contract fixes.
type colorSink struct {
	vm.TradeSink
	colorize bool
}

func (c colorSink) Buy(symbol string, qty int32) {
	if c.colorize {
		fmt.Print("\x1b[32m")
	}
	c.TradeSink.Buy(symbol, qty)
	if c.colorize {
		fmt.Print("\x1b[0m")
	}
}

func (c colorSink) Sell(symbol string, qty int32) {
	if c.colorize {
		fmt.Print("\x1b[31m")
	}
	c.TradeSink.Sell(symbol, qty)
	if c.colorize {
		fmt.Print("\x1b[0m")
	}
}

func shouldColorize(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd())
	}
}

func readContext(path string) (vm.Context, error) {
	var ctx vm.Context
	f, err := os.Open(path)
	if err != nil {
		return ctx, err
	}
	defer f.Close()
	err = json.NewDecoder(f).Decode(&ctx)
	return ctx, err
}

func readContexts(path string) ([]vm.Context, error) {
	var contexts []vm.Context
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	err = json.NewDecoder(f).Decode(&contexts)
	return contexts, err
}

// dumpProgram prints one line per rule condition/action, purely a
// debugging aid; it does not attempt to reproduce the original DSL
// syntax.
func dumpProgram(w io.Writer, prog *ast.Program) {
	fmt.Fprintf(w, "symbol %s\n", prog.Symbol)
	d := &dumper{w: w}
	for i, r := range prog.Rules {
		fmt.Fprintf(w, "rule %d:\n  condition: ", i)
		r.Condition.Accept(d)
		fmt.Fprintf(w, "\n  action: %s %d\n", actionName(r.Action.Kind), r.Action.Qty)
	}
}

func actionName(k ast.StmtKind) string {
	if k == ast.StmtBuy {
		return "buy"
	}
	return "sell"
}

type dumper struct{ w io.Writer }

func (d *dumper) VisitNumber(n *ast.Number) error {
	fmt.Fprintf(d.w, "%g", n.Value)
	return nil
}

func (d *dumper) VisitIdent(id *ast.Ident) error {
	fmt.Fprint(d.w, id.Name)
	return nil
}

func (d *dumper) VisitString(s *ast.String) error {
	fmt.Fprint(d.w, s.Text)
	return nil
}

func (d *dumper) VisitCall(c *ast.Call) error {
	fmt.Fprintf(d.w, "%s(", c.Name)
	for i, a := range c.Args {
		if i > 0 {
			fmt.Fprint(d.w, ", ")
		}
		a.Accept(d)
	}
	fmt.Fprint(d.w, ")")
	return nil
}

func (d *dumper) VisitBinary(b *ast.Binary) error {
	fmt.Fprint(d.w, "(")
	b.Left.Accept(d)
	fmt.Fprintf(d.w, " %s ", binaryOpName(b.Op))
	b.Right.Accept(d)
	fmt.Fprint(d.w, ")")
	return nil
}

func (d *dumper) VisitUnary(u *ast.Unary) error {
	if u.Op == ast.Negate {
		fmt.Fprint(d.w, "-")
	} else {
		fmt.Fprint(d.w, "not ")
	}
	return u.Child.Accept(d)
}

func binaryOpName(op ast.BinaryOp) string {
	switch op {
	case ast.Add:
		return "+"
	case ast.Sub:
		return "-"
	case ast.Mul:
		return "*"
	case ast.Div:
		return "/"
	case ast.Gt:
		return ">"
	case ast.Lt:
		return "<"
	case ast.Ge:
		return ">="
	case ast.Le:
		return "<="
	case ast.Eq:
		return "=="
	case ast.Ne:
		return "!="
	case ast.LogicalAnd:
		return "and"
	case ast.LogicalOr:
		return "or"
	default:
		return "?"
	}
}

// dumpChunk renders a compiled chunk as one line per instruction,
// decoding each opcode's inline operands per the ABI in spec §3.
func dumpChunk(w io.Writer, chunk *bytecode.Chunk) {
	fmt.Fprintf(w, "; chunk %s, %s\n", chunk.ID, humanize.Bytes(uint64(chunk.Count())))
	code := chunk.Code()
	ip := 0
	for ip < len(code) {
		op := bytecode.OpCode(code[ip])
		fmt.Fprintf(w, "%04d  %s", ip, opName(op))
		ip++
		switch op {
		case bytecode.PushConst:
			fmt.Fprintf(w, " %g", bytecode.ReadDouble(code, ip))
			ip += 8
		case bytecode.LoadVar:
			fmt.Fprintf(w, " %d", code[ip])
			ip++
		case bytecode.CallFunc:
			fmt.Fprintf(w, " fn=%d argc=%d", code[ip], code[ip+1])
			ip += 2
		case bytecode.JumpIfFalse, bytecode.Jump:
			fmt.Fprintf(w, " %+d", bytecode.ReadInt32(code, ip))
			ip += 4
		case bytecode.Buy, bytecode.Sell:
			fmt.Fprintf(w, " %d", bytecode.ReadInt32(code, ip))
			ip += 4
		}
		fmt.Fprintln(w)
	}
}

func opName(op bytecode.OpCode) string {
	names := map[bytecode.OpCode]string{
		bytecode.Halt: "halt", bytecode.PushConst: "push_const", bytecode.LoadVar: "load_var",
		bytecode.CallFunc: "call_func", bytecode.Add: "add", bytecode.Sub: "sub",
		bytecode.Mul: "mul", bytecode.Div: "div", bytecode.Gt: "gt", bytecode.Lt: "lt",
		bytecode.Ge: "ge", bytecode.Le: "le", bytecode.Eq: "eq", bytecode.Ne: "ne",
		bytecode.And: "and", bytecode.Or: "or", bytecode.Neg: "neg", bytecode.Not: "not",
		bytecode.JumpIfFalse: "jump_if_false", bytecode.Jump: "jump",
		bytecode.Buy: "buy", bytecode.Sell: "sell",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return "unknown"
}
