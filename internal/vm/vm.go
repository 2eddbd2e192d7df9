// Package vm implements the stack-based bytecode interpreter (spec
// §4.4): a fixed-size evaluation stack, an instruction pointer into a
// chunk's bytes, a by-value Context, and a symbol forwarded to the
// configured TradeSink.
package vm

import (
	"fmt"

	"github.com/google/uuid"

	"tradedsl/internal/bytecode"
	"tradedsl/internal/langerr"
)

// stackMax is the VM's fixed evaluation stack depth (spec §4.4).
const stackMax = 256

// VM is a stack machine bound to one FunctionProvider and one
// TradeSink for its lifetime; Run can be called repeatedly against
// different chunks and contexts, each call starting from a clean
// stack and ip (spec §5: a run is parse -> compile -> execute, with
// no state surviving across runs beyond what the host owns).
type VM struct {
	provider FunctionProvider
	sink     TradeSink

	stack [stackMax]float64
	sp    int

	code    []byte
	ip      int
	ctx     Context
	symbol  string
	chunkID uuid.UUID
}

// New returns a VM wired to provider and sink. A nil provider
// defaults to StubProvider; a nil sink is rejected by Run's caller
// contract — callers needing stdout behavior should pass a
// WriterSink explicitly.
func New(provider FunctionProvider, sink TradeSink) *VM {
	if provider == nil {
		provider = StubProvider{}
	}
	return &VM{provider: provider, sink: sink}
}

// Run executes chunk once against ctx, emitting trade actions tagged
// with symbol to the VM's TradeSink. Run is not reentrant: call it
// from one goroutine at a time per VM (internal/batch gives each
// concurrent context its own VM instance).
func (vm *VM) Run(chunk *bytecode.Chunk, ctx Context, symbol string) error {
	vm.code = chunk.Code()
	vm.ip = 0
	vm.sp = 0
	vm.ctx = ctx
	vm.symbol = symbol
	vm.chunkID = chunk.ID

	for {
		op := bytecode.OpCode(vm.code[vm.ip])
		vm.ip++

		switch op {
		case bytecode.Halt:
			return nil

		case bytecode.PushConst:
			v := bytecode.ReadDouble(vm.code, vm.ip)
			vm.ip += 8
			if err := vm.push(v); err != nil {
				return err
			}

		case bytecode.LoadVar:
			id := bytecode.VarID(vm.code[vm.ip])
			vm.ip++
			if err := vm.push(vm.loadVar(id)); err != nil {
				return err
			}

		case bytecode.CallFunc:
			if err := vm.callFunc(); err != nil {
				return err
			}

		case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div,
			bytecode.Gt, bytecode.Lt, bytecode.Ge, bytecode.Le,
			bytecode.Eq, bytecode.Ne, bytecode.And, bytecode.Or:
			if err := vm.binaryOp(op); err != nil {
				return err
			}

		case bytecode.Neg:
			a, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(-a); err != nil {
				return err
			}

		case bytecode.Not:
			a, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(boolf(a == 0.0)); err != nil {
				return err
			}

		case bytecode.JumpIfFalse:
			offset := bytecode.ReadInt32(vm.code, vm.ip)
			vm.ip += 4
			cond, err := vm.pop()
			if err != nil {
				return err
			}
			if cond == 0.0 {
				vm.ip += int(offset)
			}

		case bytecode.Jump:
			offset := bytecode.ReadInt32(vm.code, vm.ip)
			vm.ip += 4
			vm.ip += int(offset)

		case bytecode.Buy:
			qty := bytecode.ReadInt32(vm.code, vm.ip)
			vm.ip += 4
			vm.sink.Buy(vm.symbol, qty)

		case bytecode.Sell:
			qty := bytecode.ReadInt32(vm.code, vm.ip)
			vm.ip += 4
			vm.sink.Sell(vm.symbol, qty)

		default:
			return vm.runtimeErr(fmt.Sprintf("Unknown opcode %d", op))
		}
	}
}

// runtimeErr builds a Runtime-phase diagnostic tagged with the id of
// the chunk currently executing, so a host running many chunks
// concurrently (internal/batch) can tell which compilation a fault
// came from.
func (vm *VM) runtimeErr(message string) *langerr.Error {
	return langerr.NewRuntimeError(message).WithChunk(vm.chunkID)
}

func (vm *VM) loadVar(id bytecode.VarID) float64 {
	switch id {
	case bytecode.VarOpen:
		return vm.ctx.Open
	case bytecode.VarHigh:
		return vm.ctx.High
	case bytecode.VarLow:
		return vm.ctx.Low
	case bytecode.VarClose:
		return vm.ctx.Close
	case bytecode.VarVolume:
		return vm.ctx.Volume
	case bytecode.VarDate:
		return float64(vm.ctx.Date)
	case bytecode.VarTime:
		return float64(vm.ctx.Time)
	case bytecode.VarHour:
		return float64(vm.ctx.Hour)
	case bytecode.VarMinute:
		return float64(vm.ctx.Minute)
	case bytecode.VarWeekday:
		return float64(vm.ctx.Weekday)
	default:
		return 0.0
	}
}

func (vm *VM) callFunc() error {
	fid := bytecode.FuncID(vm.code[vm.ip])
	vm.ip++
	argc := int(vm.code[vm.ip])
	vm.ip++

	switch fid {
	case bytecode.FuncSMA:
		if argc != 2 {
			return vm.runtimeErr("sma expects 2 args")
		}
		args, err := vm.popArgs(2)
		if err != nil {
			return err
		}
		return vm.push(vm.provider.SMA(args[0], args[1]))

	case bytecode.FuncEMA:
		if argc != 2 {
			return vm.runtimeErr("ema expects 2 args")
		}
		args, err := vm.popArgs(2)
		if err != nil {
			return err
		}
		return vm.push(vm.provider.EMA(args[0], args[1]))

	case bytecode.FuncRSI:
		if argc != 1 {
			return vm.runtimeErr("rsi expects 1 arg")
		}
		args, err := vm.popArgs(1)
		if err != nil {
			return err
		}
		return vm.push(vm.provider.RSI(args[0]))

	default:
		// Unreachable from compiler-emitted chunks: the compiler only
		// ever emits a FuncID it resolved via bytecode.LookupFunc.
		return vm.runtimeErr(fmt.Sprintf("Unknown opcode %d", bytecode.CallFunc))
	}
}

func (vm *VM) binaryOp(op bytecode.OpCode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}

	var r float64
	switch op {
	case bytecode.Add:
		r = a + b
	case bytecode.Sub:
		r = a - b
	case bytecode.Mul:
		r = a * b
	case bytecode.Div:
		r = a / b
	case bytecode.Gt:
		r = boolf(a > b)
	case bytecode.Lt:
		r = boolf(a < b)
	case bytecode.Ge:
		r = boolf(a >= b)
	case bytecode.Le:
		r = boolf(a <= b)
	case bytecode.Eq:
		r = boolf(a == b)
	case bytecode.Ne:
		r = boolf(a != b)
	case bytecode.And:
		r = boolf(a != 0.0 && b != 0.0)
	case bytecode.Or:
		r = boolf(a != 0.0 || b != 0.0)
	}
	return vm.push(r)
}

// popArgs pops n values and returns them in their original left-to-
// right push order (CallFunc's right-most argument is on top).
func (vm *VM) popArgs(n int) ([]float64, error) {
	args := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (vm *VM) push(v float64) error {
	if vm.sp >= stackMax {
		return vm.runtimeErr("stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (float64, error) {
	if vm.sp == 0 {
		return 0, vm.runtimeErr("stack underflow")
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

func boolf(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
