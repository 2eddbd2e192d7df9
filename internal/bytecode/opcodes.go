// Package bytecode defines the compact linear bytecode ABI the
// compiler emits and the VM executes (spec §3, §9 "Bytecode ABI
// stability"). Numeric values here are part of the contract: they
// must not be renumbered.
package bytecode

// OpCode is a single instruction byte, optionally followed by inline
// operand bytes (spec §3 documents each opcode's operand encoding).
type OpCode byte

const (
	Halt OpCode = iota
	PushConst
	LoadVar
	CallFunc
	Add
	Sub
	Mul
	Div
	Gt
	Lt
	Ge
	Le
	Eq
	Ne
	And
	Or
	Neg
	Not
	JumpIfFalse
	Jump
	Buy
	Sell
)

// VarID is the fixed variable-id table for LoadVar (spec §3). Order
// is part of the bytecode ABI.
type VarID byte

const (
	VarOpen VarID = iota
	VarHigh
	VarLow
	VarClose
	VarVolume
	VarDate
	VarTime
	VarHour
	VarMinute
	VarWeekday
)

// varIDs maps a builtin variable name to its ABI id.
var varIDs = map[string]VarID{
	"open":    VarOpen,
	"high":    VarHigh,
	"low":     VarLow,
	"close":   VarClose,
	"volume":  VarVolume,
	"date":    VarDate,
	"time":    VarTime,
	"hour":    VarHour,
	"minute":  VarMinute,
	"weekday": VarWeekday,
}

// LookupVar resolves a builtin variable name to its ABI id.
func LookupVar(name string) (VarID, bool) {
	id, ok := varIDs[name]
	return id, ok
}

// FuncID is the fixed function-id table for CallFunc (spec §3).
type FuncID byte

const (
	FuncSMA FuncID = iota
	FuncEMA
	FuncRSI
)

var funcIDs = map[string]FuncID{
	"sma": FuncSMA,
	"ema": FuncEMA,
	"rsi": FuncRSI,
}

// LookupFunc resolves a builtin function name to its ABI id.
func LookupFunc(name string) (FuncID, bool) {
	id, ok := funcIDs[name]
	return id, ok
}
