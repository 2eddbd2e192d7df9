package vm

import (
	"fmt"
	"io"
)

// TradeSink receives the side effects a Buy/Sell opcode emits (spec
// §6). Implementations are expected to be synchronous and
// non-reentrant with respect to the VM that calls them.
type TradeSink interface {
	Buy(symbol string, qty int32)
	Sell(symbol string, qty int32)
}

// WriterSink renders each trade action as one line on W, matching the
// canonical wire format in spec §6 exactly: "SYMBOL <symbol>: BUY
// <qty>" / "SYMBOL <symbol>: SELL <qty>".
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Buy(symbol string, qty int32) {
	fmt.Fprintf(s.W, "SYMBOL %s: BUY %d\n", symbol, qty)
}

func (s WriterSink) Sell(symbol string, qty int32) {
	fmt.Fprintf(s.W, "SYMBOL %s: SELL %d\n", symbol, qty)
}
