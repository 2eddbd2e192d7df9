package vm

// FunctionProvider supplies the bodies of the three builtin indicator
// functions. Spec §1/§6 keep these as an external collaborator: the
// core defines the signatures and call convention (CallFunc's arity
// check), not the math. A FunctionProvider is a pure function of its
// arguments and whatever state it chooses to keep, per spec §4.4.
type FunctionProvider interface {
	SMA(series, period float64) float64
	EMA(series, period float64) float64
	RSI(period float64) float64
}

// StubProvider is the reference implementation carried over verbatim
// from orig/vm.c's builtin_sma/builtin_ema/builtin_rsi: SMA and EMA
// pass their series argument through unchanged, RSI always returns
// 50.0. It exists so the exact behavior spec §8's worked examples
// assume (e.g. "rsi(14) == 50 -> buy 1") is reproducible without any
// indicator wiring.
type StubProvider struct{}

func (StubProvider) SMA(series, _ float64) float64 { return series }
func (StubProvider) EMA(series, _ float64) float64 { return series }
func (StubProvider) RSI(_ float64) float64          { return 50.0 }
