// Package indicator supplements the VM's builtin function plug point
// (vm.FunctionProvider) with a real, stateful reference
// implementation of SMA/EMA/RSI, in place of the pass-through stub
// the spec's reference C skeleton ships (see SPEC_FULL.md §D).
//
// Provider tracks one running price series, fed by whatever value a
// compiled sma/ema call observes; rsi reads back over that same
// series. This mirrors the Update/Value shape of the Indicator
// interface in the pack's RohanRaikwar-algo-sys-v1 trading system,
// collapsed to the DSL's pull-style call convention.
package indicator

import "sync"

// Provider is a real, order-dependent SMA/EMA/RSI implementation. It
// is safe for concurrent use by multiple VMs (see internal/batch),
// each call serialized under an internal mutex.
type Provider struct {
	mu       sync.Mutex
	series   []float64
	emaState map[int]float64
}

// NewProvider returns an empty Provider ready to observe a series.
func NewProvider() *Provider {
	return &Provider{emaState: make(map[int]float64)}
}

// SMA observes series as the newest data point and returns the mean
// of the last period observations (fewer, if the series is shorter).
func (p *Provider) SMA(series, period float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series = append(p.series, series)

	n := windowSize(period, len(p.series))
	if n == 0 {
		return 0
	}
	window := p.series[len(p.series)-n:]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(n)
}

// EMA observes series as the newest data point and returns the
// exponentially-weighted moving average for the given period,
// seeding the first observation as its own average.
func (p *Provider) EMA(series, period float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series = append(p.series, series)

	key := int(period)
	prev, ok := p.emaState[key]
	if !ok {
		prev = series
	}
	alpha := 2.0 / (period + 1.0)
	val := alpha*series + (1-alpha)*prev
	p.emaState[key] = val
	return val
}

// RSI computes the relative strength index, from simple averages of
// the gains and losses over the last period changes of whatever series
// sma/ema calls have already observed. It
// does not itself observe a new point, matching the DSL's rsi(period)
// call convention (no series argument).
func (p *Provider) RSI(period float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := windowSize(period, len(p.series)-1)
	if n <= 0 {
		return 50.0
	}
	window := p.series[len(p.series)-n-1:]

	var gain, loss float64
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			gain += d
		} else {
			loss += -d
		}
	}
	avgGain := gain / float64(n)
	avgLoss := loss / float64(n)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// windowSize clamps a requested period against how much history is
// actually available.
func windowSize(period float64, available int) int {
	if available < 0 {
		return 0
	}
	n := int(period)
	if n <= 0 || n > available {
		n = available
	}
	return n
}
