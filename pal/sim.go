package pal

import (
	"sync"
	"time"
)

// SimPlatform is an in-memory platform with a virtual tick source and a
// loopback edge generator, grounded on gpioioctl's makeDummyChip pattern
// (a fake chip registered so code exercising a Platform runs without real
// hardware). It backs the package's tests and cmd/hijackd's -sim demo
// mode: every tick that changes the mic line's level synthesizes the edge
// event a real comparator/ADC would have captured.
type SimPlatform struct {
	cfg Config

	mu             sync.Mutex
	level          uint8
	lastLevel      uint8
	output         bool
	ticksSinceEdge uint16
	loopback       bool
	stepTicks      uint16

	tickFn TickFunc
	edgeFn EdgeFunc

	stop chan struct{}
}

// NewSimPlatform creates a simulated platform. When loopback is true,
// every SetLevel call that changes the line's level is turned into an
// EdgeFunc callback on the next Tick, exactly as if a second, tethered
// device were observing this one's own pin — useful for driving a
// send/receive round trip entirely in software.
func NewSimPlatform(cfg Config, loopback bool) *SimPlatform {
	return &SimPlatform{cfg: cfg, loopback: loopback, stepTicks: 1}
}

// SetStepTicks sets how many ticks each call to Tick represents; callers
// driving a full round trip in raw tick units (rather than real time via
// Start) typically want this comfortably larger than the decoder's
// THRESHOLD_FRACTION rounding, e.g. 100.
func (p *SimPlatform) SetStepTicks(ticks uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stepTicks = ticks
}

func (p *SimPlatform) SetLevel(level uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *SimPlatform) SetOutput(output bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = output
}

func (p *SimPlatform) RegisterTickFunc(f TickFunc) { p.tickFn = f }
func (p *SimPlatform) RegisterEdgeFunc(f EdgeFunc)  { p.edgeFn = f }

// Tick advances one half-symbol: it invokes the registered tick callback,
// then (if loopback is enabled) synthesizes an edge event if the pin level
// changed as a result.
func (p *SimPlatform) Tick() {
	if p.tickFn != nil {
		p.tickFn()
	}

	p.mu.Lock()
	level := p.level
	p.ticksSinceEdge += p.stepTicks
	changed := p.loopback && level != p.lastLevel
	var elapsed uint16
	if changed {
		elapsed = p.ticksSinceEdge
		p.ticksSinceEdge = 0
		p.lastLevel = level
	}
	p.mu.Unlock()

	if changed && p.edgeFn != nil {
		p.edgeFn(elapsed, level)
	}
}

// DeliverEdge injects an edge event directly, bypassing the loopback
// generator. Used by tests that want to feed a specific, hand-built edge
// sequence into the rx path.
func (p *SimPlatform) DeliverEdge(elapsed uint16, level uint8) {
	if p.edgeFn != nil {
		p.edgeFn(elapsed, level)
	}
}

// Start runs the half-symbol tick source in real time, at cfg.HalfSymbolPeriod().
// Tests that want deterministic, instantaneous stepping should call Tick
// directly instead of Start.
func (p *SimPlatform) Start() error {
	p.stop = make(chan struct{})
	period := p.cfg.HalfSymbolPeriod()
	if period <= 0 {
		period = time.Microsecond
	}
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				p.Tick()
			case <-p.stop:
				return
			}
		}
	}()
	return nil
}

func (p *SimPlatform) Close() error {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	return nil
}

var _ Platform = (*SimPlatform)(nil)
