package pal

import (
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// PeriphPlatform adapts any periph.io/x/conn/v3/gpio.PinIO — the teacher's
// own core abstraction, typically obtained through
// periph.io/x/conn/v3/gpio/gpioreg.ByName, or through FindGPIOLine — into a
// pal.Platform. It polls WaitForEdge on a dedicated goroutine, in the same
// style as gpioioctl.GPIOLine.WaitForEdge and sysfs.Pin.WaitForEdge, so the
// module runs against any periph-registered host driver without code
// changes.
type PeriphPlatform struct {
	cfg    Config
	pin    gpio.PinIO
	logger *log.Logger

	mu       sync.Mutex
	output   bool
	lastEdge time.Time
	haveEdge bool

	tickFn TickFunc
	edgeFn EdgeFunc
	stop   chan struct{}
}

// NewPeriphPlatform wraps pin, which must support edge detection
// (WaitForEdge) for the receive path to function. logger defaults to
// log.Default() when nil.
func NewPeriphPlatform(cfg Config, pin gpio.PinIO, logger *log.Logger) *PeriphPlatform {
	if logger == nil {
		logger = log.Default()
	}
	return &PeriphPlatform{cfg: cfg, pin: pin, logger: logger}
}

func (p *PeriphPlatform) SetLevel(level uint8) {
	l := gpio.Low
	if level != 0 {
		l = gpio.High
	}
	if err := p.pin.Out(l); err != nil {
		p.logger.Println("periph: Out failed:", err)
	}
}

func (p *PeriphPlatform) SetOutput(output bool) {
	p.mu.Lock()
	p.output = output
	p.mu.Unlock()
	var err error
	if output {
		err = p.pin.Out(gpio.Low)
	} else {
		err = p.pin.In(gpio.PullNoChange, gpio.BothEdges)
	}
	if err != nil {
		p.logger.Printf("periph: reconfigure failed (output=%t): %v", output, err)
	}
}

func (p *PeriphPlatform) RegisterTickFunc(f TickFunc) { p.tickFn = f }
func (p *PeriphPlatform) RegisterEdgeFunc(f EdgeFunc) { p.edgeFn = f }

// Start configures the pin for edge-triggered input, starts the
// half-symbol tick goroutine, and starts the edge-watch goroutine.
func (p *PeriphPlatform) Start() error {
	if err := p.pin.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return err
	}

	p.stop = make(chan struct{})
	go func() {
		t := time.NewTicker(p.cfg.HalfSymbolPeriod())
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if p.tickFn != nil {
					p.tickFn()
				}
			case <-p.stop:
				return
			}
		}
	}()

	go p.watchEdges()

	p.logger.Printf("periph platform started on pin %s", p.pin.Name())
	return nil
}

func (p *PeriphPlatform) watchEdges() {
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		if !p.pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		now := time.Now()
		p.mu.Lock()
		var elapsed time.Duration
		if p.haveEdge {
			elapsed = now.Sub(p.lastEdge)
		}
		p.lastEdge = now
		p.haveEdge = true
		p.mu.Unlock()

		level := uint8(0)
		if p.pin.Read() == gpio.High {
			level = 1
		}
		if p.edgeFn != nil {
			p.edgeFn(p.cfg.Ticks(elapsed), level)
		}
	}
}

func (p *PeriphPlatform) Close() error {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	return nil
}

var _ Platform = (*PeriphPlatform)(nil)
