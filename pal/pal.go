// Package pal is the Platform Abstraction Layer: the narrow, swappable
// boundary between the CSM/FE core and whatever actually drives the mic
// line and the half-symbol timer (spec.md §6's platform contract).
//
// The core packages (csm, fe) never import pal; pal instead implements the
// small interface csm already exposes (csm.PinWriter) and supplies the two
// upward callbacks csm needs
// (periodic tick, edge capture). This mirrors how gpioioctl.GPIOLine and
// sysfs.Pin implement periph.io/x/conn/v3/gpio.PinIO rather than the other
// way around.
package pal

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Config carries the tunable timing constants of spec.md §6.
type Config struct {
	// TickRate is the platform timer's counting frequency; Elapsed ticks
	// delivered to csm.EdgeEvent are in units of 1/TickRate.
	TickRate physic.Frequency
	// SymbolPeriod is the nominal Manchester symbol period T. The
	// half-symbol period (T/2) is what drives the periodic tick.
	SymbolPeriod time.Duration
	// Threshold is the fuzzy-match tolerance for csm.New, in ticks. Ticks
	// does not use it; DefaultThreshold computes a value for it.
	Threshold uint16
}

// Ticks converts a time.Duration to a tick count at c.TickRate, rounding to
// the nearest tick. It is used to turn a real elapsed time (from a
// hardware edge-event timestamp) into the uint16 tick count csm.EdgeEvent
// expects.
func (c Config) Ticks(d time.Duration) uint16 {
	hz := float64(c.TickRate) / float64(physic.Hertz)
	ticks := d.Seconds() * hz
	if ticks < 0 {
		return 0
	}
	if ticks > float64(^uint16(0)) {
		return ^uint16(0)
	}
	return uint16(ticks + 0.5)
}

// HalfSymbolPeriod is the interval at which TickFunc must be called.
func (c Config) HalfSymbolPeriod() time.Duration {
	return c.SymbolPeriod / 2
}

// DefaultThreshold returns 4/10 of the half-symbol tick count (the
// reference implementation's T*4/10 rule of spec.md §6, applied to the
// half-symbol interval the decoder locks deltaT to), for a platform whose
// half-symbol period is halfSymbolTicks ticks long.
func DefaultThreshold(halfSymbolTicks uint16) uint16 {
	return uint16((uint32(halfSymbolTicks) * 4) / 10)
}

// TickFunc is the platform's periodic half-symbol timer callback.
type TickFunc func()

// EdgeFunc is the platform's edge-capture callback: elapsed ticks since
// the previous edge, and the line's new level.
type EdgeFunc func(elapsed uint16, level uint8)

// Platform is the full platform contract consumed by the core (spec.md
// §6): digital output on the mic line, a periodic half-symbol tick source,
// and an edge-capture source. Concrete implementations live in this
// package: PeriphPlatform (any periph.io/x/conn/v3/gpio.PinIO, including a
// gpioioctl.GPIOLine found through FindGPIOLine) and SimPlatform
// (in-memory, for tests).
type Platform interface {
	// SetLevel and SetOutput implement csm.PinWriter.
	SetLevel(level uint8)
	SetOutput(output bool)

	// RegisterTickFunc and RegisterEdgeFunc wire the core's upward
	// callbacks; they must be called before Start.
	RegisterTickFunc(f TickFunc)
	RegisterEdgeFunc(f EdgeFunc)

	// Start begins driving the registered callbacks. It does not block.
	Start() error
	// Close stops delivering callbacks and releases any OS resources.
	Close() error
}
