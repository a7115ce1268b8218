package pal

import (
	"fmt"

	"github.com/lab11/hijack/gpioioctl"
)

// FindGPIOLine locates the mic line on a Linux GPIO character device chip by
// chip name (e.g. "gpiochip0") and line offset, using the module's own
// gpioioctl package — the GPIO v2 ioctl implementation periph-host ships —
// rather than a second, external chardev library. The returned
// gpioioctl.GPIOLine already implements periph.io/x/conn/v3/gpio.PinIO
// (In, Out, Read, WaitForEdge), so it plugs directly into NewPeriphPlatform:
// gpioioctl's chardev backend and periph's sysfs backend are the same
// abstraction, just reached through different kernel interfaces.
func FindGPIOLine(chipName string, offset int) (*gpioioctl.GPIOLine, error) {
	for _, chip := range gpioioctl.Chips {
		if chip.Name() != chipName {
			continue
		}
		line := chip.ByNumber(offset)
		if line == nil {
			return nil, fmt.Errorf("pal: chip %s has no line %d", chipName, offset)
		}
		return line, nil
	}
	return nil, fmt.Errorf("pal: chip %s not found", chipName)
}
