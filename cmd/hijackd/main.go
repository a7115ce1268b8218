// hijackd runs one end of a HiJack modem link: either against a real GPIO
// line (chardev or periph-registered) or, with -sim, against an in-memory
// loopback platform useful for exercising the framing layer without
// hardware. It sends one demo packet and logs every packet it receives.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"github.com/lab11/hijack"
	"github.com/lab11/hijack/fe"
	"github.com/lab11/hijack/packet"
	"github.com/lab11/hijack/pal"
)

func mainImpl() error {
	var (
		sim       = pflag.Bool("sim", false, "run against an in-memory loopback platform instead of real hardware")
		chip      = pflag.StringP("chip", "c", "gpiochip0", "GPIO chip name, when not using -sim")
		line      = pflag.IntP("line", "l", 0, "GPIO line offset on chip, when not using -sim")
		pinName   = pflag.StringP("pin", "p", "", "periph-registered pin name, overrides -chip/-line when set")
		threshold = pflag.Uint16P("threshold", "t", 0, "fuzzy-match tick threshold; 0 derives one from the half-symbol period")
		help      = pflag.Bool("help", false, "display help text")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hijackd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs one end of a HiJack modem link.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return nil
	}

	cfg := pal.Config{TickRate: 1 * physic.MegaHertz, SymbolPeriod: time.Millisecond}
	if *threshold == 0 {
		*threshold = pal.DefaultThreshold(cfg.Ticks(cfg.HalfSymbolPeriod()))
	}

	var platform pal.Platform
	switch {
	case *sim:
		s := pal.NewSimPlatform(cfg, true)
		s.SetStepTicks(cfg.Ticks(cfg.HalfSymbolPeriod()))
		platform = s
	case *pinName != "":
		if _, err := hijack.Init(); err != nil {
			return fmt.Errorf("hijackd: %w", err)
		}
		p := gpioreg.ByName(*pinName)
		if p == nil {
			return fmt.Errorf("hijackd: pin %q not found", *pinName)
		}
		platform = pal.NewPeriphPlatform(cfg, p, nil)
	default:
		// gpioioctl populates gpioioctl.Chips from its driverreg-registered
		// Init(), invoked here via hijack.Init() -> driverreg.Init().
		if _, err := hijack.Init(); err != nil {
			return fmt.Errorf("hijackd: %w", err)
		}
		gline, err := pal.FindGPIOLine(*chip, *line)
		if err != nil {
			return fmt.Errorf("hijackd: %w", err)
		}
		platform = pal.NewPeriphPlatform(cfg, gline, nil)
	}

	link := hijack.New(platform, *threshold)
	link.RegisterPacketReceivedCb(func(pkt *packet.Packet) {
		fmt.Printf("received: %s\n", pkt)
	})
	link.RegisterPacketSentCb(func() {
		fmt.Println("send complete")
	})

	demo := &packet.Packet{Type: 1, AckRequested: true}
	if err := demo.SetPayload([]byte("hijack")); err != nil {
		return err
	}

	if *sim {
		s := platform.(*pal.SimPlatform)
		if res := link.SendPacket(demo); res != fe.Accepted {
			fmt.Printf("SendPacket: %v\n", res)
		}
		for i := 0; i < 5000; i++ {
			s.Tick()
		}
		return nil
	}

	if err := link.Start(); err != nil {
		return fmt.Errorf("hijackd: starting platform: %w", err)
	}
	defer link.Close()

	if res := link.SendPacket(demo); res != fe.Accepted {
		fmt.Printf("SendPacket: %v\n", res)
	}

	// Real hardware: the platform's own goroutines drive tx/rx. Block
	// until interrupted.
	select {}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
