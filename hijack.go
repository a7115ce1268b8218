// Package hijack wires the Coding State Machine and Framing Engine onto a
// pal.Platform, implementing the glue procedure of spec.md §4.4: FE's
// byte_sender is CSM's SendBuffer, CSM's rx callback is FE's
// OnBufferReceived, CSM's tx-done callback is FE's OnBufferSent, and the
// platform's tick/edge sources drive CSM directly.
package hijack

import (
	"errors"

	"periph.io/x/conn/v3/driver/driverreg"

	"github.com/lab11/hijack/csm"
	"github.com/lab11/hijack/fe"
	"github.com/lab11/hijack/packet"
	"github.com/lab11/hijack/pal"
)

var (
	errLinkBusy    = errors.New("hijack: coding layer busy")
	errPayloadSize = errors.New("hijack: payload exceeds MaxPayload")
)

// Link is one end of a HiJack modem link: a CSM and FE bound to a single
// platform. Link is the process-wide singleton described in spec.md §3,
// constructed once per physical link.
type Link struct {
	platform pal.Platform
	csm      *csm.State
	fe       *fe.State
}

// New creates a Link driving platform, with threshold as the fuzzy-match
// tolerance (spec.md §6) handed to the coding layer.
func New(platform pal.Platform, threshold uint16) *Link {
	l := &Link{platform: platform}

	l.csm = csm.New(platform, threshold)
	l.fe = fe.New(func(buf []byte) error {
		switch l.csm.SendBuffer(buf) {
		case csm.Accepted:
			return nil
		case csm.Busy:
			return errLinkBusy
		default:
			return errPayloadSize
		}
	})

	l.csm.RegisterRxCallback(func(buf []byte, n int) {
		l.fe.OnBufferReceived(buf[:n])
	})
	l.csm.RegisterTxDoneCallback(l.fe.OnBufferSent)

	platform.RegisterTickFunc(l.csm.OnTxTick)
	platform.RegisterEdgeFunc(func(elapsed uint16, level uint8) {
		l.csm.OnRxEdge(csm.EdgeEvent{Elapsed: elapsed, Level: level})
	})

	return l
}

// SendPacket hands pkt to the framing engine for transmission.
func (l *Link) SendPacket(pkt *packet.Packet) fe.SendResult {
	return l.fe.SendPacket(pkt)
}

// RegisterPacketReceivedCb registers the application's packet-received
// callback (spec.md §6, fe_register_packet_received_cb).
func (l *Link) RegisterPacketReceivedCb(cb fe.PacketReceivedFunc) {
	l.fe.RegisterPacketReceivedCb(cb)
}

// RegisterPacketSentCb registers the application's packet-sent callback.
func (l *Link) RegisterPacketSentCb(cb fe.PacketSentFunc) {
	l.fe.RegisterPacketSentCb(cb)
}

// Start starts the underlying platform's timers and edge capture
// (spec.md §6, pal_start_timers).
func (l *Link) Start() error {
	return l.platform.Start()
}

// Close releases the underlying platform's resources.
func (l *Link) Close() error {
	return l.platform.Close()
}

// Init mirrors periph-host's host.Init(): it registers whichever
// periph.io/x/conn host drivers are linked into the binary, so a
// pal.PeriphPlatform can find its pin through gpioreg.ByName. Callers using
// only pal.SimPlatform need not call this.
func Init() (*driverreg.State, error) {
	return driverreg.Init()
}
