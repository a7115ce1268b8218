// Package fe implements the Framing Engine: it wraps and unwraps logical
// packets in the byte buffers the Coding State Machine sends and receives,
// validating a simple additive checksum and surfacing whole packets to the
// application.
package fe

import (
	"sync/atomic"

	"github.com/lab11/hijack/packet"
)

// maxWireLen is header(1) + payload(MaxPayload) + checksum(1).
const maxWireLen = 1 + packet.MaxPayload + 1

// SendResult is returned by SendPacket.
type SendResult int

const (
	Accepted SendResult = iota
	Busy
	Fail
)

func (r SendResult) String() string {
	switch r {
	case Accepted:
		return "Accepted"
	case Busy:
		return "Busy"
	case Fail:
		return "Fail"
	default:
		return "unknown"
	}
}

// BufferSender is FE's downward dependency: hand a wire buffer to the
// coding layer for transmission. A non-nil error is treated as a
// transmission failure (spec.md §4.3's "byte_sender returns non-zero").
type BufferSender func(buf []byte) error

// PacketReceivedFunc is invoked once a wire buffer passes checksum
// validation.
type PacketReceivedFunc func(pkt *packet.Packet)

// PacketSentFunc is invoked once the in-flight transmission completes.
type PacketSentFunc func()

// State is the process-wide Framing Engine. One State exists per link.
type State struct {
	sender BufferSender

	// sendingPacket is the cross-context in-flight flag: written from
	// SendPacket (foreground) and OnBufferSent (the CSM tx-done callback).
	sendingPacket atomic.Bool

	outBuf    [maxWireLen]byte
	incoming  packet.Packet
	onPktRecv PacketReceivedFunc
	onPktSent PacketSentFunc
}

// New creates a Framing Engine that hands outgoing wire buffers to sender.
func New(sender BufferSender) *State {
	return &State{sender: sender}
}

// RegisterPacketReceivedCb registers the function invoked once a buffer
// has been validated and parsed into a Packet.
func (s *State) RegisterPacketReceivedCb(cb PacketReceivedFunc) {
	s.onPktRecv = cb
}

// RegisterPacketSentCb registers the function invoked once an in-flight
// transmission's postamble completes.
func (s *State) RegisterPacketSentCb(cb PacketSentFunc) {
	s.onPktSent = cb
}

// checksum is the simple byte-addition checksum of spec.md §4.3.
func checksum(buf []byte) byte {
	var sum byte
	for _, b := range buf {
		sum += b
	}
	return sum
}

// OnBufferReceived validates and unpacks a byte buffer decoded by the
// coding layer. Buffers that are too short or fail the checksum are
// dropped silently, per spec.md §7's receive-error policy.
func (s *State) OnBufferReceived(buf []byte) {
	if len(buf) < 2 {
		return
	}

	sum := checksum(buf[:len(buf)-1])
	if sum != buf[len(buf)-1] {
		return
	}

	s.incoming.SetHeader(buf[0])
	payload := buf[1 : len(buf)-1]
	if err := s.incoming.SetPayload(payload); err != nil {
		// Payload longer than MaxPayload can't arrive over a correctly
		// configured link; treat it the same as any other framing error.
		return
	}

	if s.onPktRecv != nil {
		s.onPktRecv(&s.incoming)
	}
}

// SendPacket serializes pkt into the staging buffer (header, payload,
// checksum) and hands it to the coding layer. It returns Busy if a send is
// already in flight, or Fail if the underlying sender rejects the buffer.
func (s *State) SendPacket(pkt *packet.Packet) SendResult {
	if s.sendingPacket.Load() {
		return Busy
	}
	s.sendingPacket.Store(true)

	n := 0
	s.outBuf[n] = pkt.Header()
	n++
	n += copy(s.outBuf[n:], pkt.Payload())
	s.outBuf[n] = checksum(s.outBuf[:n])
	n++

	if err := s.sender(s.outBuf[:n]); err != nil {
		s.sendingPacket.Store(false)
		return Fail
	}
	return Accepted
}

// OnBufferSent is the coding layer's tx-done callback: it clears the
// in-flight flag and notifies the application.
func (s *State) OnBufferSent() {
	s.sendingPacket.Store(false)
	if s.onPktSent != nil {
		s.onPktSent()
	}
}
