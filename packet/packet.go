// Package packet defines the logical protocol data unit exchanged between
// the application and the framing engine.
package packet

import "fmt"

// MaxPayload is the largest payload a Packet may carry. The coding state
// machine's buffers are bounded separately by csm.MaxPayload (also 128)
// and hold the whole wire buffer, header and checksum included, so a
// payload longer than 126 bytes is rejected by csm.SendBuffer.
const MaxPayload = 128

// Packet is the application-facing unit of the link. The four header
// fields (PowerDown, AckRequested, Retries, Type) pack into a single wire
// byte; Data carries Length bytes.
type Packet struct {
	Length       uint8
	PowerDown    bool
	AckRequested bool
	Retries      uint8 // 2 bits: 0..3
	Type         uint8 // 4 bits: 0..15
	Data         [MaxPayload]byte
}

// header bit layout, MSB first: PowerDown(1) AckRequested(1) Retries(2) Type(4)
const (
	headerPowerDownBit    = 1 << 7
	headerAckRequestedBit = 1 << 6
	headerRetriesShift    = 4
	headerRetriesMask     = 0x3
	headerTypeMask        = 0x0f
)

// Header packs PowerDown, AckRequested, Retries and Type into the single
// wire header byte described in spec.md §3.
func (p *Packet) Header() byte {
	var h byte
	if p.PowerDown {
		h |= headerPowerDownBit
	}
	if p.AckRequested {
		h |= headerAckRequestedBit
	}
	h |= (p.Retries & headerRetriesMask) << headerRetriesShift
	h |= p.Type & headerTypeMask
	return h
}

// SetHeader unpacks a wire header byte into the packet's header fields. It
// does not touch Length or Data.
func (p *Packet) SetHeader(h byte) {
	p.PowerDown = h&headerPowerDownBit != 0
	p.AckRequested = h&headerAckRequestedBit != 0
	p.Retries = (h >> headerRetriesShift) & headerRetriesMask
	p.Type = h & headerTypeMask
}

// Payload returns the packet's data truncated to Length.
func (p *Packet) Payload() []byte {
	return p.Data[:p.Length]
}

// SetPayload copies data into the packet, setting Length. It returns an
// error if data is longer than MaxPayload.
func (p *Packet) SetPayload(data []byte) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("packet: payload length %d exceeds MaxPayload %d", len(data), MaxPayload)
	}
	p.Length = uint8(len(data))
	copy(p.Data[:p.Length], data)
	return nil
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{type=%d ack=%t pd=%t retries=%d len=%d}",
		p.Type, p.AckRequested, p.PowerDown, p.Retries, p.Length)
}
