// Package csm implements the Coding State Machine: the Manchester-encoded
// half-symbol modem sitting directly above the platform's pin and timer
// primitives. It turns a byte buffer into a stream of pin-level updates on
// transmit, and a stream of edge events back into a byte buffer on receive.
//
// Neither direction blocks. SendBuffer and OnRxEdge/OnTxTick are meant to be
// called directly from interrupt-equivalent context (see pal.Platform); csm
// never spawns a goroutine and never surfaces an rx error, matching the
// "recovered locally" policy of the link this package implements.
package csm

import "sync/atomic"

// Tunable constants recognized by this implementation (spec.md §6).
const (
	MaxPayload            = 128
	RxPreambleLen         = 7
	PreambleBits          = 4
	PostambleHalfSymbols  = 8
	PreambleBit           = 1
	StartBit              = 0
	thresholdFractionDenu = 10 // max-min < average/thresholdFractionDenu
)

// EdgeEvent is delivered by the platform on every line transition: the
// elapsed ticks since the previous edge, and the new line level.
type EdgeEvent struct {
	Elapsed uint16
	Level   uint8 // 0 or 1
}

// SendResult is returned by SendBuffer.
type SendResult int

const (
	Accepted SendResult = iota
	Busy
	TooLong
)

func (r SendResult) String() string {
	switch r {
	case Accepted:
		return "Accepted"
	case Busy:
		return "Busy"
	case TooLong:
		return "TooLong"
	default:
		return "unknown"
	}
}

// PinWriter is the narrow downward interface CSM needs from the platform:
// set the mic line's digital level and switch its direction. It is the
// "platform" boundary of spec.md §6, restricted to what the transmit path
// uses.
type PinWriter interface {
	SetLevel(level uint8)
	SetOutput(output bool)
}

// txState is the transmit sub-state (spec.md §3).
type txState int

const (
	txIdle txState = iota
	txPreamble
	txStart
	txData
	txPostamble
)

// rxState is the receive sub-state (spec.md §3).
type rxState int

const (
	rxIdle rxState = iota
	rxData
	rxDataExtra
)

// RxCallback is invoked synchronously from OnRxEdge whenever the decoder
// recognizes the end of a cleanly framed packet. buf[0:n] is the decoded
// byte buffer.
type RxCallback func(buf []byte, n int)

// TxDoneCallback is invoked synchronously from OnTxTick once the postamble
// completes.
type TxDoneCallback func()

// State is the process-wide Coding State Machine. One State exists per
// link; it is not safe to share one State across two independent links.
type State struct {
	pin PinWriter

	threshold uint16 // fuzzy-match tolerance, in ticks

	// transmittingPacket is written from SendBuffer (foreground) and
	// OnTxTick; it is the single-byte atomic boundary flag spec.md §5
	// calls for.
	transmittingPacket atomic.Bool

	// tx scratch, owned by OnTxTick only once a transmission starts.
	txBuf          [MaxPayload]byte
	txLen          int
	txByteIdx      int
	txBitIdx       int
	txBitHalf      uint8 // 0 or 1
	txPinVal       uint8
	txPreambleLeft  int
	txPostambleLeft int
	txPinOutput     bool
	txState         txState
	onTxDone        TxDoneCallback

	// rx scratch, owned by OnRxEdge only.
	rxPreambleBuf [RxPreambleLen]uint16
	rxPreambleIdx int
	rxPreambleN   int
	rxBuf         [MaxPayload]byte
	rxBitIdx      int
	rxByteIdx     int
	rxPreviousBit uint8
	rxDeltaT      uint16
	rxState       rxState
	onRxPacket    RxCallback
}

// New creates a Coding State Machine driving pin for its transmit path.
// threshold is the fuzzy interval-comparison tolerance in ticks
// (spec.md §6; the reference implementation uses T*4/10 of the nominal
// symbol period T).
func New(pin PinWriter, threshold uint16) *State {
	s := &State{pin: pin, threshold: threshold}
	s.txState = txIdle
	s.rxState = rxIdle
	s.resetRx()
	return s
}

// RegisterRxCallback registers the function invoked when a packet is
// decoded. Must be called before the first OnRxEdge.
func (s *State) RegisterRxCallback(cb RxCallback) {
	s.onRxPacket = cb
}

// RegisterTxDoneCallback registers the function invoked once a
// transmission (including its postamble) completes.
func (s *State) RegisterTxDoneCallback(cb TxDoneCallback) {
	s.onTxDone = cb
}

// isWithinThreshold reports whether value is within s.threshold of desired,
// spec.md §4.2's fuzzy comparison.
func (s *State) isWithinThreshold(value, desired uint16) bool {
	lo := int(desired) - int(s.threshold)
	hi := int(desired) + int(s.threshold)
	v := int(value)
	return v > lo && v < hi
}
