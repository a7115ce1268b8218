package csm

// bitSignal is the decoded relationship between a newly observed bit and
// the previously committed one, per spec.md §4.2's bit append rule.
type bitSignal int

const (
	bitSame bitSignal = iota
	bitDifferent
)

// OnRxEdge dispatches an edge event to the current rx sub-state. It never
// blocks and never returns an error: malformed input is recovered locally
// by resetting to Idle (spec.md §7).
func (s *State) OnRxEdge(ev EdgeEvent) {
	switch s.rxState {
	case rxIdle:
		s.receiveIdle(ev)
	case rxData:
		s.receiveData(ev)
	case rxDataExtra:
		s.receiveDataExtra(ev)
	}
}

// receiveIdle implements preamble detection and start-bit lock (spec.md
// §4.2, state Idle).
func (s *State) receiveIdle(ev EdgeEvent) {
	if s.rxPreambleN >= RxPreambleLen && ev.Level == 1 {
		var sum uint32
		var min uint16 = ^uint16(0)
		var max uint16
		for _, v := range s.rxPreambleBuf {
			sum += uint32(v)
			if v > max {
				max = v
			}
			if v < min {
				min = v
			}
		}
		average := uint16(sum / RxPreambleLen)

		if max-min < average/thresholdFractionDenu {
			if s.isWithinThreshold(ev.Elapsed/2, average) {
				s.rxDeltaT = average
				s.rxState = rxData
				return
			}
		}
	}

	s.rxPreambleBuf[s.rxPreambleIdx] = ev.Elapsed
	s.rxPreambleIdx = (s.rxPreambleIdx + 1) % RxPreambleLen
	if s.rxPreambleN < RxPreambleLen {
		s.rxPreambleN++
	}
}

// receiveData implements spec.md §4.2, state Data.
func (s *State) receiveData(ev EdgeEvent) {
	switch {
	case s.isWithinThreshold(ev.Elapsed, s.rxDeltaT):
		// Short pulse: next bit equals the previous one, but a Manchester
		// same-bit sequence spans two short pulses. Wait for the second.
		s.rxState = rxDataExtra

	case s.isWithinThreshold(ev.Elapsed/2, s.rxDeltaT):
		// Long pulse: next bit differs from the previous one.
		s.addBit(bitDifferent)

	default:
		s.terminate()
	}
}

// receiveDataExtra implements spec.md §4.2, state DataExtra: the second
// short pulse of a same-bit pair.
func (s *State) receiveDataExtra(ev EdgeEvent) {
	if s.isWithinThreshold(ev.Elapsed, s.rxDeltaT) {
		s.addBit(bitSame)
		s.rxState = rxData
		return
	}
	s.terminate()
}

// terminate delivers the accumulated buffer if it ends cleanly on a byte
// boundary with at least one byte accumulated (spec.md §4.2 / §7's
// "partial data is salvaged" policy), then resets to Idle. rxByteIdx is
// the count of fully-received bytes, so it is the delivered length
// directly, not rxByteIdx-1: that would silently drop the last byte of
// every packet, including the trailing checksum fe relies on.
func (s *State) terminate() {
	if s.rxByteIdx >= 1 && s.rxBitIdx == 0 {
		if s.onRxPacket != nil {
			s.onRxPacket(s.rxBuf[:], s.rxByteIdx)
		}
	}
	s.resetRx()
	s.rxState = rxIdle
}

// addBit appends one bit to the receive buffer, LSB-first, per spec.md
// §4.2's bit append rule.
func (s *State) addBit(sig bitSignal) {
	var newBit uint8
	same := sig == bitSame
	if (s.rxPreviousBit == 0 && same) || (s.rxPreviousBit == 1 && !same) {
		newBit = 0
	} else {
		newBit = 1
	}
	s.rxPreviousBit = newBit

	if s.rxByteIdx >= MaxPayload {
		// Buffer full: further bits are dropped rather than overrunning it.
		return
	}
	if newBit == 1 {
		s.rxBuf[s.rxByteIdx] |= 1 << uint(s.rxBitIdx)
	}

	s.rxBitIdx++
	if s.rxBitIdx == 8 {
		s.rxBitIdx = 0
		s.rxByteIdx++
	}
}

// resetRx clears rx scratch to what it must look like while waiting for a
// new packet.
func (s *State) resetRx() {
	for i := range s.rxPreambleBuf {
		s.rxPreambleBuf[i] = 0
	}
	s.rxPreambleIdx = 0
	s.rxPreambleN = 0

	for i := range s.rxBuf {
		s.rxBuf[i] = 0
	}
	s.rxBitIdx = 0
	s.rxByteIdx = 0
	s.rxPreviousBit = 0
}
