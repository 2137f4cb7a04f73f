package frame

// FrameKind classifies a fully-extracted response frame.
type FrameKind int

const (
	// KindResponse is a normal PN532-to-host information frame.
	KindResponse FrameKind = iota
	// KindSyntaxError is the fixed error frame PN532 sends when it could
	// not parse the previous command (TFI slot carries 0x7F).
	KindSyntaxError
)

// Frame is a fully validated information frame extracted from the byte
// stream, with the preamble, length, checksums, and TFI already stripped.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

// Framer accumulates bytes read from a PN532 transport and extracts ACK
// frames and information frames from the stream. A single I2C read may
// return an ACK concatenated with a response, or a response spanning
// multiple reads, so the buffer is append-only and resumable across calls
// to Feed.
type Framer struct {
	buf []byte
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Reset discards any buffered bytes, for use after a controller
// reinitialize.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}

// BuildInformationFrame wraps payload (already including its command byte)
// into a complete host-to-PN532 information frame: preamble, start code,
// length, length checksum, TFI, payload, data checksum, postamble.
func BuildInformationFrame(payload []byte) []byte {
	length := len(payload) + 1 // + TFI
	out := GetBuffer(length + 7)
	out = out[:0]
	out = append(out, Preamble, StartCode1, StartCode2)
	out = append(out, byte(length), CalculateLengthChecksum(byte(length)))
	out = append(out, HostToPn532)
	out = append(out, payload...)
	out = append(out, CalculateDataChecksum(HostToPn532, payload), Postamble)
	return out
}

// Feed appends chunk to the internal buffer.
func (f *Framer) Feed(chunk []byte) {
	f.buf = append(f.buf, chunk...)
}

// Len reports the number of buffered, not-yet-consumed bytes.
func (f *Framer) Len() int {
	return len(f.buf)
}

// TryExtractAck scans the buffer for the ACK literal. If found, it consumes
// everything up to and including the ACK's last byte and returns true.
func (f *Framer) TryExtractAck() bool {
	idx := indexOf(f.buf, AckFrame)
	if idx < 0 {
		return false
	}
	f.buf = f.buf[idx+len(AckFrame):]
	return true
}

// TryExtractFrame advances the buffer to the next frame header, validates
// its checksums, and returns the decoded frame. It returns (nil, false)
// when no complete, valid frame is yet available — either because the
// buffer holds no header at all, or because a header is present but the
// frame body has not fully arrived. Checksum or TFI violations are resynced
// silently: three bytes are dropped at the offending header and the scan
// resumes, so a single call may consume multiple bad headers before
// returning.
func (f *Framer) TryExtractFrame() (*Frame, bool) {
	for {
		start := indexOf(f.buf, []byte{Preamble, StartCode1, StartCode2})
		if start < 0 {
			// No header anywhere in the buffer. Keep the last two bytes in
			// case they are the first two bytes of a header split across
			// chunks; discard the rest.
			if len(f.buf) > 2 {
				f.buf = f.buf[len(f.buf)-2:]
			}
			return nil, false
		}
		if start > 0 {
			f.buf = f.buf[start:]
		}

		if len(f.buf) < 5 {
			// Header present but length/LCS not yet arrived.
			return nil, false
		}
		length := f.buf[3]
		lcs := f.buf[4]
		if length+lcs != 0 {
			f.buf = dropResync(f.buf)
			continue
		}

		// total = 3 (preamble,startcode1,startcode2) + 1(len) + 1(lcs) +
		// length(TFI+data) + 1(dcs) + 1(postamble)
		total := 3 + 1 + 1 + int(length) + 1 + 1
		if len(f.buf) < total {
			// Full frame has not arrived yet.
			return nil, false
		}

		// tfiData is the TFI-slot byte followed by the frame's data bytes,
		// together `length` bytes long; dcs is the trailing data checksum.
		tfiData := f.buf[5 : 5+int(length)]
		dcs := f.buf[5+int(length)]
		tfiSlot := tfiData[0]

		checksum := dcs
		for _, b := range tfiData {
			checksum += b
		}
		if checksum != 0 {
			f.buf = dropResync(f.buf)
			continue
		}

		switch {
		case tfiSlot == 0x7F:
			f.buf = f.buf[total:]
			return &Frame{Kind: KindSyntaxError, Payload: []byte{0x7F}}, true
		case tfiSlot == Pn532ToHost:
			payload := make([]byte, len(tfiData)-1)
			copy(payload, tfiData[1:])
			f.buf = f.buf[total:]
			return &Frame{Kind: KindResponse, Payload: payload}, true
		default:
			f.buf = dropResync(f.buf)
			continue
		}
	}
}

// dropResync drops the three bytes at the current start-of-frame and
// returns the remaining buffer, per the framer's resync policy.
func dropResync(buf []byte) []byte {
	if len(buf) <= 3 {
		return buf[:0]
	}
	return buf[3:]
}

// indexOf finds the first occurrence of sub in buf, or -1.
func indexOf(buf, sub []byte) int {
	if len(sub) == 0 || len(buf) < len(sub) {
		return -1
	}
	for i := 0; i+len(sub) <= len(buf); i++ {
		match := true
		for j := range sub {
			if buf[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
