// Package ndef implements the NFC Data Exchange Format records the bridge
// exchanges with a tapping phone. Component D — the bit-exact URI codec
// spec's card-emulation path actually uses — lives in uri.go and is
// hand-rolled for byte-exact determinism; this file and records.go carry
// the broader NDEFMessage/NDEFRecord surface recovered from the pack's
// ashitaka1-go-pn532 fork, built on the real github.com/hsanjuan/go-ndef
// library the way that fork's ndef_parser.go does, kept as general-purpose
// encode/decode support even though the session manager itself only ever
// emits a single URI record.
package ndef

import "errors"

// RecordType names a well-known or media NDEF record shape this package
// knows how to build and parse.
type RecordType string

const (
	RecordTypeText        RecordType = "text"
	RecordTypeURI         RecordType = "uri"
	RecordTypeSmartPoster RecordType = "smartposter"
)

// TNF (Type Name Format) values, per NFC Forum, and the record-header flag
// bits built directly by uri.go's hand-rolled codec (go-ndef handles these
// internally for records.go's path; the URI codec needs them at the byte
// level to guarantee the exact wire shape spec §4.D mandates).
const (
	TNFWellKnown byte = 0x01

	tnfMask           = 0x07
	flagMB            = 0x80
	flagME            = 0x40
	flagSR            = 0x10
	shortRecordMaxLen = 255
)

// Security limits on message shape, matching the pack's own NDEF surface:
// a phone-facing decoder must reject absurd lengths before allocating.
const (
	MaxMessageSize = 8192
	MaxRecordCount = 255
	MaxPayloadSize = 4096
)

var (
	ErrNoRecord          = errors.New("ndef: no record found")
	ErrInvalidMessage    = errors.New("ndef: invalid message format")
	ErrUnsupportedRecord = errors.New("ndef: unsupported record type")
	ErrSecurityViolation = errors.New("ndef: data exceeds safety limits")
	ErrTruncatedRecord   = errors.New("ndef: truncated record data")
	ErrInvalidTNF        = errors.New("ndef: invalid TNF value")
)

// Message is this package's domain-level view of an NDEF message: a plain
// slice of typed records, independent of go-ndef's own wire-level Record
// representation (which records.go converts to and from).
type Message struct {
	Records []Record
}

// Record is a single decoded NDEF record. Exactly one of Text/URI/Payload
// is populated, according to Type.
type Record struct {
	Type    RecordType
	Text    string
	URI     string
	Payload []byte
}
