package ndef

import (
	"errors"
	"fmt"
)

// uriRecordType is the well-known type byte "U" for RTD-URI 1.0.
const uriRecordType = "U"

// ErrURLTooLong is returned when a URL's prefix-abbreviated payload would
// not fit the single-byte short-record length field.
var ErrURLTooLong = errors.New("ndef: URL too long for a short NDEF record")

// uriPrefixes is the full RTD-URI 1.0 abbreviation table (NFC Forum
// "URI Record Type Definition", Technical Specification, table 3).
// Longest-match wins when encoding, so entries sharing a leading substring
// (http:// vs http://www.) are tried longest-first in EncodeURI.
var uriPrefixes = [...]string{
	0x00: "",
	0x01: "http://www.",
	0x02: "https://www.",
	0x03: "http://",
	0x04: "https://",
	0x05: "tel:",
	0x06: "mailto:",
	0x07: "ftp://anonymous:anonymous@",
	0x08: "ftp://ftp.",
	0x09: "ftps://",
	0x0A: "sftp://",
	0x0B: "smb://",
	0x0C: "nfs://",
	0x0D: "ftp://",
	0x0E: "dav://",
	0x0F: "news:",
	0x10: "telnet://",
	0x11: "imap:",
	0x12: "rtsp://",
	0x13: "urn:",
	0x14: "pop:",
	0x15: "sip:",
	0x16: "sips:",
	0x17: "tftp:",
	0x18: "btspp://",
	0x19: "btl2cap://",
	0x1A: "btgoep://",
	0x1B: "tcpobex://",
	0x1C: "irdaobex://",
	0x1D: "file://",
	0x1E: "urn:epc:id:",
	0x1F: "urn:epc:tag:",
	0x20: "urn:epc:pat:",
	0x21: "urn:epc:raw:",
	0x22: "urn:epc:",
	0x23: "urn:nfc:",
}

// prefixOrder tries longer, more specific prefixes before their shorter
// substrings so e.g. "https://www." wins over "https://" when both match.
var prefixOrder = buildPrefixOrder()

func buildPrefixOrder() []byte {
	order := make([]byte, 0, len(uriPrefixes)-1)
	for code := range uriPrefixes {
		if code == 0 {
			continue
		}
		order = append(order, byte(code))
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && len(uriPrefixes[order[j]]) > len(uriPrefixes[order[j-1]]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

// maxURIRecordLen bounds the full encoded record (4 header bytes plus
// payload), not just the payload itself: the record is later embedded
// whole in TgInitAsTarget's general-bytes TLV, which carries its own
// single-byte length field (pn532.maxGeneralBytesLen), so anything past
// 255 total bytes here would silently overflow one layer down. This is
// tighter than shortRecordMaxLen (the payload-length field's own 255-byte
// range), which alone is not sufficient to guarantee the whole record fits.
const maxURIRecordLen = 255

// EncodeURI builds a single, short-record, MB+ME NDEF message with a URI
// well-known-type record for url, per spec §4.D:
// flags(0xD1) | type_length(0x01) | payload_length | "U" | prefix_code | remainder.
func EncodeURI(url string) ([]byte, error) {
	code, remainder := matchPrefix(url)

	payloadLen := 1 + len(remainder)
	if payloadLen > shortRecordMaxLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrURLTooLong, payloadLen)
	}
	if recordLen := 4 + payloadLen; recordLen > maxURIRecordLen {
		return nil, fmt.Errorf("%w: encoded record is %d bytes", ErrURLTooLong, recordLen)
	}

	out := make([]byte, 0, 4+payloadLen)
	out = append(out, flagMB|flagME|flagSR|TNFWellKnown)
	out = append(out, 0x01)
	out = append(out, byte(payloadLen))
	out = append(out, uriRecordType[0])
	out = append(out, code)
	out = append(out, remainder...)
	return out, nil
}

// matchPrefix finds the longest uriPrefixes entry that url starts with,
// returning its code and the URL with that prefix stripped. If nothing
// matches, it returns code 0x00 and the full URL unabbreviated.
func matchPrefix(url string) (byte, string) {
	for _, code := range prefixOrder {
		prefix := uriPrefixes[code]
		if len(url) >= len(prefix) && url[:len(prefix)] == prefix {
			return code, url[len(prefix):]
		}
	}
	return 0x00, url
}

// DecodeURI is the inverse of EncodeURI: given a single URI-record NDEF
// message, it reconstructs the original URL.
func DecodeURI(data []byte) (string, error) {
	if len(data) < 5 {
		return "", ErrTruncatedRecord
	}
	flags := data[0]
	if flags&tnfMask != TNFWellKnown {
		return "", fmt.Errorf("%w: expected TNFWellKnown, got %#x", ErrInvalidTNF, flags&tnfMask)
	}
	typeLen := int(data[1])
	if typeLen != 1 || data[3] != uriRecordType[0] {
		return "", fmt.Errorf("%w: not a URI record", ErrInvalidTNF)
	}

	payloadLen := int(data[2])
	if 3+1+payloadLen > len(data) {
		return "", ErrTruncatedRecord
	}
	payload := data[4 : 4+payloadLen]
	if len(payload) == 0 {
		return "", ErrTruncatedRecord
	}

	code := payload[0]
	prefix, ok := lookupPrefix(code)
	if !ok {
		return "", fmt.Errorf("%w: unknown URI prefix code %#x", ErrInvalidTNF, code)
	}
	return prefix + string(payload[1:]), nil
}

func lookupPrefix(code byte) (string, bool) {
	if int(code) >= len(uriPrefixes) {
		return "", false
	}
	return uriPrefixes[code], true
}
