package ndef

import (
	"fmt"
	"strings"

	gondef "github.com/hsanjuan/go-ndef"
)

// mediaTypePrefix marks a Record.Type value of the shape "media:<mime>",
// matching how ashitaka1-go-pn532's parser tags generic media records it
// doesn't have a dedicated Go type for.
const mediaTypePrefix = "media:"

// BuildMessage assembles records into a complete, marshaled NDEF message
// using go-ndef, mirroring ashitaka1-go-pn532's BuildNDEFMessageEx: message
// begin/end flags are set on the first/last record, and the whole message
// is size-checked before and after marshaling.
func BuildMessage(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecord
	}
	if len(records) > MaxRecordCount {
		return nil, fmt.Errorf("%w: %d records exceeds limit of %d", ErrSecurityViolation, len(records), MaxRecordCount)
	}

	msg := &gondef.Message{Records: make([]*gondef.Record, 0, len(records))}
	totalSize := 0
	for i := range records {
		if len(records[i].Payload) > MaxPayloadSize {
			return nil, fmt.Errorf("%w: record %d payload size %d exceeds limit of %d",
				ErrSecurityViolation, i, len(records[i].Payload), MaxPayloadSize)
		}
		totalSize += len(records[i].Payload) + 16 // header overhead estimate
		if totalSize > MaxMessageSize {
			return nil, fmt.Errorf("%w: total message size would exceed %d", ErrSecurityViolation, MaxMessageSize)
		}

		rec, err := buildRecord(&records[i])
		if err != nil {
			return nil, fmt.Errorf("building record %d: %w", i, err)
		}
		msg.Records = append(msg.Records, rec)
	}

	msg.Records[0].SetMB(true)
	msg.Records[len(msg.Records)-1].SetME(true)

	payload, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshaling NDEF message: %w", err)
	}
	if len(payload) > MaxMessageSize {
		return nil, fmt.Errorf("%w: marshaled size %d exceeds limit of %d", ErrSecurityViolation, len(payload), MaxMessageSize)
	}
	return payload, nil
}

// ParseMessage decodes a marshaled NDEF message using go-ndef and converts
// its records into this package's Message shape, skipping any record whose
// type it doesn't recognize.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, ErrNoRecord
	}
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrSecurityViolation, len(data), MaxMessageSize)
	}

	raw := &gondef.Message{}
	if _, err := raw.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	result := &Message{Records: make([]Record, 0, len(raw.Records))}
	for _, rec := range raw.Records {
		converted, err := convertRecord(rec)
		if err != nil {
			continue // skip records we can't interpret, per the pack's own parser
		}
		result.Records = append(result.Records, *converted)
	}
	if len(result.Records) == 0 {
		return nil, ErrNoRecord
	}
	return result, nil
}

func buildRecord(rec *Record) (*gondef.Record, error) {
	var built *gondef.Record
	switch rec.Type {
	case RecordTypeText:
		built = gondef.NewTextRecord(rec.Text, "en")
	case RecordTypeURI:
		built = gondef.NewURIRecord(rec.URI)
	case RecordTypeSmartPoster:
		return nil, fmt.Errorf("%w: smart poster records", ErrUnsupportedRecord)
	default:
		mediaType, ok := strings.CutPrefix(string(rec.Type), mediaTypePrefix)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRecord, rec.Type)
		}
		built = gondef.NewMediaRecord(mediaType, rec.Payload)
	}

	// The message builder sets MB/ME on the first/last record afterward.
	built.SetMB(false)
	built.SetME(false)
	return built, nil
}

func convertRecord(rec *gondef.Record) (*Record, error) {
	payload, err := rec.Payload()
	if err != nil {
		return nil, fmt.Errorf("reading record payload: %w", err)
	}
	payloadBytes := payload.Marshal()

	switch rec.TNF() {
	case gondef.NFCForumWellKnownType:
		return convertWellKnown(rec, payloadBytes)
	case gondef.MediaType:
		return &Record{Type: RecordType(mediaTypePrefix + rec.Type()), Payload: payloadBytes}, nil
	default:
		return nil, fmt.Errorf("%w: TNF %v", ErrUnsupportedRecord, rec.TNF())
	}
}

func convertWellKnown(rec *gondef.Record, payloadBytes []byte) (*Record, error) {
	switch rec.Type() {
	case "T":
		text, err := parseTextPayload(payloadBytes)
		if err != nil {
			return nil, err
		}
		return &Record{Type: RecordTypeText, Text: text}, nil
	case "U":
		uri, err := DecodeURI(rawURIRecord(payloadBytes))
		if err != nil {
			return nil, err
		}
		return &Record{Type: RecordTypeURI, URI: uri}, nil
	case "Sp":
		return &Record{Type: RecordTypeSmartPoster, Payload: payloadBytes}, nil
	default:
		return nil, fmt.Errorf("%w: well-known type %q", ErrUnsupportedRecord, rec.Type())
	}
}

// rawURIRecord re-wraps a go-ndef URI payload (prefix code + remainder,
// without the record header go-ndef already stripped) into the header
// shape DecodeURI expects, so the same bit-exact decoder in uri.go serves
// both callers.
func rawURIRecord(payload []byte) []byte {
	out := make([]byte, 0, 4+len(payload))
	out = append(out, flagMB|flagME|flagSR|TNFWellKnown)
	out = append(out, 0x01, byte(len(payload)), 'U')
	out = append(out, payload...)
	return out
}

// parseTextPayload parses an RTD-TEXT 1.0 payload: a status byte (bit 6
// selects UTF-8/UTF-16, bits 0-5 give the language-code length) followed
// by the language code and then the text.
func parseTextPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", fmt.Errorf("%w: empty text payload", ErrInvalidMessage)
	}
	langLen := int(payload[0] & 0x3F)
	if len(payload) < 1+langLen {
		return "", fmt.Errorf("%w: text payload shorter than declared language code", ErrInvalidMessage)
	}
	return string(payload[1+langLen:]), nil
}
