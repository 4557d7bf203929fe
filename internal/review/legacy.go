package review

import (
	"bytes"
	"regexp"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// One generation of the review store was written UTF-16 with broken escape
// sequences, so it cannot be fed to a strict JSON parser. RecoverLegacy
// reconstructs key/status/reason triples with regexes instead; entries it
// cannot make sense of are omitted and the operator reconciles counts by
// hand.

var (
	entryPattern  = regexp.MustCompile(`"((?:[^"\\]|\\.)+?)"\s*:\s*\{([^{}]*)\}`)
	statusPattern = regexp.MustCompile(`"status"\s*:\s*"(pending|approved|rejected)"`)
	reasonPattern = regexp.MustCompile(`"reason"\s*:\s*"(.*?)"\s*[,}\n]`)
	timePattern   = regexp.MustCompile(`"time"\s*:\s*"([^"]*)"`)
)

// RecoverLegacy extracts whatever decisions it can from a corrupt store
// file. UTF-16 input (BOM-detected) is transcoded first.
func RecoverLegacy(data []byte) map[string]Decision {
	text := decodeMaybeUTF16(data)

	decisions := make(map[string]Decision)
	for _, m := range entryPattern.FindAllStringSubmatch(text, -1) {
		key, body := m[1], m[2]

		sm := statusPattern.FindStringSubmatch(body)
		if sm == nil {
			continue // status is the one field we refuse to guess
		}
		d := Decision{Status: sm[1]}

		if rm := reasonPattern.FindStringSubmatch(body); rm != nil {
			d.Reason = rm[1]
		}
		if tm := timePattern.FindStringSubmatch(body); tm != nil {
			if t, err := time.Parse(time.RFC3339, tm[1]); err == nil {
				d.Time = t
			}
		}
		decisions[key] = d
	}
	return decisions
}

// decodeMaybeUTF16 transcodes UTF-16 input to UTF-8 when a BOM is present,
// and otherwise returns the input as-is.
func decodeMaybeUTF16(data []byte) string {
	if len(data) < 2 {
		return string(data)
	}

	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	default:
		return string(data)
	}

	out, err := dec.Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
