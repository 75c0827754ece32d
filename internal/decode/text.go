package decode

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/query"
)

// decodeText converts a CSV body to a string under the given encoding.
// Invalid byte sequences are an error in both encodings.
func decodeText(body []byte, enc query.CSVEncoding) (string, error) {
	if enc == query.UTF8 {
		if !utf8.Valid(body) {
			return "", bojerr.Decode("invalid UTF-8 CSV payload")
		}
		return string(body), nil
	}
	// Non-ASCII UTF-8 decodes as Shift_JIS without error, but to mojibake.
	if utf8.Valid(body) && !isASCII(body) {
		return "", bojerr.Decode("Shift-JIS CSV payload is UTF-8 encoded")
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(body)
	if err != nil {
		return "", bojerr.Decode("Shift-JIS CSV payload contains invalid byte sequence")
	}
	// Shift_JIS never maps to U+FFFD, so its presence marks a replaced byte.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", bojerr.Decode("Shift-JIS CSV payload contains invalid byte sequence")
	}
	return string(out), nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
