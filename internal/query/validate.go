// Package query validates request parameters and builds the ordered wire
// parameters for the getDataCode, getDataLayer and getMetadata endpoints.
// Nothing here touches the network; every failure is a
// *bojerr.ValidationError.
package query

import (
	"strconv"
	"strings"

	"github.com/explorrrr/boj-client/internal/bojerr"
)

const (
	// MaxCodes is the largest number of series codes one getDataCode request
	// may carry.
	MaxCodes = 1250
	// MaxLayers is the deepest layer path getDataLayer accepts.
	MaxLayers = 5

	minYear = 1850
	maxYear = 2050

	forbiddenChars = `<>!|\;'"`
)

// ─── Identifiers ──────────────────────────────────────────────────────────────

// ValidateIdentifier rejects blank values, non-ASCII values and values
// containing any of < > ! | \ ; ' ". name is used in the error message.
func ValidateIdentifier(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return bojerr.Validation("%s is required", name)
	}
	for i := 0; i < len(value); i++ {
		if value[i] > 0x7f {
			return bojerr.Validation("%s must use ASCII characters only", name)
		}
	}
	if strings.ContainsAny(value, forbiddenChars) {
		return bojerr.Validation("%s contains forbidden character", name)
	}
	return nil
}

// ValidateDB checks a database code.
func ValidateDB(value string) error {
	if err := ValidateIdentifier("DB", value); err != nil {
		return err
	}
	if strings.Contains(value, ",") {
		return bojerr.Validation("DB must not include comma")
	}
	return nil
}

// ValidateCode checks a single series code. Codes travel comma-joined in one
// parameter, so a code may not contain a comma itself.
func ValidateCode(value string) error {
	if err := ValidateIdentifier("CODE", value); err != nil {
		return err
	}
	if strings.Contains(value, ",") {
		return bojerr.Validation("CODE must be passed as separate items, not comma-containing strings")
	}
	return nil
}

// ValidateCodeList checks that 1..MaxCodes codes are given and each is valid.
func ValidateCodeList(values []string) error {
	if len(values) == 0 {
		return bojerr.Validation("CODE is required")
	}
	if len(values) > MaxCodes {
		return bojerr.Validation("CODE must contain %d or fewer series codes", MaxCodes)
	}
	for _, v := range values {
		if err := ValidateCode(v); err != nil {
			return err
		}
	}
	return nil
}

// ─── Layers ───────────────────────────────────────────────────────────────────

// LayerValue is one level of a layer path: either the wildcard or a
// positive index.
type LayerValue struct {
	Wildcard bool
	Index    uint32
}

// Wildcard selects every entry at a layer level.
var Wildcard = LayerValue{Wildcard: true}

// String returns the wire form: "*" or the decimal index.
func (v LayerValue) String() string {
	if v.Wildcard {
		return "*"
	}
	return strconv.FormatUint(uint64(v.Index), 10)
}

// ParseLayerToken parses "*" or a positive base-10 integer.
func ParseLayerToken(value string) (LayerValue, error) {
	if err := ValidateIdentifier("LAYER", value); err != nil {
		return LayerValue{}, err
	}
	if value == "*" {
		return Wildcard, nil
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return LayerValue{}, bojerr.Validation("LAYER value must be '*' or a positive integer")
	}
	return LayerValue{Index: uint32(n)}, nil
}

// ValidateLayerToken reports whether value is an acceptable layer token.
func ValidateLayerToken(value string) error {
	_, err := ParseLayerToken(value)
	return err
}

// ─── Dates ────────────────────────────────────────────────────────────────────

// ValidateDateGeneric accepts YYYY or YYYYXX with XX in 01..12 and the year
// in 1850..2050.
func ValidateDateGeneric(value string) error {
	if !allDigits(value) {
		return bojerr.Validation("date must be numeric")
	}
	switch len(value) {
	case 4:
		return validateYear(value)
	case 6:
		if err := validateYear(value[:4]); err != nil {
			return err
		}
		if s := suffix(value); s < 1 || s > 12 {
			return bojerr.Validation("date suffix must be between 01 and 12")
		}
		return nil
	}
	return bojerr.Validation("date format must be YYYY or YYYYXX (XX=01..12)")
}

// ValidateDateForFrequency applies the shape rule for freq: CY/FY take YYYY,
// CH/FH take YYYY01..YYYY02, Q takes YYYY01..YYYY04 and M/W/D take
// YYYY01..YYYY12.
func ValidateDateForFrequency(value string, freq Frequency) error {
	if !allDigits(value) {
		return bojerr.Validation("date must be numeric")
	}
	switch freq {
	case FreqCY, FreqFY:
		if len(value) != 4 {
			return bojerr.Validation("date format for CY/FY must be YYYY")
		}
		return validateYear(value)
	case FreqCH, FreqFH:
		return validateYYYYXX(value, 1, 2, "CH/FH")
	case FreqQ:
		return validateYYYYXX(value, 1, 4, "Q")
	case FreqM, FreqW, FreqD:
		return validateYYYYXX(value, 1, 12, "M/W/D")
	}
	return bojerr.Validation("FREQUENCY %q is not supported", string(freq))
}

// ValidateDateOrder requires start and end to share a shape and start <= end.
// Both are fixed-width digit strings, so byte order is date order.
func ValidateDateOrder(start, end string) error {
	if len(start) != len(end) {
		return bojerr.Validation("STARTDATE and ENDDATE formats must match")
	}
	if start > end {
		return bojerr.Validation("STARTDATE must be earlier than or equal to ENDDATE")
	}
	return nil
}

// ValidateStartPosition rejects zero.
func ValidateStartPosition(value uint32) error {
	if value == 0 {
		return bojerr.Validation("STARTPOSITION must be >= 1")
	}
	return nil
}

func validateYYYYXX(value string, lo, hi int, label string) error {
	if len(value) != 6 {
		return bojerr.Validation("date format for %s must be YYYYXX", label)
	}
	if err := validateYear(value[:4]); err != nil {
		return err
	}
	if s := suffix(value); s < lo || s > hi {
		return bojerr.Validation("date suffix for %s must be between %02d and %02d", label, lo, hi)
	}
	return nil
}

func validateYear(digits string) error {
	y, _ := strconv.Atoi(digits)
	if y < minYear || y > maxYear {
		return bojerr.Validation("year must be between %d and %d", minYear, maxYear)
	}
	return nil
}

// suffix returns the two digits after the year; callers have checked the
// value is six ASCII digits.
func suffix(value string) int {
	return int(value[4]-'0')*10 + int(value[5]-'0')
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
