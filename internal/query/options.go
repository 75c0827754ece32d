package query

import (
	"fmt"
	"strings"
)

// Format is the wire format requested from the API. The zero value means the
// parameter is omitted and the server default (JSON) applies.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown format %q: expected json or csv", s)
}

// Language selects localized labels. The zero value behaves like LangJP.
type Language string

const (
	LangJP Language = "jp"
	LangEN Language = "en"
)

// ParseLanguage accepts "jp" or "en" in any case.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jp":
		return LangJP, nil
	case "en":
		return LangEN, nil
	}
	return "", fmt.Errorf("unknown language %q: expected jp or en", s)
}

// Frequency is the sampling cadence used by getDataLayer.
type Frequency string

const (
	FreqCY Frequency = "CY" // calendar year
	FreqFY Frequency = "FY" // fiscal year
	FreqCH Frequency = "CH" // calendar half-year
	FreqFH Frequency = "FH" // fiscal half-year
	FreqQ  Frequency = "Q"
	FreqM  Frequency = "M"
	FreqW  Frequency = "W"
	FreqD  Frequency = "D"
)

// Frequencies lists every frequency in documentation order.
var Frequencies = []Frequency{FreqCY, FreqFY, FreqCH, FreqFH, FreqQ, FreqM, FreqW, FreqD}

// ParseFrequency accepts a frequency code in any case.
func ParseFrequency(s string) (Frequency, error) {
	up := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	for _, f := range Frequencies {
		if f == up {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown frequency %q: expected one of CY FY CH FH Q M W D", s)
}

// CSVEncoding is the character encoding expected for a CSV body.
type CSVEncoding int

const (
	ShiftJIS CSVEncoding = iota
	UTF8
)

func (e CSVEncoding) String() string {
	if e == UTF8 {
		return "UTF-8"
	}
	return "Shift_JIS"
}

// ParseCSVEncoding accepts "sjis", "shift_jis", "shift-jis" or "utf-8"/"utf8".
func ParseCSVEncoding(s string) (CSVEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sjis", "shift_jis", "shift-jis", "shiftjis":
		return ShiftJIS, nil
	case "utf-8", "utf8":
		return UTF8, nil
	}
	return ShiftJIS, fmt.Errorf("unknown CSV encoding %q: expected shift_jis or utf-8", s)
}

// csvEncodingFor maps the requested language to the encoding the server uses
// for CSV bodies: Japanese output is Shift_JIS, English output is UTF-8.
func csvEncodingFor(lang Language) CSVEncoding {
	if lang == LangEN {
		return UTF8
	}
	return ShiftJIS
}
