// Package decode turns BOJ API response bodies into the canonical model.
// A body may be JSON or CSV regardless of the format that was requested, so
// the Decoder sniffs the bytes, consults the declared content type, and
// falls back between the two decoders. Every attempt builds a fresh
// envelope; only the final failure is returned.
package decode

import (
	"strings"

	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
)

// Options tunes decoder selection.
type Options struct {
	// FallbackToStructured retries a body declared as CSV with the JSON
	// decoder when CSV decoding fails. The API reports errors as JSON even
	// for CSV requests.
	FallbackToStructured bool

	// OnAttempt, if set, is called after every decode attempt.
	OnAttempt func(format query.Format, err error)
}

// DefaultOptions returns the options matching current server behaviour.
func DefaultOptions() Options {
	return Options{FallbackToStructured: true}
}

// Decoder selects a wire decoder per body. The zero value does not fall back
// from CSV to JSON; use New or DefaultOptions for the usual behaviour.
type Decoder struct {
	opts Options
}

// New returns a Decoder with opts.
func New(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

var defaultDecoder = New(DefaultOptions())

// DecodeCode decodes a getDataCode body with the default options.
func DecodeCode(body []byte, contentType string, hint query.CSVEncoding) (*model.CodeResponse, error) {
	return defaultDecoder.DecodeCode(body, contentType, hint)
}

// DecodeLayer decodes a getDataLayer body with the default options.
func DecodeLayer(body []byte, contentType string, hint query.CSVEncoding) (*model.LayerResponse, error) {
	return defaultDecoder.DecodeLayer(body, contentType, hint)
}

// DecodeMetadata decodes a getMetadata body with the default options.
func DecodeMetadata(body []byte, contentType string, hint query.CSVEncoding) (*model.MetadataResponse, error) {
	return defaultDecoder.DecodeMetadata(body, contentType, hint)
}

// DecodeCode decodes a getDataCode body.
func (d *Decoder) DecodeCode(body []byte, contentType string, hint query.CSVEncoding) (*model.CodeResponse, error) {
	return run(d, body, contentType, hint, DecodeCodeJSON, DecodeCodeCSV)
}

// DecodeLayer decodes a getDataLayer body.
func (d *Decoder) DecodeLayer(body []byte, contentType string, hint query.CSVEncoding) (*model.LayerResponse, error) {
	return run(d, body, contentType, hint, DecodeLayerJSON, DecodeLayerCSV)
}

// DecodeMetadata decodes a getMetadata body.
func (d *Decoder) DecodeMetadata(body []byte, contentType string, hint query.CSVEncoding) (*model.MetadataResponse, error) {
	return run(d, body, contentType, hint, DecodeMetadataJSON, DecodeMetadataCSV)
}

// run applies the selection order:
//  1. body starts with '{' or '[': JSON only;
//  2. content type names json: JSON only; names csv: CSV, then JSON if
//     FallbackToStructured is set;
//  3. otherwise JSON, then CSV.
func run[T any](
	d *Decoder,
	body []byte,
	contentType string,
	hint query.CSVEncoding,
	fromJSON func([]byte) (T, error),
	fromCSV func([]byte, query.CSVEncoding) (T, error),
) (T, error) {
	tryJSON := func() (T, error) {
		v, err := fromJSON(body)
		d.observe(query.FormatJSON, err)
		return v, err
	}
	tryCSV := func() (T, error) {
		v, err := fromCSV(body, hint)
		d.observe(query.FormatCSV, err)
		return v, err
	}

	if LooksStructured(body) {
		return tryJSON()
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return tryJSON()
	case strings.Contains(ct, "csv"):
		v, err := tryCSV()
		if err == nil || !d.opts.FallbackToStructured {
			return v, err
		}
		return tryJSON()
	}
	if v, err := tryJSON(); err == nil {
		return v, nil
	}
	return tryCSV()
}

func (d *Decoder) observe(f query.Format, err error) {
	if d.opts.OnAttempt != nil {
		d.opts.OnAttempt(f, err)
	}
}
