package query

import (
	"strconv"
	"strings"

	"github.com/explorrrr/boj-client/internal/bojerr"
)

// LayerQuery is a validated getDataLayer request. Dates are checked against
// the shape its frequency allows.
type LayerQuery struct {
	db            string
	frequency     Frequency
	layers        []LayerValue
	format        Format
	lang          Language
	startDate     string
	endDate       string
	startPosition uint32
}

// NewLayerQuery validates db, freq and 1..5 layer tokens.
func NewLayerQuery(db string, freq Frequency, layers []string) (LayerQuery, error) {
	if err := ValidateDB(db); err != nil {
		return LayerQuery{}, err
	}
	f, err := ParseFrequency(string(freq))
	if err != nil {
		return LayerQuery{}, bojerr.Validation("FREQUENCY %q is not supported", string(freq))
	}
	if len(layers) == 0 {
		return LayerQuery{}, bojerr.Validation("LAYER is required")
	}
	if len(layers) > MaxLayers {
		return LayerQuery{}, bojerr.Validation("LAYER accepts 1 to %d levels only", MaxLayers)
	}
	parsed := make([]LayerValue, 0, len(layers))
	for _, l := range layers {
		v, err := ParseLayerToken(l)
		if err != nil {
			return LayerQuery{}, err
		}
		parsed = append(parsed, v)
	}
	return LayerQuery{
		db:        strings.ToUpper(db),
		frequency: f,
		layers:    parsed,
	}, nil
}

// WithFormat sets the response format.
func (q LayerQuery) WithFormat(f Format) LayerQuery {
	q.format = f
	return q
}

// WithLang sets the response language.
func (q LayerQuery) WithLang(l Language) LayerQuery {
	q.lang = l
	return q
}

// WithStartDate sets startDate in the shape the frequency requires.
func (q LayerQuery) WithStartDate(v string) (LayerQuery, error) {
	if err := ValidateDateForFrequency(v, q.frequency); err != nil {
		return q, err
	}
	if q.endDate != "" {
		if err := ValidateDateOrder(v, q.endDate); err != nil {
			return q, err
		}
	}
	q.startDate = v
	return q, nil
}

// WithEndDate sets endDate in the shape the frequency requires.
func (q LayerQuery) WithEndDate(v string) (LayerQuery, error) {
	if err := ValidateDateForFrequency(v, q.frequency); err != nil {
		return q, err
	}
	if q.startDate != "" {
		if err := ValidateDateOrder(q.startDate, v); err != nil {
			return q, err
		}
	}
	q.endDate = v
	return q, nil
}

// WithStartPosition sets the 1-based pagination cursor.
func (q LayerQuery) WithStartPosition(n uint32) (LayerQuery, error) {
	if err := ValidateStartPosition(n); err != nil {
		return q, err
	}
	q.startPosition = n
	return q, nil
}

func (q LayerQuery) DB() string { return q.db }
func (q LayerQuery) Frequency() Frequency { return q.frequency }
func (q LayerQuery) Layers() []LayerValue { return append([]LayerValue(nil), q.layers...) }
func (q LayerQuery) Format() Format { return q.format }
func (q LayerQuery) Lang() Language { return q.lang }
func (q LayerQuery) StartDate() string { return q.startDate }
func (q LayerQuery) EndDate() string { return q.endDate }
func (q LayerQuery) StartPosition() uint32 { return q.startPosition }
func (q LayerQuery) Endpoint() string { return EndpointLayer }
func (q LayerQuery) CSVEncoding() CSVEncoding { return csvEncodingFor(q.lang) }

// Params returns the wire parameters in their fixed order: format, lang, db,
// frequency, layer, startDate, endDate, startPosition.
func (q LayerQuery) Params() []Param {
	tokens := make([]string, len(q.layers))
	for i, l := range q.layers {
		tokens[i] = l.String()
	}
	var p params
	p.opt("format", string(q.format))
	p.opt("lang", string(q.lang))
	p.add("db", q.db)
	p.add("frequency", string(q.frequency))
	p.add("layer", strings.Join(tokens, ","))
	p.opt("startDate", q.startDate)
	p.opt("endDate", q.endDate)
	if q.startPosition > 0 {
		p.add("startPosition", strconv.FormatUint(uint64(q.startPosition), 10))
	}
	return p
}
