package query

import (
	"strconv"
	"strings"
)

// Endpoint paths.
const (
	EndpointCode     = "/api/v1/getDataCode"
	EndpointLayer    = "/api/v1/getDataLayer"
	EndpointMetadata = "/api/v1/getMetadata"
)

// CodeQuery is a validated getDataCode request. It is a value type: setters
// return a modified copy and leave the receiver untouched, so a query can be
// shared between goroutines.
type CodeQuery struct {
	db            string
	codes         []string
	format        Format
	lang          Language
	startDate     string
	endDate       string
	startPosition uint32
}

// NewCodeQuery validates db and codes and returns a query for them. db is
// uppercased; codes keep their case. The first failing check is returned.
func NewCodeQuery(db string, codes []string) (CodeQuery, error) {
	if err := ValidateDB(db); err != nil {
		return CodeQuery{}, err
	}
	if err := ValidateCodeList(codes); err != nil {
		return CodeQuery{}, err
	}
	return CodeQuery{
		db:    strings.ToUpper(db),
		codes: append([]string(nil), codes...),
	}, nil
}

// WithFormat sets the response format.
func (q CodeQuery) WithFormat(f Format) CodeQuery {
	q.format = f
	return q
}

// WithLang sets the response language.
func (q CodeQuery) WithLang(l Language) CodeQuery {
	q.lang = l
	return q
}

// WithStartDate sets startDate (YYYY or YYYYXX) and checks it against an
// already-set endDate.
func (q CodeQuery) WithStartDate(v string) (CodeQuery, error) {
	if err := ValidateDateGeneric(v); err != nil {
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

// WithEndDate sets endDate (YYYY or YYYYXX) and checks it against an
// already-set startDate.
func (q CodeQuery) WithEndDate(v string) (CodeQuery, error) {
	if err := ValidateDateGeneric(v); err != nil {
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
func (q CodeQuery) WithStartPosition(n uint32) (CodeQuery, error) {
	if err := ValidateStartPosition(n); err != nil {
		return q, err
	}
	q.startPosition = n
	return q, nil
}

func (q CodeQuery) DB() string { return q.db }
func (q CodeQuery) Codes() []string { return append([]string(nil), q.codes...) }
func (q CodeQuery) Format() Format { return q.format }
func (q CodeQuery) Lang() Language { return q.lang }
func (q CodeQuery) StartDate() string { return q.startDate }
func (q CodeQuery) EndDate() string { return q.endDate }
func (q CodeQuery) StartPosition() uint32 { return q.startPosition }
func (q CodeQuery) Endpoint() string { return EndpointCode }
func (q CodeQuery) CSVEncoding() CSVEncoding { return csvEncodingFor(q.lang) }

// Params returns the wire parameters in their fixed order: format, lang, db,
// startDate, endDate, code, startPosition. Unset optionals are omitted.
func (q CodeQuery) Params() []Param {
	var p params
	p.opt("format", string(q.format))
	p.opt("lang", string(q.lang))
	p.add("db", q.db)
	p.opt("startDate", q.startDate)
	p.opt("endDate", q.endDate)
	p.add("code", strings.Join(q.codes, ","))
	if q.startPosition > 0 {
		p.add("startPosition", strconv.FormatUint(uint64(q.startPosition), 10))
	}
	return p
}
