package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/explorrrr/boj-client/internal/bojerr"
)

// Param is one key/value wire parameter.
type Param struct {
	Key   string
	Value string
}

type params []Param

func (p *params) add(k, v string) { *p = append(*p, Param{Key: k, Value: v}) }

func (p *params) opt(k, v string) {
	if v != "" {
		p.add(k, v)
	}
}

// ─── URL building ─────────────────────────────────────────────────────────────

// BuildURL joins base and endpoint and appends params in order. Keys and
// values are percent-encoded with only RFC 3986 unreserved characters left
// as is, so "A,B" travels as "A%2CB" and a space as "%20".
func BuildURL(base, endpoint string, params []Param) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteString(endpoint)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(escape(p.Key))
		b.WriteByte('=')
		b.WriteString(escape(p.Value))
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FromValues converts url.Values into a parameter list. Order is not
// significant for parsing; only the first value of each key is used.
func FromValues(v url.Values) []Param {
	out := make([]Param, 0, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out = append(out, Param{Key: k, Value: vals[0]})
		}
	}
	return out
}

// ─── Parsing ──────────────────────────────────────────────────────────────────

// paramSet indexes parameters by lowercased key.
type paramSet map[string]string

func index(ps []Param, allowed ...string) (paramSet, error) {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	set := make(paramSet, len(ps))
	for _, p := range ps {
		k := strings.ToLower(p.Key)
		if !ok[k] {
			return nil, bojerr.Validation("parameter %q is not supported by this endpoint", p.Key)
		}
		set[k] = p.Value
	}
	return set, nil
}

func (s paramSet) format() (Format, error) {
	v, ok := s["format"]
	if !ok {
		return "", nil
	}
	f, err := ParseFormat(v)
	if err != nil {
		return "", bojerr.Validation("FORMAT must be json or csv")
	}
	return f, nil
}

func (s paramSet) lang() (Language, error) {
	v, ok := s["lang"]
	if !ok {
		return "", nil
	}
	l, err := ParseLanguage(v)
	if err != nil {
		return "", bojerr.Validation("LANG must be jp or en")
	}
	return l, nil
}

func (s paramSet) startPosition() (uint32, bool, error) {
	v, ok := s["startposition"]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0, false, bojerr.Validation("STARTPOSITION must be a positive integer")
	}
	return uint32(n), true, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// ParseCodeParams rebuilds a CodeQuery from wire parameters, applying the
// same validation as the builder. Keys match case-insensitively.
func ParseCodeParams(ps []Param) (CodeQuery, error) {
	s, err := index(ps, "format", "lang", "db", "code", "startdate", "enddate", "startposition")
	if err != nil {
		return CodeQuery{}, err
	}
	q, err := NewCodeQuery(s["db"], splitList(s["code"]))
	if err != nil {
		return CodeQuery{}, err
	}
	f, err := s.format()
	if err != nil {
		return CodeQuery{}, err
	}
	l, err := s.lang()
	if err != nil {
		return CodeQuery{}, err
	}
	q = q.WithFormat(f).WithLang(l)
	if v, ok := s["startdate"]; ok {
		if q, err = q.WithStartDate(v); err != nil {
			return CodeQuery{}, err
		}
	}
	if v, ok := s["enddate"]; ok {
		if q, err = q.WithEndDate(v); err != nil {
			return CodeQuery{}, err
		}
	}
	if n, ok, err := s.startPosition(); err != nil {
		return CodeQuery{}, err
	} else if ok {
		if q, err = q.WithStartPosition(n); err != nil {
			return CodeQuery{}, err
		}
	}
	return q, nil
}

// ParseLayerParams rebuilds a LayerQuery from wire parameters.
func ParseLayerParams(ps []Param) (LayerQuery, error) {
	s, err := index(ps, "format", "lang", "db", "frequency", "layer", "startdate", "enddate", "startposition")
	if err != nil {
		return LayerQuery{}, err
	}
	if strings.TrimSpace(s["frequency"]) == "" {
		if err := ValidateDB(s["db"]); err != nil {
			return LayerQuery{}, err
		}
		return LayerQuery{}, bojerr.Validation("FREQUENCY is required")
	}
	q, err := NewLayerQuery(s["db"], Frequency(s["frequency"]), splitList(s["layer"]))
	if err != nil {
		return LayerQuery{}, err
	}
	f, err := s.format()
	if err != nil {
		return LayerQuery{}, err
	}
	l, err := s.lang()
	if err != nil {
		return LayerQuery{}, err
	}
	q = q.WithFormat(f).WithLang(l)
	if v, ok := s["startdate"]; ok {
		if q, err = q.WithStartDate(v); err != nil {
			return LayerQuery{}, err
		}
	}
	if v, ok := s["enddate"]; ok {
		if q, err = q.WithEndDate(v); err != nil {
			return LayerQuery{}, err
		}
	}
	if n, ok, err := s.startPosition(); err != nil {
		return LayerQuery{}, err
	} else if ok {
		if q, err = q.WithStartPosition(n); err != nil {
			return LayerQuery{}, err
		}
	}
	return q, nil
}

// ParseMetadataParams rebuilds a MetadataQuery from wire parameters.
func ParseMetadataParams(ps []Param) (MetadataQuery, error) {
	s, err := index(ps, "format", "lang", "db")
	if err != nil {
		return MetadataQuery{}, err
	}
	q, err := NewMetadataQuery(s["db"])
	if err != nil {
		return MetadataQuery{}, err
	}
	f, err := s.format()
	if err != nil {
		return MetadataQuery{}, err
	}
	l, err := s.lang()
	if err != nil {
		return MetadataQuery{}, err
	}
	return q.WithFormat(f).WithLang(l), nil
}
