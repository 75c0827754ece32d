package query

import "strings"

// MetadataQuery is a validated getMetadata request.
type MetadataQuery struct {
	db     string
	format Format
	lang   Language
}

// NewMetadataQuery validates db.
func NewMetadataQuery(db string) (MetadataQuery, error) {
	if err := ValidateDB(db); err != nil {
		return MetadataQuery{}, err
	}
	return MetadataQuery{db: strings.ToUpper(db)}, nil
}

// WithFormat sets the response format.
func (q MetadataQuery) WithFormat(f Format) MetadataQuery {
	q.format = f
	return q
}

// WithLang sets the response language.
func (q MetadataQuery) WithLang(l Language) MetadataQuery {
	q.lang = l
	return q
}

func (q MetadataQuery) DB() string { return q.db }
func (q MetadataQuery) Format() Format { return q.format }
func (q MetadataQuery) Lang() Language { return q.lang }
func (q MetadataQuery) Endpoint() string { return EndpointMetadata }
func (q MetadataQuery) CSVEncoding() CSVEncoding { return csvEncodingFor(q.lang) }

// Params returns format, lang and db, omitting unset optionals.
func (q MetadataQuery) Params() []Param {
	var p params
	p.opt("format", string(q.format))
	p.opt("lang", string(q.lang))
	p.add("db", q.db)
	return p
}
