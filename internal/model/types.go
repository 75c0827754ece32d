// Package model defines the canonical data types used throughout boj.
// Both wire formats decode into these types, and every command returns its
// payload inside the Result envelope.
package model

import "time"

// ─── Response Types ───────────────────────────────────────────────────────────

// ResponseMeta is present in every response. Only Status 200 is success.
type ResponseMeta struct {
	Status    uint16  `json:"status"`
	MessageID string  `json:"message_id"`
	Message   string  `json:"message"`
	Date      *string `json:"date,omitempty"`
}

// OK reports whether the server signalled success.
func (m ResponseMeta) OK() bool { return m.Status == 200 }

// DataPoint is one observation. SurveyDate is never empty; Value is nil when
// the source marks the observation missing.
type DataPoint struct {
	SurveyDate string  `json:"survey_date"`
	Value      *string `json:"value"`
}

// CodeParameterEcho holds the getDataCode parameters the server reports it
// applied. Unrecognized echoed keys land in Extras.
type CodeParameterEcho struct {
	Format        *string           `json:"format,omitempty"`
	Lang          *string           `json:"lang,omitempty"`
	DB            *string           `json:"db,omitempty"`
	StartDate     *string           `json:"start_date,omitempty"`
	EndDate       *string           `json:"end_date,omitempty"`
	StartPosition *uint32           `json:"start_position,omitempty"`
	Extras        map[string]string `json:"extras,omitempty"`
}

// LayerParameterEcho is the getDataLayer counterpart of CodeParameterEcho.
type LayerParameterEcho struct {
	Format        *string           `json:"format,omitempty"`
	Lang          *string           `json:"lang,omitempty"`
	DB            *string           `json:"db,omitempty"`
	Frequency     *string           `json:"frequency,omitempty"`
	Layer1        *uint32           `json:"layer1,omitempty"`
	Layer2        *uint32           `json:"layer2,omitempty"`
	Layer3        *uint32           `json:"layer3,omitempty"`
	Layer4        *uint32           `json:"layer4,omitempty"`
	Layer5        *uint32           `json:"layer5,omitempty"`
	StartDate     *string           `json:"start_date,omitempty"`
	EndDate       *string           `json:"end_date,omitempty"`
	StartPosition *uint32           `json:"start_position,omitempty"`
	Extras        map[string]string `json:"extras,omitempty"`
}

// Series is one time series returned by getDataCode or getDataLayer.
// SeriesCode is never empty. Points keep the order the source reported.
type Series struct {
	SeriesCode string             `json:"series_code"`
	NameJ      *string            `json:"name_of_time_series_j,omitempty"`
	Name       *string            `json:"name_of_time_series,omitempty"`
	UnitJ      *string            `json:"unit_j,omitempty"`
	Unit       *string            `json:"unit,omitempty"`
	Frequency  *string            `json:"frequency,omitempty"`
	CategoryJ  *string            `json:"category_j,omitempty"`
	Category   *string            `json:"category,omitempty"`
	LastUpdate *string            `json:"last_update,omitempty"`
	Points     []DataPoint        `json:"points"`
	Extras     map[string]*string `json:"extras,omitempty"`
}

// CodeSeries and LayerSeries name the two series shapes; they carry the same
// fields.
type (
	CodeSeries  = Series
	LayerSeries = Series
)

// MetadataEntry describes one series in a getMetadata response.
type MetadataEntry struct {
	SeriesCode    *string            `json:"series_code,omitempty"`
	NameJ         *string            `json:"name_of_time_series_j,omitempty"`
	Name          *string            `json:"name_of_time_series,omitempty"`
	UnitJ         *string            `json:"unit_j,omitempty"`
	Unit          *string            `json:"unit,omitempty"`
	Frequency     *string            `json:"frequency,omitempty"`
	CategoryJ     *string            `json:"category_j,omitempty"`
	Category      *string            `json:"category,omitempty"`
	Layer1        *uint32            `json:"layer1,omitempty"`
	Layer2        *uint32            `json:"layer2,omitempty"`
	Layer3        *uint32            `json:"layer3,omitempty"`
	Layer4        *uint32            `json:"layer4,omitempty"`
	Layer5        *uint32            `json:"layer5,omitempty"`
	StartOfSeries *string            `json:"start_of_the_time_series,omitempty"`
	EndOfSeries   *string            `json:"end_of_the_time_series,omitempty"`
	LastUpdate    *string            `json:"last_update,omitempty"`
	NotesJ        *string            `json:"notes_j,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Extras        map[string]*string `json:"extras,omitempty"`
}

// ─── Response Envelopes ───────────────────────────────────────────────────────

// CodeResponse is a decoded getDataCode body. Raw holds the decoded text for
// diagnostics only.
type CodeResponse struct {
	Meta         ResponseMeta      `json:"meta"`
	Parameter    CodeParameterEcho `json:"parameter"`
	NextPosition *uint32           `json:"next_position,omitempty"`
	Series       []CodeSeries      `json:"series"`
	Raw          string            `json:"-"`
}

// LayerResponse is a decoded getDataLayer body.
type LayerResponse struct {
	Meta         ResponseMeta       `json:"meta"`
	Parameter    LayerParameterEcho `json:"parameter"`
	NextPosition *uint32            `json:"next_position,omitempty"`
	Series       []LayerSeries      `json:"series"`
	Raw          string             `json:"-"`
}

// MetadataResponse is a decoded getMetadata body.
type MetadataResponse struct {
	Meta    ResponseMeta    `json:"meta"`
	DB      string          `json:"db"`
	Entries []MetadataEntry `json:"entries"`
	Raw     string          `json:"-"`
}

// PointCount returns the total number of points across series.
func PointCount(series []Series) int {
	n := 0
	for _, s := range series {
		n += len(s.Points)
	}
	return n
}

// PointRow is the flat per-observation record used for JSONL streams.
type PointRow struct {
	DB         string  `json:"db,omitempty"`
	SeriesCode string  `json:"series_code"`
	SurveyDate string  `json:"survey_date"`
	Value      *string `json:"value"`
}

// FlattenPoints turns series into one row per point, series by series.
func FlattenPoints(db string, series []Series) []PointRow {
	rows := make([]PointRow, 0, PointCount(series))
	for _, s := range series {
		for _, p := range s.Points {
			rows = append(rows, PointRow{
				DB:         db,
				SeriesCode: s.SeriesCode,
				SurveyDate: p.SurveyDate,
				Value:      p.Value,
			})
		}
	}
	return rows
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and archive metadata for a command result.
type ResultStats struct {
	Stored     bool  `json:"stored"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
	Pages      int   `json:"pages,omitempty"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindCodeData        = "code_data"
	KindLayerData       = "layer_data"
	KindMetadata        = "metadata"
	KindCatalogDBs      = "catalog_dbs"
	KindCatalogParams   = "catalog_params"
	KindCatalogLimits   = "catalog_limits"
	KindCatalogMessages = "catalog_messages"
	KindCatalogFreqs    = "catalog_frequencies"
	KindTable           = "table"
)

// Table is a generic header/rows payload for maintenance commands.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}
