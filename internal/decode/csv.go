package decode

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
)

const groupSep = "\x1f"

var seriesKnownCSV = []string{
	"SERIES_CODE", "NAME_OF_TIME_SERIES_J", "NAME_OF_TIME_SERIES",
	"UNIT_J", "UNIT", "FREQUENCY", "CATEGORY_J", "CATEGORY",
	"LAST_UPDATE", "SURVEY_DATES", "VALUES",
}

// ─── Entry points ─────────────────────────────────────────────────────────────

// DecodeCodeCSV decodes a tabular getDataCode body.
func DecodeCodeCSV(body []byte, enc query.CSVEncoding) (*model.CodeResponse, error) {
	text, p, err := parsePayload(body, enc)
	if err != nil {
		return nil, err
	}
	meta, err := p.responseMeta()
	if err != nil {
		return nil, err
	}
	echo, err := codeEcho(p.parameter)
	if err != nil {
		return nil, err
	}
	next, err := parseOptionalUint32(p.nextPosition, "NEXTPOSITION")
	if err != nil {
		return nil, err
	}
	series, err := p.series()
	if err != nil {
		return nil, err
	}
	return &model.CodeResponse{
		Meta:         meta,
		Parameter:    echo,
		NextPosition: next,
		Series:       series,
		Raw:          text,
	}, nil
}

// DecodeLayerCSV decodes a tabular getDataLayer body.
func DecodeLayerCSV(body []byte, enc query.CSVEncoding) (*model.LayerResponse, error) {
	text, p, err := parsePayload(body, enc)
	if err != nil {
		return nil, err
	}
	meta, err := p.responseMeta()
	if err != nil {
		return nil, err
	}
	echo, err := layerEcho(p.parameter)
	if err != nil {
		return nil, err
	}
	next, err := parseOptionalUint32(p.nextPosition, "NEXTPOSITION")
	if err != nil {
		return nil, err
	}
	series, err := p.series()
	if err != nil {
		return nil, err
	}
	return &model.LayerResponse{
		Meta:         meta,
		Parameter:    echo,
		NextPosition: next,
		Series:       series,
		Raw:          text,
	}, nil
}

// DecodeMetadataCSV decodes a tabular getMetadata body. The database code
// comes from the DB row, then the echoed DB parameter.
func DecodeMetadataCSV(body []byte, enc query.CSVEncoding) (*model.MetadataResponse, error) {
	text, p, err := parsePayload(body, enc)
	if err != nil {
		return nil, err
	}
	meta, err := p.responseMeta()
	if err != nil {
		return nil, err
	}
	db := ""
	if v := normalizePtr(p.db); v != nil {
		db = *v
	} else if v := p.parameter.field("DB"); v != nil {
		db = *v
	}
	h := newHeader(p.header)
	entries := make([]model.MetadataEntry, 0, len(p.rows))
	for _, row := range p.rows {
		e, err := csvMetadataEntry(h, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return &model.MetadataResponse{
		Meta:    meta,
		DB:      db,
		Entries: entries,
		Raw:     text,
	}, nil
}

// ─── Records ──────────────────────────────────────────────────────────────────

func readRecords(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, bojerr.Decode("invalid CSV payload: %v", err)
		}
		row := make([]string, len(rec))
		for i, cell := range rec {
			row[i] = strings.TrimSpace(cell)
		}
		if len(rows) == 0 && len(row) > 0 {
			row[0] = strings.TrimSpace(strings.TrimPrefix(row[0], "\ufeff"))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ─── Sectioning ───────────────────────────────────────────────────────────────

// payload is a CSV body split into its meta, parameter and data sections.
type payload struct {
	meta         map[string]string
	parameter    echoMap
	nextPosition *string
	db           *string
	header       []string
	rows         [][]string
}

func parsePayload(body []byte, enc query.CSVEncoding) (string, *payload, error) {
	text, err := decodeText(body, enc)
	if err != nil {
		return "", nil, err
	}
	rows, err := readRecords(text)
	if err != nil {
		return "", nil, err
	}
	return text, section(rows), nil
}

// section scans rows top to bottom. The first SERIES_CODE row becomes the
// data header and every non-blank row after it is data.
func section(rows [][]string) *payload {
	p := &payload{meta: map[string]string{}, parameter: echoMap{}}
	for i, row := range rows {
		if blank(row) {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(row[0]))
		switch key {
		case "STATUS", "MESSAGEID", "MESSAGE", "DATE":
			p.meta[key] = cell(row, 1)
		case "PARAMETER":
			if name := strings.ToUpper(strings.TrimSpace(cell(row, 1))); name != "" {
				p.parameter[name] = cell(row, 2)
			}
		case "NEXTPOSITION":
			v := cell(row, 1)
			p.nextPosition = &v
		case "DB":
			if len(row) > 1 {
				v := row[1]
				p.db = &v
			} else {
				p.db = nil
			}
		case "SERIES_CODE":
			p.header = row
			for _, r := range rows[i+1:] {
				if !blank(r) {
					p.rows = append(p.rows, r)
				}
			}
			return p
		}
	}
	return p
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func (p *payload) responseMeta() (model.ResponseMeta, error) {
	s, ok := p.meta["STATUS"]
	if !ok {
		return model.ResponseMeta{}, bojerr.Decode("STATUS not found in CSV response")
	}
	status, err := parseStatus(s)
	if err != nil {
		return model.ResponseMeta{}, err
	}
	meta := model.ResponseMeta{
		Status:    status,
		MessageID: p.meta["MESSAGEID"],
		Message:   p.meta["MESSAGE"],
	}
	if d, ok := p.meta["DATE"]; ok {
		meta.Date = normalize(d)
	}
	return meta, nil
}

// ─── Header ───────────────────────────────────────────────────────────────────

// header resolves column names case-insensitively. A repeated name maps to
// its last position.
type header struct {
	names []string
	index map[string]int
}

func newHeader(names []string) header {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[strings.ToUpper(strings.TrimSpace(n))] = i
	}
	return header{names: names, index: idx}
}

func (h header) col(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

func (h header) optional(row []string, name string) *string {
	i, ok := h.col(name)
	if !ok {
		return nil
	}
	return normalize(cell(row, i))
}

func (h header) optionalUint32(row []string, name string) (*uint32, error) {
	return parseOptionalUint32(h.optional(row, name), name)
}

func (h header) extras(row []string, known []string) map[string]*string {
	var out map[string]*string
	for i, name := range h.names {
		if containsFold(known, name) {
			continue
		}
		if out == nil {
			out = make(map[string]*string)
		}
		out[name] = normalize(cell(row, i))
	}
	return out
}

// ─── Grouping ─────────────────────────────────────────────────────────────────

// series groups data rows into series. Rows that agree on every column
// other than SURVEY_DATES and VALUES belong to one series; groups keep the
// order in which their key first appears and points keep row order.
func (p *payload) series() ([]model.Series, error) {
	if len(p.header) == 0 {
		return []model.Series{}, nil
	}
	h := newHeader(p.header)
	codeIdx, ok := h.col("SERIES_CODE")
	if !ok {
		return nil, bojerr.Decode("SERIES_CODE column is required in CSV data")
	}
	dateIdx, ok := h.col("SURVEY_DATES")
	if !ok {
		return nil, bojerr.Decode("SURVEY_DATES column is required in CSV data")
	}
	valIdx, ok := h.col("VALUES")
	if !ok {
		return nil, bojerr.Decode("VALUES column is required in CSV data")
	}

	type group struct {
		first  []string
		points []model.DataPoint
	}
	var groups []*group
	byKey := make(map[string]*group)

	for _, row := range p.rows {
		if strings.TrimSpace(cell(row, codeIdx)) == "" {
			return nil, bojerr.Decode("SERIES_CODE must not be empty")
		}
		date := normalize(cell(row, dateIdx))
		if date == nil {
			return nil, bojerr.Decode("SURVEY_DATES must not be empty")
		}
		pt := model.DataPoint{SurveyDate: *date, Value: normalize(cell(row, valIdx))}

		key := groupKey(row, len(p.header), dateIdx, valIdx)
		if g, ok := byKey[key]; ok {
			g.points = append(g.points, pt)
			continue
		}
		g := &group{first: row, points: []model.DataPoint{pt}}
		groups = append(groups, g)
		byKey[key] = g
	}

	out := make([]model.Series, 0, len(groups))
	for _, g := range groups {
		code := h.optional(g.first, "SERIES_CODE")
		if code == nil {
			return nil, bojerr.Decode("SERIES_CODE must not be empty")
		}
		out = append(out, model.Series{
			SeriesCode: *code,
			NameJ:      h.optional(g.first, "NAME_OF_TIME_SERIES_J"),
			Name:       h.optional(g.first, "NAME_OF_TIME_SERIES"),
			UnitJ:      h.optional(g.first, "UNIT_J"),
			Unit:       h.optional(g.first, "UNIT"),
			Frequency:  h.optional(g.first, "FREQUENCY"),
			CategoryJ:  h.optional(g.first, "CATEGORY_J"),
			Category:   h.optional(g.first, "CATEGORY"),
			LastUpdate: h.optional(g.first, "LAST_UPDATE"),
			Points:     g.points,
			Extras:     h.extras(g.first, seriesKnownCSV),
		})
	}
	return out, nil
}

func groupKey(row []string, width, dateIdx, valIdx int) string {
	parts := make([]string, 0, width)
	for i := 0; i < width; i++ {
		if i == dateIdx || i == valIdx {
			continue
		}
		parts = append(parts, cell(row, i))
	}
	return strings.Join(parts, groupSep)
}

func csvMetadataEntry(h header, row []string) (model.MetadataEntry, error) {
	var layers [5]*uint32
	for i := range layers {
		v, err := h.optionalUint32(row, layerKeys[i])
		if err != nil {
			return model.MetadataEntry{}, err
		}
		layers[i] = v
	}
	return model.MetadataEntry{
		SeriesCode:    h.optional(row, "SERIES_CODE"),
		NameJ:         h.optional(row, "NAME_OF_TIME_SERIES_J"),
		Name:          h.optional(row, "NAME_OF_TIME_SERIES"),
		UnitJ:         h.optional(row, "UNIT_J"),
		Unit:          h.optional(row, "UNIT"),
		Frequency:     h.optional(row, "FREQUENCY"),
		CategoryJ:     h.optional(row, "CATEGORY_J"),
		Category:      h.optional(row, "CATEGORY"),
		Layer1:        layers[0],
		Layer2:        layers[1],
		Layer3:        layers[2],
		Layer4:        layers[3],
		Layer5:        layers[4],
		StartOfSeries: h.optional(row, "START_OF_THE_TIME_SERIES"),
		EndOfSeries:   h.optional(row, "END_OF_THE_TIME_SERIES"),
		LastUpdate:    h.optional(row, "LAST_UPDATE"),
		NotesJ:        h.optional(row, "NOTES_J"),
		Notes:         h.optional(row, "NOTES"),
		Extras:        h.extras(row, metadataKnown),
	}, nil
}
