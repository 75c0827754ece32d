package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/model"
)

var (
	seriesKnownJSON = []string{
		"SERIES_CODE", "NAME_OF_TIME_SERIES_J", "NAME_OF_TIME_SERIES",
		"UNIT_J", "UNIT", "FREQUENCY", "CATEGORY_J", "CATEGORY",
		"LAST_UPDATE", "VALUES",
	}
	metadataKnown = []string{
		"SERIES_CODE", "NAME_OF_TIME_SERIES_J", "NAME_OF_TIME_SERIES",
		"UNIT_J", "UNIT", "FREQUENCY", "CATEGORY_J", "CATEGORY",
		"LAYER1", "LAYER2", "LAYER3", "LAYER4", "LAYER5",
		"START_OF_THE_TIME_SERIES", "END_OF_THE_TIME_SERIES",
		"LAST_UPDATE", "NOTES_J", "NOTES",
	}
)

// ─── Entry points ─────────────────────────────────────────────────────────────

// DecodeCodeJSON decodes a structured getDataCode body.
func DecodeCodeJSON(body []byte) (*model.CodeResponse, error) {
	text, root, err := parseRoot(body)
	if err != nil {
		return nil, err
	}
	meta, err := jsonMeta(root)
	if err != nil {
		return nil, err
	}
	params, err := jsonEcho(root)
	if err != nil {
		return nil, err
	}
	echo, err := codeEcho(params)
	if err != nil {
		return nil, err
	}
	next, err := root.optionalUint32("NEXTPOSITION")
	if err != nil {
		return nil, err
	}
	series, err := jsonSeries(root)
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

// DecodeLayerJSON decodes a structured getDataLayer body.
func DecodeLayerJSON(body []byte) (*model.LayerResponse, error) {
	text, root, err := parseRoot(body)
	if err != nil {
		return nil, err
	}
	meta, err := jsonMeta(root)
	if err != nil {
		return nil, err
	}
	params, err := jsonEcho(root)
	if err != nil {
		return nil, err
	}
	echo, err := layerEcho(params)
	if err != nil {
		return nil, err
	}
	next, err := root.optionalUint32("NEXTPOSITION")
	if err != nil {
		return nil, err
	}
	series, err := jsonSeries(root)
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

// DecodeMetadataJSON decodes a structured getMetadata body.
func DecodeMetadataJSON(body []byte) (*model.MetadataResponse, error) {
	text, root, err := parseRoot(body)
	if err != nil {
		return nil, err
	}
	meta, err := jsonMeta(root)
	if err != nil {
		return nil, err
	}
	db := ""
	if s := root.str("DB"); s != nil {
		db = *s
	}
	rows, err := resultSet(root)
	if err != nil {
		return nil, err
	}
	entries := make([]model.MetadataEntry, 0, len(rows))
	for _, row := range rows {
		e, err := jsonMetadataEntry(row)
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

// ─── Document ─────────────────────────────────────────────────────────────────

func parseRoot(body []byte) (string, object, error) {
	if !utf8.Valid(body) {
		return "", object{}, bojerr.Decode("invalid UTF-8 JSON payload")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", object{}, bojerr.Decode("invalid JSON payload: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", object{}, bojerr.Decode("invalid JSON payload: trailing characters after document")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return "", object{}, bojerr.Decode("top-level JSON object is required")
	}
	return string(body), newObject(m), nil
}

func jsonMeta(root object) (model.ResponseMeta, error) {
	v, ok := root.get("STATUS")
	if !ok {
		return model.ResponseMeta{}, bojerr.Decode("STATUS not found")
	}
	s, err := scalar(v)
	if err != nil {
		return model.ResponseMeta{}, err
	}
	if s == nil {
		return model.ResponseMeta{}, bojerr.Decode("STATUS must be a string or number")
	}
	status, err := parseStatus(*s)
	if err != nil {
		return model.ResponseMeta{}, err
	}
	meta := model.ResponseMeta{Status: status, Date: root.field("DATE")}
	if s := root.str("MESSAGEID"); s != nil {
		meta.MessageID = *s
	}
	if s := root.str("MESSAGE"); s != nil {
		meta.Message = *s
	}
	return meta, nil
}

// jsonEcho flattens the PARAMETER object into uppercased keys; null values
// are dropped.
func jsonEcho(root object) (echoMap, error) {
	v, ok := root.get("PARAMETER")
	if !ok {
		return echoMap{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, bojerr.Decode("PARAMETER must be an object")
	}
	out := make(echoMap, len(m))
	for k, raw := range m {
		s, err := scalar(raw)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out[strings.ToUpper(k)] = *s
		}
	}
	return out, nil
}

func resultSet(root object) ([]object, error) {
	v, ok := root.get("RESULTSET")
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, bojerr.Decode("RESULTSET must be an array")
	}
	rows := make([]object, 0, len(arr))
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, bojerr.Decode("each RESULTSET element must be an object")
		}
		rows = append(rows, newObject(m))
	}
	return rows, nil
}

// ─── Rows ─────────────────────────────────────────────────────────────────────

func jsonSeries(root object) ([]model.Series, error) {
	rows, err := resultSet(root)
	if err != nil {
		return nil, err
	}
	series := make([]model.Series, 0, len(rows))
	for _, row := range rows {
		code, err := row.requiredString("SERIES_CODE")
		if err != nil {
			return nil, err
		}
		points, err := jsonPoints(row)
		if err != nil {
			return nil, err
		}
		extras, err := row.extras(seriesKnownJSON)
		if err != nil {
			return nil, err
		}
		series = append(series, model.Series{
			SeriesCode: code,
			NameJ:      row.field("NAME_OF_TIME_SERIES_J"),
			Name:       row.field("NAME_OF_TIME_SERIES"),
			UnitJ:      row.field("UNIT_J"),
			Unit:       row.field("UNIT"),
			Frequency:  row.field("FREQUENCY"),
			CategoryJ:  row.field("CATEGORY_J"),
			Category:   row.field("CATEGORY"),
			LastUpdate: row.field("LAST_UPDATE"),
			Points:     points,
			Extras:     extras,
		})
	}
	return series, nil
}

// jsonPoints zips VALUES.SURVEY_DATES with VALUES.VALUES. Values are
// normalized so a blank observation is absent, as in the CSV form.
func jsonPoints(row object) ([]model.DataPoint, error) {
	v, ok := row.get("VALUES")
	if !ok {
		return nil, bojerr.Decode("VALUES object is required in RESULTSET rows for code/layer API")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, bojerr.Decode("VALUES must be an object")
	}
	values := newObject(m)

	rawDates, ok := values.get("SURVEY_DATES")
	if !ok {
		return nil, bojerr.Decode("VALUES.SURVEY_DATES is required")
	}
	dates, ok := rawDates.([]any)
	if !ok {
		return nil, bojerr.Decode("VALUES.SURVEY_DATES must be an array")
	}
	rawVals, ok := values.get("VALUES")
	if !ok {
		return nil, bojerr.Decode("VALUES.VALUES is required")
	}
	vals, ok := rawVals.([]any)
	if !ok {
		return nil, bojerr.Decode("VALUES.VALUES must be an array")
	}
	if len(dates) != len(vals) {
		return nil, bojerr.Decode("VALUES.SURVEY_DATES and VALUES.VALUES length mismatch")
	}

	points := make([]model.DataPoint, len(dates))
	for i := range dates {
		d, err := scalar(dates[i])
		if err != nil {
			return nil, err
		}
		date := normalizePtr(d)
		if date == nil {
			return nil, bojerr.Decode("survey date must be string/number and not null")
		}
		val, err := scalar(vals[i])
		if err != nil {
			return nil, err
		}
		points[i] = model.DataPoint{SurveyDate: *date, Value: normalizePtr(val)}
	}
	return points, nil
}

func jsonMetadataEntry(row object) (model.MetadataEntry, error) {
	var layers [5]*uint32
	for i := range layers {
		v, err := row.optionalUint32(layerKeys[i])
		if err != nil {
			return model.MetadataEntry{}, err
		}
		layers[i] = v
	}
	extras, err := row.extras(metadataKnown)
	if err != nil {
		return model.MetadataEntry{}, err
	}
	return model.MetadataEntry{
		SeriesCode:    row.field("SERIES_CODE"),
		NameJ:         row.field("NAME_OF_TIME_SERIES_J"),
		Name:          row.field("NAME_OF_TIME_SERIES"),
		UnitJ:         row.field("UNIT_J"),
		Unit:          row.field("UNIT"),
		Frequency:     row.field("FREQUENCY"),
		CategoryJ:     row.field("CATEGORY_J"),
		Category:      row.field("CATEGORY"),
		Layer1:        layers[0],
		Layer2:        layers[1],
		Layer3:        layers[2],
		Layer4:        layers[3],
		Layer5:        layers[4],
		StartOfSeries: row.field("START_OF_THE_TIME_SERIES"),
		EndOfSeries:   row.field("END_OF_THE_TIME_SERIES"),
		LastUpdate:    row.field("LAST_UPDATE"),
		NotesJ:        row.field("NOTES_J"),
		Notes:         row.field("NOTES"),
		Extras:        extras,
	}, nil
}

var layerKeys = [5]string{"LAYER1", "LAYER2", "LAYER3", "LAYER4", "LAYER5"}

// ─── Echo ─────────────────────────────────────────────────────────────────────

func codeEcho(m echoMap) (model.CodeParameterEcho, error) {
	pos, err := m.uint32("STARTPOSITION")
	if err != nil {
		return model.CodeParameterEcho{}, err
	}
	return model.CodeParameterEcho{
		Format:        m.field("FORMAT"),
		Lang:          m.field("LANG"),
		DB:            m.field("DB"),
		StartDate:     m.field("STARTDATE"),
		EndDate:       m.field("ENDDATE"),
		StartPosition: pos,
		Extras:        m.extras(codeEchoKeys),
	}, nil
}

func layerEcho(m echoMap) (model.LayerParameterEcho, error) {
	var layers [5]*uint32
	for i := range layers {
		v, err := m.uint32(layerKeys[i])
		if err != nil {
			return model.LayerParameterEcho{}, err
		}
		layers[i] = v
	}
	pos, err := m.uint32("STARTPOSITION")
	if err != nil {
		return model.LayerParameterEcho{}, err
	}
	return model.LayerParameterEcho{
		Format:        m.field("FORMAT"),
		Lang:          m.field("LANG"),
		DB:            m.field("DB"),
		Frequency:     m.field("FREQUENCY"),
		Layer1:        layers[0],
		Layer2:        layers[1],
		Layer3:        layers[2],
		Layer4:        layers[3],
		Layer5:        layers[4],
		StartDate:     m.field("STARTDATE"),
		EndDate:       m.field("ENDDATE"),
		StartPosition: pos,
		Extras:        m.extras(layerEchoKeys),
	}, nil
}
