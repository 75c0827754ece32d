package decode

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/explorrrr/boj-client/internal/bojerr"
)

// object is a decoded JSON object with a case-insensitive key index built
// once. When keys differ only by case the lexically smallest one wins.
type object struct {
	fields map[string]any
	ci     map[string]any
}

func newObject(m map[string]any) object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ci := make(map[string]any, len(m))
	for _, k := range keys {
		up := strings.ToUpper(k)
		if _, dup := ci[up]; !dup {
			ci[up] = m[k]
		}
	}
	return object{fields: m, ci: ci}
}

// get looks key up case-insensitively. A present JSON null returns
// (nil, true).
func (o object) get(key string) (any, bool) {
	v, ok := o.ci[strings.ToUpper(key)]
	return v, ok
}

// str returns the scalar text at key, or nil when the key is absent, null,
// or holds a container.
func (o object) str(key string) *string {
	v, ok := o.get(key)
	if !ok {
		return nil
	}
	s, err := scalar(v)
	if err != nil {
		return nil
	}
	return s
}

// field returns the normalized scalar at key.
func (o object) field(key string) *string {
	return normalizePtr(o.str(key))
}

// requiredString returns the normalized scalar at key, failing when the key
// is missing or blank.
func (o object) requiredString(key string) (string, error) {
	v, ok := o.get(key)
	if !ok {
		return "", bojerr.Decode("%s is required", key)
	}
	s, err := scalar(v)
	if err != nil {
		return "", err
	}
	n := normalizePtr(s)
	if n == nil {
		return "", bojerr.Decode("%s must not be empty", key)
	}
	return *n, nil
}

// optionalUint32 parses the scalar at key as an optional uint32.
func (o object) optionalUint32(key string) (*uint32, error) {
	v, ok := o.get(key)
	if !ok {
		return nil, nil
	}
	s, err := scalar(v)
	if err != nil {
		return nil, err
	}
	return parseOptionalUint32(s, key)
}

// extras collects every key not in known, coerced to scalar text.
func (o object) extras(known []string) (map[string]*string, error) {
	var out map[string]*string
	for k, v := range o.fields {
		if containsFold(known, k) {
			continue
		}
		s, err := scalar(v)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make(map[string]*string)
		}
		out[k] = s
	}
	return out, nil
}

// ─── Scalars ──────────────────────────────────────────────────────────────────

// scalar coerces a JSON value to text: null is absent, strings pass through,
// numbers keep their literal text and booleans become "true"/"false".
// Containers are rejected.
func scalar(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &t, nil
	case json.Number:
		s := t.String()
		return &s, nil
	case bool:
		s := strconv.FormatBool(t)
		return &s, nil
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s, nil
	}
	return nil, bojerr.Decode("nested array/object is not allowed in scalar fields")
}

// normalize trims s and treats blank as absent.
func normalize(s string) *string {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}

func normalizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	return normalize(*s)
}

// parseOptionalUint32 treats absent, blank and "null" (any case) as absent.
func parseOptionalUint32(s *string, field string) (*uint32, error) {
	n := normalizePtr(s)
	if n == nil || strings.EqualFold(*n, "null") {
		return nil, nil
	}
	v, err := strconv.ParseUint(*n, 10, 32)
	if err != nil {
		return nil, bojerr.Decode("%s is not a valid integer: %v", field, err)
	}
	u := uint32(v)
	return &u, nil
}

func parseStatus(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, bojerr.Decode("STATUS is not a valid integer: %v", err)
	}
	return uint16(v), nil
}

func containsFold(list []string, s string) bool {
	for _, k := range list {
		if strings.EqualFold(k, s) {
			return true
		}
	}
	return false
}

// ─── Parameter echo ───────────────────────────────────────────────────────────

var (
	codeEchoKeys  = []string{"FORMAT", "LANG", "DB", "STARTDATE", "ENDDATE", "STARTPOSITION"}
	layerEchoKeys = []string{
		"FORMAT", "LANG", "DB", "FREQUENCY",
		"LAYER1", "LAYER2", "LAYER3", "LAYER4", "LAYER5",
		"STARTDATE", "ENDDATE", "STARTPOSITION",
	}
)

// echoMap holds echoed parameters keyed by uppercased name.
type echoMap map[string]string

func (m echoMap) field(key string) *string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	return normalize(v)
}

func (m echoMap) uint32(key string) (*uint32, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	return parseOptionalUint32(&v, key)
}

func (m echoMap) extras(known []string) map[string]string {
	var out map[string]string
	for k, v := range m {
		if containsFold(known, k) {
			continue
		}
		if n := normalize(v); n != nil {
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = *n
		}
	}
	return out
}
