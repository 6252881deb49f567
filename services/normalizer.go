package services

import (
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"invite-digest/config"
)

// NestedState beschreibt, ob und wie der verschachtelte raw_output-Payload dekodiert wurde.
type NestedState string

const (
	NestedAbsent  NestedState = "absent"
	NestedDecoded NestedState = "decoded"
	NestedInvalid NestedState = "invalid"
)

// FieldNormalizer löst logische Felder über geordnete Kandidaten-Keys auf.
type FieldNormalizer struct {
	logger    *zap.Logger
	looseKeys bool
}

func NewFieldNormalizer(logger *zap.Logger, looseKeys bool) *FieldNormalizer {
	return &FieldNormalizer{logger: logger, looseKeys: looseKeys}
}

// Resolve liefert den ersten vorhandenen Wert der Kandidaten-Keys als String.
// nil, "" und leere Arrays gelten als nicht vorhanden.
func (fn *FieldNormalizer) Resolve(input map[string]any, keys []string, def string) string {
	if v, ok := fn.lookup(input, keys); ok {
		return v
	}
	return def
}

// ResolveList liefert eine String-Liste (z. B. E-Mail-Adressen), niemals nil.
func (fn *FieldNormalizer) ResolveList(input map[string]any, keys []string) []string {
	out := []string{}
	raw, ok := fn.lookupRaw(input, keys)
	if !ok {
		return out
	}
	switch t := raw.(type) {
	case []any:
		for _, it := range t {
			if s := strings.TrimSpace(stringify(it)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, it := range t {
			if s := strings.TrimSpace(it); s != "" {
				out = append(out, s)
			}
		}
	default:
		// Zapier liefert Line-Items gerne als kommagetrennten String
		parts := strings.FieldsFunc(stringify(t), func(r rune) bool { return r == ',' || r == ';' })
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// DecodeNested entpackt raw_output -> raw_body zweistufig. Fehler führen nie zum Abbruch,
// sondern zu einer leeren Map.
func (fn *FieldNormalizer) DecodeNested(input map[string]any, fm *config.FieldMap) (map[string]any, NestedState) {
	raw, ok := input[fm.RawOutputKey]
	if !ok || isAbsent(raw) {
		return map[string]any{}, NestedAbsent
	}
	outer, ok := decodeObject(raw)
	if !ok {
		fn.logger.Debug("raw_output is not a JSON object", zap.String("key", fm.RawOutputKey))
		return map[string]any{}, NestedInvalid
	}
	body, ok := outer[fm.RawBodyKey]
	if !ok || isAbsent(body) {
		// raw_output ohne raw_body ist ein kaputter Umschlag
		fn.logger.Debug("raw_output carries no raw_body", zap.String("key", fm.RawBodyKey))
		return map[string]any{}, NestedInvalid
	}
	inner, ok := decodeObject(body)
	if !ok {
		fn.logger.Debug("raw_body is not a JSON object", zap.String("key", fm.RawBodyKey))
		return map[string]any{}, NestedInvalid
	}
	return inner, NestedDecoded
}

func (fn *FieldNormalizer) lookup(input map[string]any, keys []string) (string, bool) {
	raw, ok := fn.lookupRaw(input, keys)
	if !ok {
		return "", false
	}
	return stringify(raw), true
}

func (fn *FieldNormalizer) lookupRaw(input map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := input[k]; ok && !isAbsent(v) {
			return v, true
		}
	}
	if !fn.looseKeys || len(input) == 0 {
		return nil, false
	}

	// Loser Abgleich: Groß-/Kleinschreibung, Leerzeichen und "__"-Präfixe ignorieren
	inputKeys := make([]string, 0, len(input))
	for k := range input {
		inputKeys = append(inputKeys, k)
	}
	sort.Strings(inputKeys)
	for _, want := range keys {
		canon := canonicalKey(want)
		if canon == "" {
			continue
		}
		for _, k := range inputKeys {
			if canonicalKey(k) != canon {
				continue
			}
			if v := input[k]; !isAbsent(v) {
				fn.logger.Debug("Resolved field via loose key match", zap.String("candidate", want), zap.String("key", k))
				return v, true
			}
		}
	}
	return nil, false
}

// canonicalKey reduziert "body__Food Type" auf "foodtype"
func canonicalKey(k string) string {
	if i := strings.LastIndex(k, "__"); i >= 0 {
		k = k[i+2:]
	}
	var b strings.Builder
	for _, r := range k {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}

// stringify wandelt beliebige JSON-Werte in ihre Textform um
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s := stringify(it); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// decodeObject akzeptiert ein bereits dekodiertes Objekt oder einen JSON-String
func decodeObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		decoded, err := TryNormalizeJSON([]byte(t))
		if err != nil {
			return nil, false
		}
		m, ok := decoded.(map[string]any)
		return m, ok
	default:
		return nil, false
	}
}

var errTrailingData = errors.New("unexpected data after top-level JSON value")

// TryNormalizeJSON is a helper to coerce raw JSON into interface{} with concrete maps/slices.
// Exactly one JSON value is accepted; anything but whitespace after it is an error.
func TryNormalizeJSON(raw []byte) (any, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}
