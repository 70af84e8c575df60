package advisor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPayload indicates a request body that is not a JSON object.
var ErrInvalidPayload = errors.New("invalid JSON body")

// Payload is a decoded request body. Numbers are kept as json.Number so the
// payload re-encodes to the same text it was stored as.
type Payload map[string]any

// DecodePayload reads a JSON object from r.
func DecodePayload(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p == nil {
		return nil, ErrInvalidPayload
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidPayload)
	}
	return p, nil
}

// Has reports whether field is present. A JSON null counts as absent.
func (p Payload) Has(field string) bool {
	v, ok := p[field]
	return ok && v != nil
}

// Number returns field as a float64. Numeric strings are accepted.
func (p Payload) Number(field string) (float64, error) {
	v, ok := p[field]
	if !ok || v == nil {
		return 0, MissingField(field)
	}

	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, MalformedField(field)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, MalformedField(field)
	}
	return f, nil
}

// Text returns field as it should be echoed: strings verbatim, anything else
// in its JSON form.
func (p Payload) Text(field string) (string, error) {
	v, ok := p[field]
	if !ok || v == nil {
		return "", MissingField(field)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	default:
		raw, err := EncodeBody(s)
		if err != nil {
			return "", MalformedField(field)
		}
		return string(raw), nil
	}
}

// Encode serializes the payload. Keys are sorted, numbers keep their text.
func (p Payload) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeBody serializes a response body with the same settings as Encode.
func EncodeBody(body any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encoding maps categorical values to the ordinal codes a model was trained
// with. Unknown values fall back to Default.
type Encoding struct {
	Name    string
	Codes   map[string]float64
	Default float64
}

// Code returns the ordinal for value. Matching ignores case and surrounding
// whitespace.
func (e *Encoding) Code(value string) float64 {
	if c, ok := e.Codes[strings.ToLower(strings.TrimSpace(value))]; ok {
		return c
	}
	return e.Default
}

// Categorical encoding tables.
var (
	GrowthStageEncoding = &Encoding{
		Name: "growth_stage",
		Codes: map[string]float64{
			"seedling":   1,
			"vegetative": 2,
			"flowering":  3,
			"fruiting":   4,
			"mature":     5,
		},
		Default: 2,
	}

	SeasonEncoding = &Encoding{
		Name: "season",
		Codes: map[string]float64{
			"spring": 1,
			"summer": 2,
			"autumn": 3,
			"winter": 4,
		},
		Default: 1,
	}

	SoilQualityEncoding = &Encoding{
		Name: "soil_quality",
		Codes: map[string]float64{
			"poor":      1,
			"fair":      2,
			"good":      3,
			"excellent": 4,
		},
		Default: 2,
	}
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
