// Package normalize reconciles loosely-typed client field maps into a shape
// fit for schema validation. Clients have historically sent alternate field
// names, empty strings for absent enums, units without values, and JSON either
// as objects or as strings; everything is brought onto one canonical shape
// here so the handlers and models never see the variance.
package normalize

import (
	"encoding/json"

	"go.uber.org/zap"
)

// fieldAliases maps legacy field names onto canonical ones. The original key
// is kept so older clients reading their own echo back keep working.
var fieldAliases = map[string]string{
	"long_description": "full_description",
	"detail":           "description",
	"remarks":          "notes",
	"temp_min":         "temperature_min",
	"temp_max":         "temperature_max",
	"temp_unit":        "temperature_unit",
}

// enumFields hold a fixed vocabulary; an empty string means "not set"
var enumFields = []string{
	"status",
	"weight_unit",
	"tolerance_unit",
	"dimensions_unit",
	"temperature_unit",
}

// stringFields are coerced to strings: empty objects collapse to "", other
// objects serialize to their JSON text
var stringFields = []string{
	"description",
	"full_description",
	"notes",
}

// jsonFields are coerced to objects: strings are parsed as JSON, anything
// unparsable becomes {}, arrays become {"value": original}
var jsonFields = []string{
	"dimensions",
	"properties",
}

// valueUnitPairs couple a measurement with its unit; one without the other is
// meaningless and both are cleared
var valueUnitPairs = [][2]string{
	{"weight", "weight_unit"},
	{"tolerance", "tolerance_unit"},
	{"dimensions", "dimensions_unit"},
}

var dimensionKeys = []string{"length", "width", "height"}

// Normalize applies the normalization rules in order and returns a new map.
// The input is never modified. Each rule is independent and idempotent, so
// Normalize(Normalize(x)) == Normalize(x). Malformed input never panics;
// fallbacks are applied with a logged warning.
func Normalize(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return map[string]interface{}{}
	}

	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}

	applyAliases(out)
	clearEmptyEnums(out)
	enforceValueUnitPairs(out)
	coerceStrings(out)
	coerceJSON(out)
	shapeDimensions(out)

	return out
}

// applyAliases copies legacy keys onto their canonical names without deleting
// the originals. An existing canonical value is not overwritten.
func applyAliases(out map[string]interface{}) {
	for legacy, canonical := range fieldAliases {
		v, ok := out[legacy]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}
}

// clearEmptyEnums converts empty-string enum values to nil
func clearEmptyEnums(out map[string]interface{}) {
	for _, field := range enumFields {
		if v, ok := out[field]; ok {
			if s, isStr := v.(string); isStr && s == "" {
				out[field] = nil
			}
		}
	}
}

// enforceValueUnitPairs clears units without values and values without units.
// Value absence wins over unit presence.
func enforceValueUnitPairs(out map[string]interface{}) {
	for _, pair := range valueUnitPairs {
		value, unit := pair[0], pair[1]
		if !present(out, value) {
			if _, ok := out[value]; ok {
				out[value] = nil
			}
			if _, ok := out[unit]; ok {
				out[unit] = nil
			}
			continue
		}
		if !present(out, unit) {
			out[value] = nil
			if _, ok := out[unit]; ok {
				out[unit] = nil
			}
		}
	}

	// The temperature quartet shares one unit across min and max. The unit is
	// cleared only when both values are absent; a missing unit clears both.
	minPresent := present(out, "temperature_min")
	maxPresent := present(out, "temperature_max")
	unitPresent := present(out, "temperature_unit")

	switch {
	case !minPresent && !maxPresent:
		clearIfSet(out, "temperature_min")
		clearIfSet(out, "temperature_max")
		clearIfSet(out, "temperature_unit")
	case !unitPresent:
		clearIfSet(out, "temperature_min")
		clearIfSet(out, "temperature_max")
		clearIfSet(out, "temperature_unit")
	default:
		if !minPresent {
			clearIfSet(out, "temperature_min")
		}
		if !maxPresent {
			clearIfSet(out, "temperature_max")
		}
	}
}

// coerceStrings forces designated fields to strings
func coerceStrings(out map[string]interface{}) {
	for _, field := range stringFields {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		switch tv := v.(type) {
		case string:
			// already fine
		case map[string]interface{}:
			if len(tv) == 0 {
				out[field] = ""
				continue
			}
			b, err := json.Marshal(tv)
			if err != nil {
				zap.L().Warn("unserializable object in string field, dropping",
					zap.String("field", field))
				out[field] = ""
				continue
			}
			out[field] = string(b)
		default:
			b, err := json.Marshal(tv)
			if err != nil {
				zap.L().Warn("unserializable value in string field, dropping",
					zap.String("field", field))
				out[field] = ""
				continue
			}
			out[field] = string(b)
		}
	}
}

// coerceJSON forces designated fields to objects
func coerceJSON(out map[string]interface{}) {
	for _, field := range jsonFields {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		switch tv := v.(type) {
		case map[string]interface{}:
			// already fine
		case string:
			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(tv), &parsed); err != nil || parsed == nil {
				zap.L().Warn("unparsable JSON in object field, defaulting to empty object",
					zap.String("field", field))
				out[field] = map[string]interface{}{}
				continue
			}
			out[field] = parsed
		case []interface{}:
			out[field] = map[string]interface{}{"value": tv}
		default:
			zap.L().Warn("unexpected type in object field, defaulting to empty object",
				zap.String("field", field))
			out[field] = map[string]interface{}{}
		}
	}
}

// shapeDimensions guarantees the dimensions object always carries length,
// width and height keys
func shapeDimensions(out map[string]interface{}) {
	v, ok := out["dimensions"]
	if !ok || v == nil {
		return
	}
	dims, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	// Copy before filling so the caller's nested map is never mutated.
	shaped := make(map[string]interface{}, len(dims)+len(dimensionKeys))
	for k, val := range dims {
		shaped[k] = val
	}
	for _, key := range dimensionKeys {
		if _, exists := shaped[key]; !exists {
			shaped[key] = nil
		}
	}
	out["dimensions"] = shaped
}

// present reports whether a field carries a usable value: the key exists and
// the value is neither nil nor an empty string
func present(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

func clearIfSet(m map[string]interface{}, key string) {
	if _, ok := m[key]; ok {
		m[key] = nil
	}
}
