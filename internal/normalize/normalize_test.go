package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasMappingKeepsOriginal(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"long_description": "a very long text",
	})

	assert.Equal(t, "a very long text", out["full_description"])
	assert.Equal(t, "a very long text", out["long_description"])
}

func TestAliasDoesNotOverwriteCanonical(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"long_description": "legacy",
		"full_description": "canonical",
	})

	assert.Equal(t, "canonical", out["full_description"])
}

func TestEmptyEnumBecomesNil(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"status": "",
	})

	v, ok := out["status"]
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestUnitWithoutValueIsCleared(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"weight":      nil,
		"weight_unit": "kg",
	})

	assert.Nil(t, out["weight"])
	assert.Nil(t, out["weight_unit"])
}

func TestValueWithEmptyUnitIsCleared(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"weight":      float64(10),
		"weight_unit": "",
	})

	assert.Nil(t, out["weight"])
	assert.Nil(t, out["weight_unit"])
}

func TestCompletePairSurvives(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"tolerance":      0.05,
		"tolerance_unit": "%",
	})

	assert.Equal(t, 0.05, out["tolerance"])
	assert.Equal(t, "%", out["tolerance_unit"])
}

func TestTemperatureUnitSurvivesWithOneValue(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"temperature_min":  float64(-40),
		"temperature_unit": "C",
	})

	assert.Equal(t, float64(-40), out["temperature_min"])
	assert.Equal(t, "C", out["temperature_unit"])
}

func TestTemperatureValuesClearedWithoutUnit(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"temperature_min": float64(-40),
		"temperature_max": float64(85),
	})

	assert.Nil(t, out["temperature_min"])
	assert.Nil(t, out["temperature_max"])
}

func TestClearingNeverAddsKeys(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"temperature_min": float64(-40),
	})

	assert.Nil(t, out["temperature_min"])
	assert.NotContains(t, out, "temperature_max")
	assert.NotContains(t, out, "temperature_unit")
}

func TestDimensionsFilledAndUnitPreserved(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"dimensions":      map[string]interface{}{"length": float64(1)},
		"dimensions_unit": "mm",
	})

	dims, ok := out["dimensions"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), dims["length"])
	assert.Nil(t, dims["width"])
	assert.Nil(t, dims["height"])
	assert.Equal(t, "mm", out["dimensions_unit"])
}

func TestStringFieldCoercion(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{"empty object collapses", map[string]interface{}{}, ""},
		{"object serializes", map[string]interface{}{"a": float64(1)}, `{"a":1}`},
		{"number serializes", float64(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(map[string]interface{}{"notes": tt.input})
			assert.Equal(t, tt.want, out["notes"])
		})
	}
}

func TestJSONFieldCoercion(t *testing.T) {
	t.Run("string parsed as JSON", func(t *testing.T) {
		out := Normalize(map[string]interface{}{
			"properties": `{"voltage": 5}`,
		})
		props, ok := out["properties"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(5), props["voltage"])
	})

	t.Run("unparsable string defaults to empty object", func(t *testing.T) {
		out := Normalize(map[string]interface{}{
			"properties": "not json at all",
		})
		assert.Equal(t, map[string]interface{}{}, out["properties"])
	})

	t.Run("array wrapped in value key", func(t *testing.T) {
		out := Normalize(map[string]interface{}{
			"properties": []interface{}{"a", "b"},
		})
		props, ok := out["properties"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, []interface{}{"a", "b"}, props["value"])
	})
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := map[string]interface{}{
		"long_description": "text",
		"status":           "",
		"weight":           float64(10),
		"weight_unit":      "",
		"tolerance":        0.1,
		"tolerance_unit":   "%",
		"dimensions":       map[string]interface{}{"length": float64(2)},
		"dimensions_unit":  "mm",
		"notes":            map[string]interface{}{},
		"properties":       `{"pins": 8}`,
		"temperature_min":  float64(-40),
		"temperature_unit": "C",
	}

	once := Normalize(input)
	twice := Normalize(once)

	assert.Equal(t, once, twice)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	input := map[string]interface{}{
		"weight":      float64(10),
		"weight_unit": "",
		"dimensions":  map[string]interface{}{"length": float64(1)},
	}

	Normalize(input)

	assert.Equal(t, float64(10), input["weight"])
	assert.Equal(t, "", input["weight_unit"])
	dims := input["dimensions"].(map[string]interface{})
	_, hasWidth := dims["width"]
	assert.False(t, hasWidth)
}

func TestNormalizeNilInput(t *testing.T) {
	out := Normalize(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
