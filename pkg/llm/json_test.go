package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain object", `{"insight": "x", "sql": null}`, `{"insight": "x", "sql": null}`},
		{"plain array", `[{"a": 1}, {"a": 2}]`, `[{"a": 1}, {"a": 2}]`},
		{"nested", `{"a": {"b": [1, 2, {"c": 3}]}}`, `{"a": {"b": [1, 2, {"c": 3}]}}`},
		{"think tags", "<think>\nplanning\n</think>\n{\"chart_type\": \"bar\"}", `{"chart_type": "bar"}`},
		{"markdown fence", "Here you go:\n```json\n{\"chart_type\": \"line\"}\n```", `{"chart_type": "line"}`},
		{"text around", `Answer: {"sql": "SELECT 1"} hope this helps`, `{"sql": "SELECT 1"}`},
		{"brackets in strings", `{"sql": "SELECT '{' || name || '}' FROM t"}`, `{"sql": "SELECT '{' || name || '}' FROM t"}`},
		{"escaped quotes", `{"insight": "say \"hi\" {"}`, `{"insight": "say \"hi\" {"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, input := range []string{"", "no json here", `{"unterminated": `} {
		_, err := ExtractJSON(input)
		assert.Error(t, err, input)
	}
}

func TestParseJSONResponse(t *testing.T) {
	type out struct {
		Insight   string `json:"insight"`
		ChartType string `json:"chart_type"`
	}

	got, err := ParseJSONResponse[out]("```json\n{\"insight\": \"up 5%\", \"chart_type\": \"bar\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "up 5%", got.Insight)
	assert.Equal(t, "bar", got.ChartType)

	_, err = ParseJSONResponse[out](`["not", "an", "object"]`)
	assert.Error(t, err)
}
