package extraction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean_StripsMarkdownWrapping(t *testing.T) {
	raw := "Here is the extracted data in the requested structure:\n" +
		"```json\n" +
		"{\"Vendor\": \"Trader Joe's\", \"Amount\": \"46.43\"}\n" +
		"```\n" +
		"Note: totals include tax."

	content, failure := Clean(raw)
	require.Nil(t, failure)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "Trader Joe's", doc["Vendor"])
	assert.Equal(t, "46.43", doc["Amount"])
}

func TestClean_RemovesBoldSpansAndSlicesBraces(t *testing.T) {
	raw := "**Receipt data** follows {\"Amount\": \"12.00\"} trailing prose"

	content, failure := Clean(raw)
	require.Nil(t, failure)
	assert.JSONEq(t, `{"Amount": "12.00"}`, string(content))
}

func TestClean_NormalizesCurrency(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare dollar amount gains unit",
			in:   `{"Amount": "$46.43"}`,
			want: `{"Amount": "46.43 USD"}`,
		},
		{
			name: "already suffixed amount untouched",
			in:   `{"Amount": "$46.43 USD"}`,
			want: `{"Amount": "$46.43 USD"}`,
		},
		{
			name: "mixed amounts handled independently",
			in:   `{"Total": "$9.99", "Paid": "$9.99 USD"}`,
			want: `{"Total": "9.99 USD", "Paid": "$9.99 USD"}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			content, failure := Clean(tc.in)
			require.Nil(t, failure)
			assert.Equal(t, tc.want, string(content))
		})
	}
}

func TestClean_NoteLineBeforePayloadKeepsPayload(t *testing.T) {
	raw := "Note: extracted fields are below\n" +
		"{\"Vendor\": \"Test Store\", \"Amount\": \"46.43\"}"

	content, failure := Clean(raw)
	require.Nil(t, failure)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "Test Store", doc["Vendor"])
	assert.Equal(t, "46.43", doc["Amount"])
}

func TestClean_LeadInStripStopsAtLineEnd(t *testing.T) {
	raw := "Here is the extracted data\n" +
		"{\"Vendor\": \"Legal LLP\", \"Items\": [\"fee structure: flat\"]}"

	content, failure := Clean(raw)
	require.Nil(t, failure)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "Legal LLP", doc["Vendor"])
	assert.Equal(t, []any{"fee structure: flat"}, doc["Items"])
}

func TestClean_StripsControlCharacters(t *testing.T) {
	raw := "{\"Vendor\": \"Café\x07 Roma\"}"

	content, failure := Clean(raw)
	require.Nil(t, failure)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "Café Roma", doc["Vendor"])
}

func TestClean_FailsWithoutBraces(t *testing.T) {
	content, failure := Clean("no structured data here")
	require.NotNil(t, failure)
	assert.Nil(t, content)
	assert.Equal(t, StageParse, failure.Stage)
	assert.Contains(t, failure.Description(), "Error parsing JSON:")
	assert.Equal(t, "no structured data here", failure.Raw)
}

func TestClean_FailsOnUnparseableBody(t *testing.T) {
	raw := "{\"Vendor\": \"Store\", }"

	content, failure := Clean(raw)
	require.NotNil(t, failure)
	assert.Nil(t, content)
	assert.Equal(t, raw, failure.Attempted)
	assert.Error(t, failure.Err)
}

func TestFailure_Descriptions(t *testing.T) {
	parse := &Failure{Stage: StageParse, Err: assert.AnError}
	assert.Contains(t, parse.Description(), "Error parsing JSON:")

	model := &Failure{Stage: StageModelCall, Err: assert.AnError}
	assert.Contains(t, model.Description(), "Vision API Error:")
}
