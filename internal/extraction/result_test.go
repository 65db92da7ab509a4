package extraction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	doc := map[string]any{
		"Vendor": "Trader Joe's",
		"Totals": map[string]any{
			"Sub_Total": "40.00",
			"Tax": map[string]any{
				"State": "2.43",
			},
		},
		"text": []any{"line 1", "line 2"},
	}

	flat := Flatten(doc)

	assert.Equal(t, "Trader Joe's", flat["vendor"])
	assert.Equal(t, "40.00", flat["totals_sub_total"])
	assert.Equal(t, "2.43", flat["totals_tax_state"])
	assert.Equal(t, []any{"line 1", "line 2"}, flat["text"])
	assert.Len(t, flat, 4)
}

func TestParse_CanonicalFields(t *testing.T) {
	raw := "```json\n" + `{
		"Vendor": "Blue Bottle",
		"Amount": "$7.50",
		"Date": "2026-01-12",
		"Payment_Method": "Credit Card",
		"text": ["Blue Bottle Coffee", "Latte 7.50"]
	}` + "\n```"

	result := Parse(raw)
	require.False(t, result.Failed())

	assert.Equal(t, "Blue Bottle", result.Vendor())
	assert.Equal(t, "7.50 USD", result.Amount())
	assert.Equal(t, "2026-01-12", result.Date())
	assert.Equal(t, "Credit Card", result.PaymentMethod())
	assert.Equal(t, []string{"Blue Bottle Coffee", "Latte 7.50"}, result.TextLines())
}

func TestParse_MissingSentinel(t *testing.T) {
	result := Parse(`{"Vendor": "", "Amount": "12.00"}`)
	require.False(t, result.Failed())

	assert.Equal(t, Missing, result.Vendor())
	assert.Equal(t, Missing, result.Date())
	assert.Equal(t, Missing, result.PaymentMethod())
	assert.Equal(t, "12.00", result.Amount())
	assert.Nil(t, result.TextLines())
}

func TestParse_NumericLeavesKeepLiteralForm(t *testing.T) {
	result := Parse(`{"Amount": 45.00}`)
	require.False(t, result.Failed())
	assert.Equal(t, "45.00", result.Amount())
}

func TestParse_FailureStoresMarker(t *testing.T) {
	result := Parse("nothing structured")
	require.True(t, result.Failed())

	var marker string
	require.NoError(t, json.Unmarshal(result.StoredContent(), &marker))
	assert.Contains(t, marker, "Error parsing JSON:")
}

func TestParse_NonObjectDocumentFails(t *testing.T) {
	result := Parse(`{"ok"} trailing {`)
	assert.True(t, result.Failed())
}

func TestStoredContent_SuccessKeepsCleanedDocument(t *testing.T) {
	result := Parse(`{"Vendor": "Store"}`)
	require.False(t, result.Failed())
	assert.JSONEq(t, `{"Vendor": "Store"}`, string(result.StoredContent()))
}
