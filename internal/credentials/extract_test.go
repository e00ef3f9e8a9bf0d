package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Structured stage ─────────────────────────────────────────────────────────

func TestExtract_StructuredEveryField(t *testing.T) {
	for _, f := range Fields {
		t.Run(f.Key(), func(t *testing.T) {
			text := `{"` + f.Key() + `": "v-` + f.Key() + `", "other": 1}`
			m, ok := Extract(text, f)
			require.True(t, ok)
			assert.Equal(t, "v-"+f.Key(), m.Value)
			assert.Equal(t, ViaStructured, m.Via)
		})
	}
}

func TestExtract_StructuredEmptyStringIsAValue(t *testing.T) {
	m, ok := Extract(`{"clientId":""}`, ClientID)
	require.True(t, ok)
	assert.Equal(t, "", m.Value)
	assert.Equal(t, ViaStructured, m.Via)
}

func TestExtract_NullFallsThroughToScan(t *testing.T) {
	// The scan starts three characters past the key, inside "null", and finds no quote.
	_, ok := Extract(`{"access_token":null}`, AccessToken)
	assert.False(t, ok)
}

func TestExtract_NonStringFallsThroughToScan(t *testing.T) {
	m, ok := Extract(`{"clientUserId":12345,"n":"x"}`, ClientUserID)
	require.True(t, ok)
	assert.Equal(t, ViaScan, m.Via)
	// Three characters past the key land inside the number; the value runs to the next quote.
	assert.Equal(t, "2345,", m.Value)
}

// ─── Fallback scan ────────────────────────────────────────────────────────────

func TestExtract_ConcatenatedFragments(t *testing.T) {
	m, ok := Extract(`{"a":"b"}{"access_token":"tok123"}`, AccessToken)
	require.True(t, ok)
	assert.Equal(t, "tok123", m.Value)
	assert.Equal(t, ViaScan, m.Via)
}

func TestExtract_FirstOccurrenceWins(t *testing.T) {
	blob := `{"clientSecret":"first"}{"clientSecret":"second"}`
	m, ok := Extract(blob, ClientSecret)
	require.True(t, ok)
	assert.Equal(t, "first", m.Value)
}

func TestExtract_ScanStopsAtNextQuote(t *testing.T) {
	blob := `{"clientId":"a\"b"}{"x":"y"`
	m, ok := Extract(blob, ClientID)
	require.True(t, ok)
	assert.Equal(t, `a\`, m.Value)
}

func TestExtract_ScanAssumesCompactDelimiter(t *testing.T) {
	// A space after the colon shifts the cut onto the opening quote.
	blob := `{"a":"b"}{"specialToken": "tok"}`
	m, ok := Extract(blob, SpecialToken)
	require.True(t, ok)
	assert.Equal(t, "", m.Value)
	assert.Equal(t, ViaScan, m.Via)
}

func TestExtract_Misses(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"absent key", `{"a":"b"}{"c":"d"}`},
		{"valid json absent key", `{"clientId":"c1"}`},
		{"key at end of text", `garbage access_token`},
		{"no closing quote", `{"x":1}{"access_token":"unterminated`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Extract(tt.text, AccessToken)
			assert.False(t, ok)
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	blob := `{"clientSecret":"s"}{"specialToken":"sp","clientId":"c"}`
	for _, f := range Fields {
		a, okA := Extract(blob, f)
		b, okB := Extract(blob, f)
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b)
	}
}

func TestFieldByKey(t *testing.T) {
	for _, f := range Fields {
		got, ok := FieldByKey(f.Key())
		require.True(t, ok)
		assert.Equal(t, f, got)
	}
	_, ok := FieldByKey("password")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Field(99).String())
}
