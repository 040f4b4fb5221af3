package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	cursor := Cursor{
		At:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 3, 31, 14, 30, 45, 123456789, time.UTC),
		ID:        "8f14e45f-ceea-467f-a0e6-0d5b5d1c6a7e",
	}

	token := EncodeCursor(cursor)
	assert.NotEmpty(t, token)
	assert.NotContains(t, token, "=")

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, cursor.At.Equal(decoded.At))
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, cursor.ID, decoded.ID)
}

func TestEncodeCursorNormalizesToUTC(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*60*60)
	at := time.Date(2024, 1, 1, 3, 0, 0, 0, riyadh)

	decoded, err := DecodeCursor(EncodeCursor(Cursor{At: at, CreatedAt: at, ID: "x"}))

	require.NoError(t, err)
	assert.True(t, at.Equal(decoded.At))
	assert.Equal(t, time.UTC, decoded.At.Location())
}

func TestDecodeCursorError(t *testing.T) {
	raw := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name    string
		token   string
		wantMsg string
	}{
		{"not base64", "this is not base64!", "base64 decode"},
		{"missing fields", raw("2024-01-01T00:00:00Z"), "split"},
		{"empty id", raw("2024-01-01T00:00:00Z|2024-01-01T00:00:00Z|"), "split"},
		{"bad position", raw("notadate|2024-01-01T00:00:00Z|id"), "position parse"},
		{"bad created_at", raw("2024-01-01T00:00:00Z|notadate|id"), "created_at parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.token)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLimit(t *testing.T) {
	assert.Equal(t, 20, Limit(0, 20, 100))
	assert.Equal(t, 20, Limit(-5, 20, 100))
	assert.Equal(t, 35, Limit(35, 20, 100))
	assert.Equal(t, 100, Limit(500, 20, 100))
}
