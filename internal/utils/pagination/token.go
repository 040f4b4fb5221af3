package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// Cursor points at the last row of a page. Rows are ordered by (At, ID) descending,
// so the next page starts strictly after it.
type Cursor struct {
	At        time.Time
	CreatedAt time.Time
	ID        string
}

// EncodeCursor creates an opaque token from a cursor.
func EncodeCursor(c Cursor) string {
	tokenStr := strings.Join([]string{
		c.At.UTC().Format(timeFormat),
		c.CreatedAt.UTC().Format(timeFormat),
		c.ID,
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	decodedBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}

	at, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (position parse): %w", err)
	}
	createdAt, err := time.Parse(timeFormat, parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}
	return Cursor{At: at, CreatedAt: createdAt, ID: parts[2]}, nil
}

// Limit clamps a requested page size.
func Limit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}
