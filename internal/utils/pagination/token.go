package pagination

import (
	"encoding/base64"
	"fmt"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// EncodeDateBasedToken creates an opaque keyset cursor from a creation time.
// File listings page on created_at descending, so the token for a page is the
// created_at of its last row.
func EncodeDateBasedToken(date time.Time) string {
	return base64.StdEncoding.EncodeToString([]byte(date.Format(timeFormat)))
}

// DecodeDateBasedToken parses a cursor back into the creation time boundary.
func DecodeDateBasedToken(token string) (time.Time, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}

	date, err := time.Parse(timeFormat, string(decodedBytes))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pagination token format (date parse): %w", err)
	}

	return date, nil
}
