package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalRecord converts a record to JSON TEXT for storage.
// HTML escaping is disabled so that stored data matches what peers send
// byte for byte (recipe templates routinely contain '<' and '&').
func marshalRecord(record any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}
