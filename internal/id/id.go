// Package id generates identifiers for records and transient resources.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed random ID using NanoID.
// Format: prefix-nanoid (e.g., "sse-V1StGXR8_Z5jdHi6B-myT").
//
// Used for identifiers that never become record ids, such as SSE clients.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}
