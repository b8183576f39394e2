// Package id generates short identifiers used to correlate log lines.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// cycleAlphabet avoids look-alike characters so ids are easy to grep for.
	cycleAlphabet = "23456789abcdefghijkmnpqrstuvwxyz"
	cycleLength   = 10
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "run-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Cycle returns a short id for one dispatch cycle. It never fails: when the
// system has no entropy left the cycle is labelled "cycle-unknown" so logging
// can continue.
func Cycle() string {
	id, err := gonanoid.Generate(cycleAlphabet, cycleLength)
	if err != nil {
		return "cycle-unknown"
	}
	return "cycle-" + id
}
