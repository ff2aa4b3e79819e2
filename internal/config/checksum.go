package config

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyChecksum enforces the configuration's expected SHA-1 for the
// loaded binary. A missing "sha1" key disables the gate. The compare is
// case-insensitive on the configured hex string. Mismatch is fatal and
// happens before any segment processing.
func VerifyChecksum(doc Document, rom []byte) error {
	expected, ok := doc["sha1"].(string)
	if !ok || expected == "" {
		return nil
	}

	sum := sha1.Sum(rom)
	actual := hex.EncodeToString(sum[:])
	if actual != strings.ToLower(expected) {
		return &Error{
			Code:    ErrCodeChecksumMismatch,
			Key:     "sha1",
			Message: fmt.Sprintf("expected %s, was %s", strings.ToLower(expected), actual),
		}
	}
	return nil
}
