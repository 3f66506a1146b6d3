package secret

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Encode obfuscates s for at-rest storage: base64 of the UTF-8 bytes, then
// every base64 character written as two lowercase hex digits.
// This hides the key from casual inspection only. It is not encryption.
func Encode(s string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(s))
	return hex.EncodeToString([]byte(encoded))
}

// Decode reverses Encode.
func Decode(obfuscated string) (string, error) {
	encoded, err := hex.DecodeString(obfuscated)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex layer: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 layer: %w", err)
	}

	return string(raw), nil
}
