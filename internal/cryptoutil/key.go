package cryptoutil

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the length of config encryption keys in bytes.
const KeySize = 32

// ParseKey decodes a config key given as "base64:...", "hex:..." or a bare
// base64 or hex string.
func ParseKey(key string) ([]byte, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, errors.New("encryption key is empty")
	}

	var (
		data []byte
		err  error
	)
	if rest, ok := strings.CutPrefix(trimmed, "base64:"); ok {
		data, err = base64.StdEncoding.DecodeString(rest)
	} else if rest, ok := strings.CutPrefix(trimmed, "hex:"); ok {
		data, err = hex.DecodeString(rest)
	} else if decoded, hexErr := hex.DecodeString(trimmed); hexErr == nil {
		data = decoded
	} else {
		data, err = base64.StdEncoding.DecodeString(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(data) != KeySize {
		return nil, fmt.Errorf("invalid key length: %d (expected %d bytes)", len(data), KeySize)
	}
	return data, nil
}

// GenerateKey returns a random key in the "base64:" form accepted by ParseKey.
func GenerateKey() (string, error) {
	buf := make([]byte, KeySize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "base64:" + base64.StdEncoding.EncodeToString(buf), nil
}
