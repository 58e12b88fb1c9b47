package cryptoutil

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func TestParseKeyForms(t *testing.T) {
	raw := make([]byte, KeySize)
	for i := range raw {
		raw[i] = byte(i)
	}
	b64 := base64.StdEncoding.EncodeToString(raw)
	hx := hex.EncodeToString(raw)

	for _, in := range []string{b64, "base64:" + b64, hx, "hex:" + hx, "  " + b64 + "\n"} {
		parsed, err := ParseKey(in)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", in, err)
		}
		if len(parsed) != KeySize || parsed[31] != 31 {
			t.Fatalf("ParseKey(%q) decoded wrong bytes", in)
		}
	}
}

func TestParseKeyRejectsShortKeys(t *testing.T) {
	if _, err := ParseKey(base64.StdEncoding.EncodeToString(make([]byte, 16))); err == nil {
		t.Fatalf("expected length error")
	}
	if _, err := ParseKey(""); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseKey(key); err != nil {
		t.Fatalf("generated key does not parse: %v", err)
	}
}
