package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my_shop", SanitizeName(" My Shop "))
	assert.Equal(t, "___prod", SanitizeName("../prod"))
	assert.Equal(t, "front-end_v2", SanitizeName("front-end_v2"))
	assert.Equal(t, "default", SanitizeName(""))
}

func TestEntryVersion(t *testing.T) {
	tests := []struct {
		key   string
		entry string
		want  string
		ok    bool
	}{
		{"index-1.4.56.html", "index.html", "1.4.56", true},
		{"index-2.0.0-rc.1.html", "index.html", "2.0.0-rc.1", true},
		{"app-3.1.0.htm", "app.htm", "3.1.0", true},
		{"index.html", "index.html", "", false},
		{"index-.html", "index.html", "", false},
		{"1.4.56/index-1.4.56.html", "index.html", "", false},
		{"main-1.0.0.js", "index.html", "", false},
	}
	for _, tt := range tests {
		got, ok := EntryVersion(tt.key, tt.entry)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}
