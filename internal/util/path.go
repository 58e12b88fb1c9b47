package util

import (
	"path"
	"strings"
)

// SanitizeName turns a free form name into something safe for a file name.
func SanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// EntryVersion extracts the version from a versioned entry document key such
// as index-1.4.56.html, given the unversioned entry name index.html.
func EntryVersion(key, entry string) (string, bool) {
	if strings.Contains(key, "/") {
		return "", false
	}
	ext := path.Ext(entry)
	stem := strings.TrimSuffix(entry, ext) + "-"
	if !strings.HasPrefix(key, stem) || !strings.HasSuffix(key, ext) {
		return "", false
	}
	v := strings.TrimSuffix(strings.TrimPrefix(key, stem), ext)
	if v == "" || len(key) < len(stem)+len(ext) {
		return "", false
	}
	return v, true
}
