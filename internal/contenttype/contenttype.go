package contenttype

import (
	"mime"
	"path/filepath"
	"strings"
)

const fontWOFF2 = "font/woff2"

// Resolve returns the MIME type for path based on its extension, or an empty
// string when the extension is unknown. Platforms without a .woff2 mapping
// get font/woff2.
func Resolve(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	if strings.HasSuffix(path, ".woff2") {
		return fontWOFF2
	}
	return ""
}
