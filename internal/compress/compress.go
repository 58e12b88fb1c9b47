package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	TypeNone = "none"
	TypeGzip = "gzip"
	TypeZstd = "zstd"
)

// Supported reports whether kind is a known payload encoding.
func Supported(kind string) bool {
	switch kind {
	case "", TypeNone, TypeGzip, TypeZstd:
		return true
	}
	return false
}

// ContentEncoding returns the Content-Encoding header value for kind, or an
// empty string when the payload is stored as-is.
func ContentEncoding(kind string) string {
	switch kind {
	case TypeGzip, TypeZstd:
		return kind
	default:
		return ""
	}
}

func WrapWriter(kind string, w io.Writer) (io.WriteCloser, error) {
	switch kind {
	case "", TypeNone:
		return nopWriteCloser{w}, nil
	case TypeGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case TypeZstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported compression: %s", kind)
	}
}

// Encode compresses a whole payload in memory.
func Encode(kind string, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := WrapWriter(kind, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }
