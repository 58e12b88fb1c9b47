package contenttype

import (
	"mime"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		path   string
		prefix string
	}{
		{"something/new/1.png", "image/png"},
		{"something/better/index.14.5.html", "text/html"},
		{"something/better/logo.svg", "image/svg+xml"},
		{"something/better/styles.css", "text/css"},
	}
	for _, tc := range cases {
		got := Resolve(tc.path)
		if !strings.HasPrefix(got, tc.prefix) {
			t.Fatalf("Resolve(%q) = %q, want prefix %q", tc.path, got, tc.prefix)
		}
	}
}

func TestResolveJavaScript(t *testing.T) {
	got := Resolve("something/better/main-48394893.js")
	if !strings.Contains(got, "javascript") {
		t.Fatalf("unexpected content type: %q", got)
	}
}

func TestResolveWOFF2(t *testing.T) {
	if got := Resolve("something/better/shiny.woff2"); got != "font/woff2" {
		t.Fatalf("unexpected content type: %q", got)
	}
}

func TestResolveWOFF2OnlyLowercaseFallback(t *testing.T) {
	want := mime.TypeByExtension(".WOFF2")
	if got := Resolve("something/better/SHINY.WOFF2"); got != want {
		t.Fatalf("Resolve uppercase = %q, want mime lookup %q", got, want)
	}
	if got := Resolve("something/better/shiny.woff2.map"); got == "font/woff2" {
		t.Fatalf("fallback applied to a non woff2 path: %q", got)
	}
}

func TestResolveUnknown(t *testing.T) {
	if got := Resolve("something/LICENSE"); got != "" {
		t.Fatalf("expected empty content type, got %q", got)
	}
	if got := Resolve("something/blob.lilyunknownext"); got != "" {
		t.Fatalf("expected empty content type, got %q", got)
	}
}
