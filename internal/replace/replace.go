package replace

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"
)

// VersionPlaceholder is substituted with the release version inside Rule.To.
const VersionPlaceholder = "{version}"

// Rule rewrites every literal occurrence of From into To for files whose
// extension is listed in FileExtensions.
type Rule struct {
	From           string   `mapstructure:"from" yaml:"from"`
	To             string   `mapstructure:"to" yaml:"to"`
	FileExtensions []string `mapstructure:"file_extensions" yaml:"file_extensions"`
}

// Target returns To with the version placeholder substituted.
func (r Rule) Target(version string) string {
	return strings.ReplaceAll(r.To, VersionPlaceholder, version)
}

// AppliesTo reports whether the rule covers path. Extensions compare exactly,
// including case and the leading dot.
func (r Rule) AppliesTo(path string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}
	return slices.Contains(r.FileExtensions, ext)
}

// Matching returns the rules applicable to path, in configured order.
func Matching(path string, rules []Rule) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.AppliesTo(path) {
			out = append(out, r)
		}
	}
	return out
}

// Apply rewrites content with every rule applicable to path. Content is
// returned untouched when no rule applies. Matching is literal: a rule for
// "/assets/monaco" leaves "assets/monaco" alone.
func Apply(path string, content []byte, rules []Rule, version string) []byte {
	matching := Matching(path, rules)
	if len(matching) == 0 {
		return content
	}
	out := content
	for _, r := range matching {
		if r.From == "" {
			continue
		}
		out = bytes.ReplaceAll(out, []byte(r.From), []byte(r.Target(version)))
	}
	return out
}
