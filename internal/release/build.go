// Package release lays out a versioned copy of a build directory and
// publishes it behind the release gate.
package release

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rowjay/lily-delivery/internal/progress"
	"github.com/rowjay/lily-delivery/internal/project"
	"github.com/rowjay/lily-delivery/internal/replace"
)

const DefaultEntryDocument = "index.html"

type BuildOptions struct {
	Source        string
	Version       string
	EntryDocument string
	Rules         []replace.Rule
	// Exclude holds doublestar patterns matched against slash separated
	// paths relative to Source.
	Exclude  []string
	TempDir  string
	Reporter progress.Reporter
}

// Tree is a staged release: Root holds EntryDocument and the AssetRoot
// directory and nothing else.
type Tree struct {
	Root          string
	EntryDocument string
	AssetRoot     string
}

// VersionedName returns the entry document name embedding version,
// index.html -> index-<version>.html.
func VersionedName(entry, version string) string {
	ext := filepath.Ext(entry)
	return strings.TrimSuffix(entry, ext) + "-" + version + ext
}

// Build copies opts.Source into a fresh staging root under
// <root>/<version>/, rewriting files covered by a replacement rule, and
// moves the entry document to <root>/<stem>-<version><ext>.
func Build(opts BuildOptions) (tree *Tree, err error) {
	done := progress.Start(opts.Reporter, progress.StageBuild)
	defer func() { done(err) }()

	if err := project.ValidateVersion(opts.Version); err != nil {
		return nil, err
	}
	entry := opts.EntryDocument
	if entry == "" {
		entry = DefaultEntryDocument
	}
	if entry != filepath.Base(entry) {
		return nil, fmt.Errorf("entry document must be a file name, got %q", entry)
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	info, err := os.Stat(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("build directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("build directory %s is not a directory", opts.Source)
	}

	root, err := os.MkdirTemp(opts.TempDir, "lily-delivery-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(root)
		}
	}()

	assetDir := filepath.Join(root, opts.Version)
	if err := copyTree(opts, assetDir); err != nil {
		return nil, err
	}

	versioned := VersionedName(entry, opts.Version)
	from := filepath.Join(assetDir, entry)
	if _, err := os.Stat(from); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("entry document %s not found in %s", entry, opts.Source)
		}
		return nil, err
	}
	if err := os.Rename(from, filepath.Join(root, versioned)); err != nil {
		return nil, fmt.Errorf("rename entry document: %w", err)
	}
	progress.Info(opts.Reporter, progress.StageBuild, "staged release", map[string]string{
		"root":    root,
		"entry":   versioned,
		"version": opts.Version,
	})

	return &Tree{Root: root, EntryDocument: versioned, AssetRoot: opts.Version}, nil
}

func copyTree(opts BuildOptions, dest string) error {
	return filepath.WalkDir(opts.Source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(opts.Source, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dest, 0o755)
		}
		slashRel := filepath.ToSlash(rel)
		if excluded(opts.Exclude, slashRel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			progress.Item(opts.Reporter, progress.StageBuild, slashRel, map[string]string{"action": "exclude"})
			return nil
		}

		target := filepath.Join(dest, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}

		if len(replace.Matching(path, opts.Rules)) > 0 {
			progress.Item(opts.Reporter, progress.StageBuild, slashRel, map[string]string{"action": "rewrite"})
			return rewriteFile(path, target, opts.Rules, opts.Version)
		}
		progress.Item(opts.Reporter, progress.StageBuild, slashRel, map[string]string{"action": "copy"})
		return copyFile(path, target)
	})
}

func excluded(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func rewriteFile(src, dst string, rules []replace.Rule, version string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	out := replace.Apply(src, data, rules, version)
	if err := os.WriteFile(dst, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("copy %s: symlinked directories are not supported", src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// Files lists every file of the tree as slash separated keys relative to
// Root, sorted.
func (t *Tree) Files() ([]string, error) {
	var keys []string
	err := filepath.WalkDir(t.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(t.Root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Cleanup removes the staging root.
func (t *Tree) Cleanup() error {
	if t == nil || t.Root == "" {
		return nil
	}
	return os.RemoveAll(t.Root)
}
