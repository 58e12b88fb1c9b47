package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// metaDir holds object headers and the website configuration of a Local
// store. It is never listed as an object.
const metaDir = ".lily"

type Local struct {
	BasePath string
}

func NewLocal(path string) *Local {
	return &Local{BasePath: path}
}

func (l *Local) Put(ctx context.Context, key string, reader io.Reader, _ int64, opts PutOptions) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	target, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, l.mode(opts))
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return l.writeMeta(filepath.Join(metaDir, "objects", filepath.FromSlash(key)+".json"), opts)
}

// Headers returns the options an object was stored with.
func (l *Local) Headers(key string) (PutOptions, error) {
	var opts PutOptions
	data, err := os.ReadFile(filepath.Join(l.BasePath, metaDir, "objects", filepath.FromSlash(key)+".json"))
	if err != nil {
		return opts, err
	}
	err = json.Unmarshal(data, &opts)
	return opts, err
}

func (l *Local) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	infos := []ObjectInfo{}
	err := filepath.WalkDir(l.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == l.BasePath {
				return fs.SkipAll
			}
			return err
		}
		rel, relErr := filepath.Rel(l.BasePath, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if d.IsDir() {
			if key == metaDir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		stat, statErr := d.Info()
		if statErr != nil {
			return statErr
		}
		infos = append(infos, ObjectInfo{Key: key, Size: stat.Size(), Modified: stat.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	target, err := l.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	if err == nil {
		return !info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *Local) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	objects, err := l.List(ctx, prefix)
	if err != nil {
		return false, err
	}
	return len(objects) > 0, nil
}

func (l *Local) Check(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	info, err := os.Stat(l.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

type localWebsite struct {
	IndexDocument string `json:"index_document"`
}

func (l *Local) SetIndexDocument(ctx context.Context, document string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return l.writeMeta(filepath.Join(metaDir, "website.json"), localWebsite{IndexDocument: document})
}

// IndexDocument returns the document set by SetIndexDocument.
func (l *Local) IndexDocument() (string, error) {
	data, err := os.ReadFile(filepath.Join(l.BasePath, metaDir, "website.json"))
	if err != nil {
		return "", err
	}
	var site localWebsite
	if err := json.Unmarshal(data, &site); err != nil {
		return "", err
	}
	return site.IndexDocument, nil
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	if clean == metaDir || strings.HasPrefix(clean, metaDir+string(filepath.Separator)) {
		return "", fmt.Errorf("reserved object key: %q", key)
	}
	return filepath.Join(l.BasePath, clean), nil
}

func (l *Local) mode(opts PutOptions) os.FileMode {
	if opts.PublicRead {
		return 0o644
	}
	return 0o600
}

func (l *Local) writeMeta(rel string, v any) error {
	target := filepath.Join(l.BasePath, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(target, payload, 0o600)
}
