package release

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/rowjay/lily-delivery/internal/compress"
	"github.com/rowjay/lily-delivery/internal/contenttype"
	"github.com/rowjay/lily-delivery/internal/progress"
	"github.com/rowjay/lily-delivery/internal/storage"
)

// Meta is applied to every uploaded object.
type Meta struct {
	CacheControl    string
	ContentEncoding string
}

// CDN is the edge cache in front of the website.
type CDN interface {
	UpdateRouting(ctx context.Context, entryDocument string) error
	InvalidateAll(ctx context.Context) (string, error)
}

type Outcome struct {
	EntryDocument  string
	AssetRoot      string
	EntryExists    bool
	AssetsExist    bool
	Skipped        bool
	DryRun         bool
	Uploaded       []string
	InvalidationID string
}

// Publisher uploads a staged Tree unless its version is already released.
//
// The release gate is not atomic: two runs publishing the same version at
// the same time can both pass it.
type Publisher struct {
	Store    storage.Storage
	Website  storage.Website
	CDN      CDN // optional
	Reporter progress.Reporter
	// Concurrency bounds parallel uploads. Values below 1 mean 1.
	Concurrency int
	// DryRun evaluates the gate and lists the planned uploads without
	// changing anything remotely.
	DryRun bool
}

// Released reports whether the entry document or any object below the asset
// root already exists.
func (p *Publisher) Released(ctx context.Context, tree *Tree) (entryExists, assetsExist bool, err error) {
	entryExists, err = p.Store.Exists(ctx, tree.EntryDocument)
	if err != nil {
		return false, false, err
	}
	assetsExist, err = p.Store.HasPrefix(ctx, tree.AssetRoot+"/")
	if err != nil {
		return false, false, err
	}
	return entryExists, assetsExist, nil
}

func (p *Publisher) Publish(ctx context.Context, tree *Tree, meta Meta) (*Outcome, error) {
	out := &Outcome{EntryDocument: tree.EntryDocument, AssetRoot: tree.AssetRoot, DryRun: p.DryRun}

	done := progress.Start(p.Reporter, progress.StageCheck)
	entryExists, assetsExist, err := p.Released(ctx, tree)
	done(err)
	if err != nil {
		return nil, err
	}
	out.EntryExists, out.AssetsExist = entryExists, assetsExist
	if entryExists || assetsExist {
		out.Skipped = true
		progress.Info(p.Reporter, progress.StageCheck, "release already exists, skipping", map[string]string{
			"entry":        tree.EntryDocument,
			"entry_exists": fmt.Sprint(entryExists),
			"asset_root":   tree.AssetRoot,
			"assets_exist": fmt.Sprint(assetsExist),
		})
		return out, nil
	}

	files, err := tree.Files()
	if err != nil {
		return nil, fmt.Errorf("list staged files: %w", err)
	}
	if p.DryRun {
		out.Uploaded = files
		progress.Info(p.Reporter, progress.StageUpload, "dry run, nothing uploaded", map[string]string{
			"files": fmt.Sprint(len(files)),
		})
		return out, nil
	}

	if err := p.upload(ctx, tree, files, meta); err != nil {
		return nil, err
	}
	out.Uploaded = files

	done = progress.Start(p.Reporter, progress.StageIndex)
	err = p.Website.SetIndexDocument(ctx, tree.EntryDocument)
	done(err)
	if err != nil {
		return nil, err
	}

	if p.CDN == nil {
		progress.Info(p.Reporter, progress.StageRouting, "no CDN configured, skipping routing and invalidation", nil)
		return out, nil
	}

	done = progress.Start(p.Reporter, progress.StageRouting)
	err = p.CDN.UpdateRouting(ctx, tree.EntryDocument)
	done(err)
	if err != nil {
		return nil, err
	}

	done = progress.Start(p.Reporter, progress.StageInvalidate)
	out.InvalidationID, err = p.CDN.InvalidateAll(ctx)
	done(err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Publisher) upload(ctx context.Context, tree *Tree, files []string, meta Meta) (err error) {
	done := progress.Start(p.Reporter, progress.StageUpload)
	defer func() { done(err) }()

	encoding := meta.ContentEncoding
	if encoding == "" {
		encoding = compress.TypeGzip
	}
	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, key := range files {
		g.Go(func() error {
			return p.uploadFile(gctx, tree, key, encoding, meta.CacheControl)
		})
	}
	return g.Wait()
}

func (p *Publisher) uploadFile(ctx context.Context, tree *Tree, key, encoding, cacheControl string) error {
	data, err := os.ReadFile(filepath.Join(tree.Root, filepath.FromSlash(key)))
	if err != nil {
		return fmt.Errorf("read staged file %s: %w", key, err)
	}
	payload, err := compress.Encode(encoding, data)
	if err != nil {
		return fmt.Errorf("compress %s: %w", key, err)
	}
	opts := storage.PutOptions{
		ContentType:     contenttype.Resolve(key),
		ContentEncoding: compress.ContentEncoding(encoding),
		CacheControl:    cacheControl,
		PublicRead:      true,
	}
	progress.Item(p.Reporter, progress.StageUpload, key, map[string]string{
		"content_type": opts.ContentType,
		"size":         fmt.Sprint(len(payload)),
	})
	return p.Store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), opts)
}
