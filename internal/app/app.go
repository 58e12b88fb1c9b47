package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rowjay/lily-delivery/internal/cdn"
	"github.com/rowjay/lily-delivery/internal/config"
	"github.com/rowjay/lily-delivery/internal/lock"
	"github.com/rowjay/lily-delivery/internal/notify"
	"github.com/rowjay/lily-delivery/internal/progress"
	"github.com/rowjay/lily-delivery/internal/project"
	"github.com/rowjay/lily-delivery/internal/release"
	"github.com/rowjay/lily-delivery/internal/storage"
	"github.com/rowjay/lily-delivery/internal/util"
)

type App struct {
	Cfg      *config.Config
	Env      *config.Environment
	Store    storage.Storage
	Website  storage.Website
	CDN      release.CDN
	Log      zerolog.Logger
	Reporter progress.Reporter
	Notifier notify.Notifier
	// Dir holds the workspace and package descriptors.
	Dir string
	Now func() time.Time
}

func New(cfg *config.Config, env *config.Environment, store storage.Storage, site storage.Website, edge release.CDN, log zerolog.Logger, notifier notify.Notifier) *App {
	return &App{
		Cfg:      cfg,
		Env:      env,
		Store:    store,
		Website:  site,
		CDN:      edge,
		Log:      log,
		Reporter: progress.NewLog(log),
		Notifier: notifier,
		Dir:      ".",
		Now:      time.Now,
	}
}

// Open resolves environment and builds its remote clients.
func Open(cfg *config.Config, environment string, log zerolog.Logger) (*App, error) {
	env, err := cfg.Environment(environment)
	if err != nil {
		return nil, err
	}
	store, site, err := storage.New(env)
	if err != nil {
		return nil, err
	}
	var edge release.CDN
	if env.CloudFront != nil {
		edge = cdn.New(*env.CloudFront)
	}
	return New(cfg, env, store, site, edge, log, notify.FromConfig(cfg.Notifications)), nil
}

type DeployOptions struct {
	Project string
	DryRun  bool
}

type DeployResult struct {
	Project     string
	Environment string
	Version     string
	Source      string
	Outcome     *release.Outcome
}

func (a *App) Deploy(ctx context.Context, opts DeployOptions) (*DeployResult, error) {
	start := a.now()
	res := &DeployResult{Project: opts.Project, Environment: a.Env.Name}
	var opErr error
	defer func() {
		if a.Notifier == nil || opts.DryRun {
			return
		}
		event := notify.Event{
			Type:        "deploy",
			Message:     fmt.Sprintf("deploy %s to %s", res.Project, res.Environment),
			Status:      deployStatus(res, opErr),
			Project:     res.Project,
			Environment: res.Environment,
			Version:     res.Version,
			StartedAt:   start,
			EndedAt:     a.now(),
			Duration:    a.now().Sub(start).String(),
		}
		if res.Outcome != nil {
			event.EntryDocument = res.Outcome.EntryDocument
		}
		if opErr != nil {
			event.Error = opErr.Error()
		}
		if err := a.Notifier.Notify(context.Background(), event); err != nil {
			a.Log.Warn().Err(err).Msg("notification failed")
		}
	}()

	if strings.TrimSpace(opts.Project) == "" {
		opErr = errors.New("project name is required")
		return nil, opErr
	}

	lockPath := a.Cfg.Global.LockFile
	if lockPath == "" {
		lockPath = lock.DefaultPath(opts.Project, a.Env.Name)
	}
	guard, err := lock.Acquire(lockPath)
	if err != nil {
		opErr = err
		return nil, err
	}
	defer guard.Release()
	a.Log.Debug().Str("lock", guard.Path()).Msg("deploy lock acquired")

	ok, err := util.InWindow(a.now(), a.Cfg.Schedule.WindowStart, a.Cfg.Schedule.WindowEnd, a.Cfg.Schedule.Timezone)
	if err != nil {
		opErr = err
		return nil, err
	}
	if !ok {
		opErr = errors.New("current time is outside configured deploy window")
		return nil, opErr
	}

	res.Source, err = project.OutputPath(a.Dir, a.Cfg.Build.WorkspaceFile, opts.Project)
	if err != nil {
		opErr = err
		return nil, err
	}
	res.Version, err = project.Version(a.Dir, a.Cfg.Build.PackageFile)
	if err != nil {
		opErr = err
		return nil, err
	}
	a.Log.Info().
		Str("project", opts.Project).
		Str("environment", a.Env.Name).
		Str("version", res.Version).
		Str("source", res.Source).
		Msg("deploying")

	tree, err := release.Build(release.BuildOptions{
		Source:        res.Source,
		Version:       res.Version,
		EntryDocument: a.Cfg.Build.EntryDocument,
		Rules:         a.Cfg.Replacements,
		Exclude:       a.Cfg.Build.Exclude,
		TempDir:       a.Cfg.Build.TempDir,
		Reporter:      a.Reporter,
	})
	if err != nil {
		opErr = err
		return nil, err
	}
	defer func() {
		if err := tree.Cleanup(); err != nil {
			a.Log.Warn().Err(err).Str("root", tree.Root).Msg("failed to remove staging directory")
		}
	}()

	pub := &release.Publisher{
		Store:       a.Store,
		Website:     a.Website,
		CDN:         a.CDN,
		Reporter:    a.Reporter,
		Concurrency: a.Cfg.Global.UploadConcurrency,
		DryRun:      opts.DryRun,
	}
	res.Outcome, err = pub.Publish(ctx, tree, release.Meta{
		CacheControl:    a.Cfg.Meta.CacheControl,
		ContentEncoding: a.Cfg.Meta.ContentEncoding,
	})
	if err != nil {
		opErr = err
		return nil, err
	}
	return res, nil
}

// Checker is implemented by collaborators that can verify their credentials.
type Checker interface {
	Check(ctx context.Context) (bool, error)
}

type CheckResult struct {
	Name string
	OK   bool
	Err  error
}

// Validate checks that the bucket and the distribution accept the configured
// credentials.
func (a *App) Validate(ctx context.Context) ([]CheckResult, error) {
	var results []CheckResult
	run := func(name string, c Checker) {
		ok, err := c.Check(ctx)
		results = append(results, CheckResult{Name: name, OK: ok && err == nil, Err: err})
	}
	run("storage", a.Store)
	if c, ok := a.CDN.(Checker); ok {
		run("cdn", c)
	}

	var errs []error
	for _, r := range results {
		switch {
		case r.Err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		case !r.OK:
			errs = append(errs, fmt.Errorf("%s: credentials rejected or resource not found", r.Name))
		}
	}
	return results, errors.Join(errs...)
}

type Release struct {
	Version       string
	EntryDocument string
	Modified      time.Time
}

// Releases lists the versions whose entry document is present in the store,
// newest first.
func (a *App) Releases(ctx context.Context) ([]Release, error) {
	entry := a.Cfg.Build.EntryDocument
	if entry == "" {
		entry = release.DefaultEntryDocument
	}
	prefix := strings.TrimSuffix(entry, path.Ext(entry)) + "-"
	objects, err := a.Store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []Release
	for _, obj := range objects {
		v, ok := util.EntryVersion(obj.Key, entry)
		if !ok {
			continue
		}
		out = append(out, Release{Version: v, EntryDocument: obj.Key, Modified: obj.Modified})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func deployStatus(res *DeployResult, err error) string {
	switch {
	case err != nil:
		return notify.StatusFailed
	case res.Outcome != nil && res.Outcome.Skipped:
		return notify.StatusSkipped
	default:
		return notify.StatusSuccess
	}
}
