// Package inspect resolves paths to metadata through the dispatcher,
// serving repeat lookups from the slot cache.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/buo/internal/dispatch"
	"github.com/calvinalkan/buo/internal/logging"
	"github.com/calvinalkan/buo/internal/meta"
	"github.com/calvinalkan/buo/pkg/fs"
	"github.com/calvinalkan/buo/pkg/slotcache"
)

// ErrIsDirectory indicates a directory was passed to a file operation.
var ErrIsDirectory = errors.New("is a directory")

// Options configure [New].
type Options struct {
	Registry *dispatch.Registry

	// Cache stores extracted entries keyed by absolute path. Nil disables
	// caching.
	Cache *slotcache.Cache[*meta.Entry]

	FS     fs.FS
	Logger *slog.Logger

	// Jobs bounds concurrent extractions in [Inspector.InspectAll].
	// Values below 1 mean 1.
	Jobs int
}

// Inspector is not safe for concurrent use. Only the extraction step of
// [Inspector.InspectAll] runs in parallel; cache access stays on the
// calling goroutine.
type Inspector struct {
	registry *dispatch.Registry
	cache    *slotcache.Cache[*meta.Entry]
	fsys     fs.FS
	log      *slog.Logger
	jobs     int
	dirty    bool
}

// New returns an inspector. Panics if Registry or FS is nil.
func New(opts Options) *Inspector {
	if opts.Registry == nil {
		panic("inspect: nil registry")
	}

	if opts.FS == nil {
		panic("inspect: nil fs")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Inspector{
		registry: opts.Registry,
		cache:    opts.Cache,
		fsys:     opts.FS,
		log:      logger,
		jobs:     max(opts.Jobs, 1),
	}
}

// Result is the outcome of inspecting one path.
type Result struct {
	// Path is the absolute path used as cache key.
	Path string

	// Entry is nil when the type is unsupported or extraction failed.
	Entry *meta.Entry

	// Ext is the path's extension without the dot.
	Ext string

	// Supported reports whether a capability handles the extension.
	Supported bool

	// Cached reports whether Entry came from the cache.
	Cached bool

	// Err is the extraction error of this path, if any.
	Err error
}

// HasMeta reports whether the result carries metadata beyond the file name.
func (r Result) HasMeta() bool {
	return r.Entry != nil && !r.Entry.IsEmpty()
}

// Dirty reports whether the cache was modified since New.
func (in *Inspector) Dirty() bool {
	return in.dirty
}

// InspectFile returns the metadata of one file.
func (in *Inspector) InspectFile(ctx context.Context, path string) (Result, error) {
	results, err := in.InspectAll(ctx, []string{path})
	if err != nil {
		return Result{}, err
	}

	return results[0], results[0].Err
}

type job struct {
	key        string
	res        *Result
	capability dispatch.Capability
	mtime      time.Time
	entry      *meta.Entry
	err        error
}

// InspectAll inspects paths, returning one result per input in order.
// Per-path failures are reported in [Result.Err]; the returned error is
// non-nil only when ctx is done.
func (in *Inspector) InspectAll(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))
	pending := make([]*job, 0, len(paths))
	first := make(map[string]int, len(paths))

	for i, path := range paths {
		res := &results[i]
		res.Path = canonical(path)
		res.Ext = extName(path)

		if _, dup := first[res.Path]; dup {
			continue
		}

		first[res.Path] = i

		j, err := in.prepare(ctx, res)
		if err != nil {
			res.Err = err

			continue
		}

		if j != nil {
			pending = append(pending, j)
		}
	}

	if err := in.extract(ctx, pending); err != nil {
		return nil, err
	}

	for _, j := range pending {
		if j.err != nil {
			j.res.Err = j.err

			continue
		}

		entry := j.entry
		if entry == nil {
			entry = meta.NewEntry(j.key)
		}

		entry.ModTime = j.mtime
		j.res.Entry = entry

		in.store(j.key, entry)
	}

	for i := range results {
		if prev := first[results[i].Path]; prev != i {
			results[i] = results[prev]
		}
	}

	return results, nil
}

// prepare resolves the capability and answers from the cache when the
// stored entry is current. It returns nil when no extraction is needed.
func (in *Inspector) prepare(ctx context.Context, res *Result) (*job, error) {
	info, err := in.fsys.Stat(res.Path)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("inspect %s: %w", res.Path, ErrIsDirectory)
	}

	capability, ok := in.registry.Dispatch(res.Path)
	if !ok {
		return nil, nil
	}

	res.Supported = true

	mtime, err := stamp(ctx, capability, res.Path, info.ModTime())
	if err != nil {
		return nil, err
	}

	if in.cache != nil {
		if cached, hit := in.cache.Get(res.Path); hit && mtime.Equal(cached.ModTime) {
			res.Entry = cached
			res.Cached = true

			return nil, nil
		}
	}

	return &job{key: res.Path, res: res, capability: capability, mtime: mtime}, nil
}

func (in *Inspector) extract(ctx context.Context, pending []*job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.jobs)

	for _, j := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			j.entry, j.err = j.capability.TryGetMeta(gctx, j.key)
			if j.err != nil {
				in.log.Debug("extract failed", "path", j.key, "error", j.err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// store replaces any stale entry for key. A full cache is logged and the
// entry is not cached.
func (in *Inspector) store(key string, entry *meta.Entry) {
	if in.cache == nil {
		return
	}

	if _, had := in.cache.Remove(key); had {
		in.dirty = true
	}

	err := in.cache.Insert(key, entry)
	if err != nil {
		in.log.Warn("entry not cached", "path", key, "error", err)

		return
	}

	in.dirty = true
}

// Prune drops cache entries whose file is gone or has changed since it was
// extracted. Returns the number of dropped entries.
func (in *Inspector) Prune(ctx context.Context) int {
	if in.cache == nil {
		return 0
	}

	removed := in.cache.Retain(func(key string, entry *meta.Entry) bool {
		info, err := in.fsys.Stat(key)
		if err != nil {
			return false
		}

		current := info.ModTime()

		if capability, ok := in.registry.Dispatch(key); ok {
			current, err = stamp(ctx, capability, key, current)
			if err != nil {
				return false
			}
		}

		return current.Equal(entry.ModTime)
	})

	if removed > 0 {
		in.dirty = true
		in.log.Info("pruned cache", "removed", removed)
	}

	return removed
}

// stamp returns the validity stamp of path: the capability's own stamp when
// it has one, else the file's modification time.
func stamp(ctx context.Context, capability dispatch.Capability, path string, mtime time.Time) (time.Time, error) {
	stamper, ok := capability.(dispatch.Stamper)
	if !ok {
		return mtime, nil
	}

	t, err := stamper.Stamp(ctx, path)
	if err != nil {
		return time.Time{}, fmt.Errorf("inspect: %w", err)
	}

	return t, nil
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	return abs
}

func extName(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}

	return ext[1:]
}
