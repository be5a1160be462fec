package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/calvinalkan/buo/internal/config"
	"github.com/calvinalkan/buo/internal/dispatch"
	"github.com/calvinalkan/buo/internal/extract"
	"github.com/calvinalkan/buo/internal/inspect"
	"github.com/calvinalkan/buo/internal/meta"
	"github.com/calvinalkan/buo/pkg/fs"
	"github.com/calvinalkan/buo/pkg/slotcache"
)

// ErrCacheDisabled is returned by cache commands when --no-cache is set.
var ErrCacheDisabled = errors.New("cache is disabled (--no-cache)")

const cacheLockTimeout = 5 * time.Second

// session carries what every command needs once global flags and config
// are resolved.
type session struct {
	cfg     config.Config
	log     *slog.Logger
	fsys    fs.FS
	noCache bool
}

func (s *session) registry() *dispatch.Registry {
	return dispatch.NewRegistry(extract.DefaultCapabilities(s.fsys, s.cfg.FFprobe, s.cfg.MaxWalkDepth))
}

// resolve makes path absolute relative to the effective working directory.
func (s *session) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(s.cfg.EffectiveCwd, path)
}

// lockCache holds the snapshot's lock file until release is called, so
// concurrent buo processes don't overwrite each other's commits. release is
// a no-op when caching is disabled.
func (s *session) lockCache() (release func(), err error) {
	if s.noCache {
		return func() {}, nil
	}

	lock, err := fs.NewLocker(s.fsys).LockWithTimeout(s.cfg.CachePathAbs+".lock", cacheLockTimeout)
	if err != nil {
		if errors.Is(err, fs.ErrWouldBlock) {
			return nil, fmt.Errorf("cache is in use by another buo process: %w", err)
		}

		return nil, fmt.Errorf("lock cache: %w", err)
	}

	return func() {
		if err := lock.Close(); err != nil {
			s.log.Warn("releasing cache lock", "error", err)
		}
	}, nil
}

// openCache loads the snapshot, creating an empty one on first use. Callers
// hold lockCache. Returns nil without error when caching is disabled.
func (s *session) openCache() (*slotcache.Cache[*meta.Entry], error) {
	if s.noCache {
		return nil, nil
	}

	c, err := slotcache.Load(s.fsys, s.cfg.CachePathAbs, s.cfg.CacheCapacity, meta.EntryCodec{}, slotcache.LoadOptions{
		CreateIfAbsent: true,
		Compression:    s.cfg.Compression,
	})
	if err != nil {
		return nil, cacheLoadError(err)
	}

	s.log.Debug("cache loaded", "path", s.cfg.CachePathAbs, "entries", c.Len(), "capacity", c.Cap())

	return c, nil
}

// readCache loads the snapshot for read-only commands without taking the
// lock. A missing snapshot reads as an empty cache and is not created.
func (s *session) readCache() (*slotcache.Cache[*meta.Entry], error) {
	if s.noCache {
		return nil, ErrCacheDisabled
	}

	c, err := slotcache.Load(s.fsys, s.cfg.CachePathAbs, s.cfg.CacheCapacity, meta.EntryCodec{}, slotcache.LoadOptions{})
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug("no snapshot yet", "path", s.cfg.CachePathAbs)

		return slotcache.New[*meta.Entry](s.cfg.CacheCapacity)
	}

	if err != nil {
		return nil, cacheLoadError(err)
	}

	return c, nil
}

func cacheLoadError(err error) error {
	if errors.Is(err, slotcache.ErrCorrupt) || errors.Is(err, slotcache.ErrIncompatible) {
		return fmt.Errorf("%w (run 'buo cache clear' to reset it)", err)
	}

	return err
}

func (s *session) commitCache(c *slotcache.Cache[*meta.Entry]) error {
	err := slotcache.Commit(s.fsys, s.cfg.CachePathAbs, c, meta.EntryCodec{}, slotcache.CommitOptions{
		Compression: s.cfg.Compression,
	})
	if err != nil {
		return err
	}

	s.log.Debug("cache committed", "path", s.cfg.CachePathAbs, "entries", c.Len())

	return nil
}

// saveCache commits c when in reports changes. A failed commit is a
// warning: the command's output is still valid.
func (s *session) saveCache(o *IO, in *inspect.Inspector, c *slotcache.Cache[*meta.Entry]) {
	if c == nil || !in.Dirty() {
		return
	}

	if err := s.commitCache(c); err != nil {
		o.Warn("cache not saved: "+err.Error(), "check that "+s.cfg.CachePathAbs+" is writable")
	}
}

func (s *session) inspector(c *slotcache.Cache[*meta.Entry]) *inspect.Inspector {
	return inspect.New(inspect.Options{
		Registry: s.registry(),
		Cache:    c,
		FS:       s.fsys,
		Logger:   s.log,
		Jobs:     s.cfg.Jobs,
	})
}
