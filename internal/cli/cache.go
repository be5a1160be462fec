package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/calvinalkan/buo/internal/meta"
	"github.com/calvinalkan/buo/pkg/slotcache"

	flag "github.com/spf13/pflag"
)

// CacheCmd returns the cache command group.
func CacheCmd(sess *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("cache", flag.ContinueOnError),
		Usage: "cache <command>",
		Short: "Inspect and maintain the metadata cache",
		Long:  "Inspect and maintain the metadata cache snapshot.",
		Commands: []*Command{
			cacheInfoCmd(sess),
			cacheLsCmd(sess),
			cachePruneCmd(sess),
			cacheClearCmd(sess),
			cacheRmCmd(sess),
		},
	}
}

func cacheInfoCmd(sess *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("info", flag.ContinueOnError),
		Usage: "cache info",
		Short: "Show snapshot location, size and fill level",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			cache, err := sess.readCache()
			if err != nil {
				return err
			}

			o.Println("path=" + sess.cfg.CachePathAbs)
			o.Println("entries=" + strconv.Itoa(cache.Len()))
			o.Println("capacity=" + strconv.Itoa(cache.Cap()))
			o.Println("compression=" + sess.cfg.Compression.String())

			var size uint64
			if info, err := sess.fsys.Stat(sess.cfg.CachePathAbs); err == nil {
				size = uint64(info.Size())
			}

			o.Println("size=" + humanize.IBytes(size))

			return nil
		},
	}
}

func cacheLsCmd(sess *session) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.Int("limit", 0, "Maximum entries to show (0 shows all)")

	return &Command{
		Flags: fs,
		Usage: "cache ls [--limit N]",
		Short: "List cached entries in slot order",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			limit, _ := fs.GetInt("limit")
			if limit < 0 {
				return errors.New("--limit must be non-negative")
			}

			cache, err := sess.readCache()
			if err != nil {
				return err
			}

			entries := cache.Entries()
			if len(entries) == 0 {
				o.Println("cache is empty")

				return nil
			}

			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			o.Println(renderTable(
				[]string{"Slot", "Path", "Title", "Modified"},
				cacheRows(entries),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				isTerminal(o.Out()),
			))

			return nil
		},
	}
}

func cacheRows(entries []slotcache.Entry[*meta.Entry]) [][]string {
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		modified := ""
		if !e.Value.ModTime.IsZero() {
			modified = e.Value.ModTime.Local().Format(time.DateTime)
		}

		rows = append(rows, []string{strconv.Itoa(e.Slot), e.Key, e.Value.Title, modified})
	}

	return rows
}

func cachePruneCmd(sess *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("prune", flag.ContinueOnError),
		Usage: "cache prune",
		Short: "Drop entries whose file is gone or changed",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if sess.noCache {
				return ErrCacheDisabled
			}

			release, err := sess.lockCache()
			if err != nil {
				return err
			}

			defer release()

			cache, err := sess.openCache()
			if err != nil {
				return err
			}

			in := sess.inspector(cache)
			removed := in.Prune(ctx)

			if removed > 0 {
				if err := sess.commitCache(cache); err != nil {
					return err
				}
			}

			o.Printf("pruned %d of %d entries\n", removed, removed+cache.Len())

			return nil
		},
	}
}

func cacheClearCmd(sess *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("clear", flag.ContinueOnError),
		Usage: "cache clear",
		Short: "Replace the snapshot with an empty one",
		Long: `Replace the snapshot with an empty one.

The existing snapshot is not read, so this also recovers from a corrupt
snapshot or one written with a different capacity.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if sess.noCache {
				return ErrCacheDisabled
			}

			release, err := sess.lockCache()
			if err != nil {
				return err
			}

			defer release()

			cache, err := slotcache.New[*meta.Entry](sess.cfg.CacheCapacity)
			if err != nil {
				return err
			}

			if err := sess.commitCache(cache); err != nil {
				return err
			}

			o.Println("cleared " + sess.cfg.CachePathAbs)

			return nil
		},
	}
}

func cacheRmCmd(sess *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "cache rm <path>...",
		Short: "Remove entries by file path",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errNoPaths
			}

			if sess.noCache {
				return ErrCacheDisabled
			}

			release, err := sess.lockCache()
			if err != nil {
				return err
			}

			defer release()

			cache, err := sess.openCache()
			if err != nil {
				return err
			}

			removed := 0

			for _, arg := range args {
				path := sess.resolve(arg)

				if _, ok := cache.Remove(path); !ok {
					o.Warn(fmt.Sprintf("%s is not cached", arg), "check the path against 'buo cache ls'")

					continue
				}

				removed++

				o.Println("removed " + path)
			}

			if removed > 0 {
				return sess.commitCache(cache)
			}

			return nil
		},
	}
}
