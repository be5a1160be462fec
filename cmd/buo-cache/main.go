// buo-cache is an interactive shell for buo metadata cache snapshots.
//
// Usage:
//
//	buo-cache <snapshot>                Open an existing snapshot
//	buo-cache new [opts] <snapshot>     Create a new, empty snapshot
//
// Options for 'new' command:
//
//	-c, --capacity      Slot capacity (default: 4096)
//
// Options for both:
//
//	    --compression   Compression used by 'commit': none, zstd or lz4 (default: zstd)
//
// Commands (in REPL):
//
//	get <path>       Show the entry cached for a path
//	ls [limit]       List entries in slot order
//	len              Count live entries
//	info             Show snapshot info
//	rm <path>...     Remove entries
//	prune            Drop entries whose file is gone or changed
//	commit           Write changes back to the snapshot
//	help             Show this help
//	exit / quit / q  Exit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/calvinalkan/buo/internal/config"
	"github.com/calvinalkan/buo/internal/dispatch"
	"github.com/calvinalkan/buo/internal/extract"
	"github.com/calvinalkan/buo/internal/inspect"
	"github.com/calvinalkan/buo/internal/meta"
	"github.com/calvinalkan/buo/pkg/fs"
	"github.com/calvinalkan/buo/pkg/slotcache"

	flag "github.com/spf13/pflag"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return errors.New("missing command or snapshot path")
	}

	if args[0] == "new" {
		return runNew(args[1:])
	}

	return runOpen(args)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  buo-cache <snapshot>              Open an existing snapshot\n")
	fmt.Fprintf(os.Stderr, "  buo-cache new [opts] <snapshot>   Create a new, empty snapshot\n")
	fmt.Fprintf(os.Stderr, "\nRun 'buo-cache new --help' for options when creating a snapshot.\n")
}

func compressionFlag(set *flag.FlagSet) *string {
	return set.String("compression", "zstd", "compression used by commit (none, zstd, lz4)")
}

func runNew(args []string) error {
	set := flag.NewFlagSet("new", flag.ContinueOnError)
	capacity := set.IntP("capacity", "c", config.DefaultCacheCapacity, "slot capacity")
	compressionName := compressionFlag(set)

	set.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: buo-cache new [options] <snapshot>\n\n")
		fmt.Fprintf(os.Stderr, "Create a new, empty snapshot and open it.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		set.PrintDefaults()
	}

	if err := set.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	if set.NArg() < 1 {
		set.Usage()
		return errors.New("missing snapshot path")
	}

	compression, err := slotcache.ParseCompression(*compressionName)
	if err != nil {
		return err
	}

	path := set.Arg(0)
	fsys := fs.NewReal()

	if _, err := fsys.Stat(path); err == nil {
		return fmt.Errorf("snapshot already exists: %s (use 'buo-cache %s' to open it)", path, path)
	}

	cache, err := slotcache.Load(fsys, path, *capacity, meta.EntryCodec{}, slotcache.LoadOptions{
		CreateIfAbsent: true,
		Compression:    compression,
	})
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}

	fmt.Printf("Created %s with %d slots.\n\n", path, cache.Cap())

	return newShell(fsys, path, cache, compression).Run()
}

func runOpen(args []string) error {
	set := flag.NewFlagSet("open", flag.ContinueOnError)
	compressionName := compressionFlag(set)

	set.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: buo-cache [options] <snapshot>\n\n")
		fmt.Fprintf(os.Stderr, "Open an existing snapshot.\n\n")
		set.PrintDefaults()
	}

	if err := set.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	if set.NArg() < 1 {
		set.Usage()
		return errors.New("missing snapshot path")
	}

	compression, err := slotcache.ParseCompression(*compressionName)
	if err != nil {
		return err
	}

	path := set.Arg(0)
	fsys := fs.NewReal()

	cache, err := openSnapshot(fsys, path)
	if err != nil {
		return err
	}

	return newShell(fsys, path, cache, compression).Run()
}

// openSnapshot decodes path with whatever capacity it was written with.
func openSnapshot(fsys fs.FS, path string) (*slotcache.Cache[*meta.Entry], error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot does not exist: %s (use 'buo-cache new %s' to create it)", path, path)
		}

		return nil, err
	}

	cache, err := slotcache.Decode(data, meta.EntryCodec{})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}

	return cache, nil
}

// lockTimeout is how long commit waits for a buo process holding the
// snapshot's lock.
const lockTimeout = 5 * time.Second

// shell is the interactive command loop.
type shell struct {
	fsys        fs.FS
	path        string
	cache       *slotcache.Cache[*meta.Entry]
	compression slotcache.Compression
	dirty       bool
	out         io.Writer
	liner       *liner.State
	lockTimeout time.Duration
}

func newShell(fsys fs.FS, path string, cache *slotcache.Cache[*meta.Entry], compression slotcache.Compression) *shell {
	return &shell{fsys: fsys, path: path, cache: cache, compression: compression, out: os.Stdout, lockTimeout: lockTimeout}
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".buo_cache_history")
}

// Run starts the REPL loop.
func (s *shell) Run() error {
	s.liner = liner.NewLiner()
	defer s.liner.Close()

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = s.liner.ReadHistory(f)
		f.Close()
	}

	s.printf("buo-cache - %s (%d/%d slots used)\n", s.path, s.cache.Len(), s.cache.Cap())
	s.printf("Type 'help' for available commands.\n\n")

	for {
		line, err := s.liner.Prompt("buo-cache> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				s.printf("\n")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.liner.AppendHistory(line)

		if quit := s.exec(line); quit {
			break
		}
	}

	s.saveHistory()

	if s.dirty {
		s.printf("Uncommitted changes discarded. Bye!\n")
	} else {
		s.printf("Bye!\n")
	}

	return nil
}

// saveHistory persists command history to disk.
func (s *shell) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = s.liner.WriteHistory(f)
			f.Close()
		}
	}
}

var commands = []string{
	"get", "ls", "list", "len", "count", "info",
	"rm", "del", "prune", "commit",
	"help", "exit", "quit", "q",
}

// completer provides tab completion for commands.
func completer(line string) []string {
	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

// exec runs one command line. Returns true when the shell should exit.
func (s *shell) exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		s.printHelp()
	case "get":
		s.cmdGet(args)
	case "ls", "list":
		s.cmdLs(args)
	case "len", "count":
		s.printf("%d\n", s.cache.Len())
	case "info":
		s.cmdInfo()
	case "rm", "del":
		s.cmdRm(args)
	case "prune":
		s.cmdPrune()
	case "commit":
		s.cmdCommit()
	default:
		s.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	return false
}

func (s *shell) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *shell) printHelp() {
	s.printf("Commands:\n")
	s.printf("  get <path>       Show the entry cached for a path\n")
	s.printf("  ls [limit]       List entries in slot order\n")
	s.printf("  len              Count live entries\n")
	s.printf("  info             Show snapshot info\n")
	s.printf("  rm <path>...     Remove entries\n")
	s.printf("  prune            Drop entries whose file is gone or changed\n")
	s.printf("  commit           Write changes back to the snapshot\n")
	s.printf("  help             Show this help\n")
	s.printf("  exit / quit / q  Exit\n")
	s.printf("\nPaths are made absolute against the current directory.\n")
}

func key(arg string) string {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return filepath.Clean(arg)
	}

	return abs
}

func (s *shell) cmdGet(args []string) {
	if len(args) != 1 {
		s.printf("Usage: get <path>\n")

		return
	}

	path := key(args[0])

	entry, ok := s.cache.Get(path)
	if !ok {
		s.printf("Not found: %s\n", path)

		return
	}

	slot, _ := s.cache.SlotOf(path)

	s.printf("slot: %d\n", slot)
	s.printf("modified: %s\n", entry.ModTime.Local().Format("2006-01-02 15:04:05"))
	s.printf("%s\n", entry.Detailed())
}

func (s *shell) cmdLs(args []string) {
	limit := 0

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			s.printf("Invalid limit: %s\n", args[0])

			return
		}

		limit = n
	}

	entries := s.cache.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	for _, e := range entries {
		s.printf("%6d  %s\n", e.Slot, e.Key)
	}

	s.printf("(%d of %d entries)\n", len(entries), s.cache.Len())
}

func (s *shell) cmdInfo() {
	s.printf("path:         %s\n", s.path)
	s.printf("entries:      %d\n", s.cache.Len())
	s.printf("capacity:     %d\n", s.cache.Cap())
	s.printf("compression:  %s\n", s.compression)
	s.printf("uncommitted:  %v\n", s.dirty)
}

func (s *shell) cmdRm(args []string) {
	if len(args) == 0 {
		s.printf("Usage: rm <path>...\n")

		return
	}

	for _, arg := range args {
		path := key(arg)

		if _, ok := s.cache.Remove(path); !ok {
			s.printf("Not found: %s\n", path)

			continue
		}

		s.dirty = true
		s.printf("Removed: %s\n", path)
	}
}

func (s *shell) cmdPrune() {
	in := inspect.New(inspect.Options{
		Registry: dispatch.NewRegistry(extract.DefaultCapabilities(s.fsys, "", config.DefaultMaxWalkDepth)),
		Cache:    s.cache,
		FS:       s.fsys,
	})

	removed := in.Prune(context.Background())
	if removed > 0 {
		s.dirty = true
	}

	s.printf("Pruned %d entries.\n", removed)
}

// cmdCommit writes the snapshot while holding <snapshot>.lock, the lock
// buo's writing commands take.
func (s *shell) cmdCommit() {
	lock, err := fs.NewLocker(s.fsys).LockWithTimeout(s.path+".lock", s.lockTimeout)
	if err != nil {
		if errors.Is(err, fs.ErrWouldBlock) {
			s.printf("Commit failed: snapshot is in use by a buo process: %v\n", err)
		} else {
			s.printf("Commit failed: %v\n", err)
		}

		return
	}

	defer func() {
		if err := lock.Close(); err != nil {
			s.printf("Releasing lock: %v\n", err)
		}
	}()

	err = slotcache.Commit(s.fsys, s.path, s.cache, meta.EntryCodec{}, slotcache.CommitOptions{Compression: s.compression})
	if err != nil {
		s.printf("Commit failed: %v\n", err)

		return
	}

	s.dirty = false
	s.printf("Committed %d entries to %s.\n", s.cache.Len(), s.path)
}
