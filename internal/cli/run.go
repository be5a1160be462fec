package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/calvinalkan/buo/internal/config"
	"github.com/calvinalkan/buo/internal/logging"
	"github.com/calvinalkan/buo/pkg/fs"

	flag "github.com/spf13/pflag"
)

type globalFlags struct {
	set *flag.FlagSet

	workDir    string
	configPath string
	cachePath  string
	noCache    bool
	verbose    bool
	help       bool
}

func newGlobalFlags() *globalFlags {
	g := &globalFlags{set: flag.NewFlagSet("buo", flag.ContinueOnError)}

	g.set.SetInterspersed(false)
	g.set.SetOutput(io.Discard)
	g.set.StringVarP(&g.workDir, "cwd", "C", "", "Run as if started in `dir`")
	g.set.StringVarP(&g.configPath, "config", "c", "", "Use specified config `file`")
	g.set.StringVar(&g.cachePath, "cache", "", "Use cache snapshot at `path`")
	g.set.BoolVar(&g.noCache, "no-cache", false, "Don't read or write the metadata cache")
	g.set.BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output to stderr")
	g.set.BoolVarP(&g.help, "help", "h", false, "Show help")

	return g
}

func (g *globalFlags) parse(args []string) error {
	if err := g.set.Parse(args); err != nil {
		return err
	}

	if g.set.Changed("cache") && g.cachePath == "" {
		return fmt.Errorf("--cache: %w", config.ErrPathEmpty)
	}

	if g.set.Changed("config") && g.configPath == "" {
		return fmt.Errorf("--config: %w", config.ErrPathEmpty)
	}

	return nil
}

// Run is the main entry point. Returns exit code.
//
// args includes the program name. A value received on sigCh cancels the
// running command's context.
func Run(_ io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := newGlobalFlags()

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.parse(args); err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	rest := globals.set.Args()
	if globals.help || len(rest) == 0 {
		printUsage(out, globals)

		return 0
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride:   globals.workDir,
		ConfigPath:        globals.configPath,
		CachePathOverride: globals.cachePath,
		Env:               env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	level := cfg.LogLevel
	if globals.verbose {
		level = "debug"
	}

	logger, err := logging.New(logging.Options{Level: level, Format: cfg.LogFormat, Writer: errOut})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	sess := &session{cfg: cfg, log: logger, fsys: fs.NewReal(), noCache: globals.noCache}

	var cmd *Command

	for _, c := range commands(sess) {
		if c.Name() == rest[0] {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", ErrUnknownCommand, rest[0]))
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				logger.Debug("interrupted")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(out, errOut), rest[1:])
}

// commands returns every top-level command. Help output only reads their
// usage lines, so sess may be nil there.
func commands(sess *session) []*Command {
	return []*Command{
		InspectCmd(sess),
		CacheCmd(sess),
		CandidatesCmd(sess),
		PrintConfigCmd(sess),
	}
}

func printUsage(w io.Writer, globals *globalFlags) {
	fprintln(w, `buo - file metadata inspector

Usage: buo [global flags] <command> [args]

Global flags:`)
	fprintln(w, strings.TrimRight(globals.set.FlagUsages(), "\n"))
	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands(nil) {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, `Run "buo <command> --help" for command flags.`)
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

var errNoPaths = errors.New("no paths given")
