package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinalkan/buo/internal/meta"

	flag "github.com/spf13/pflag"
)

type outputFormat int

const (
	formatText outputFormat = iota
	formatJSON
	formatPretty
)

// InspectCmd returns the inspect command.
func InspectCmd(sess *session) *Command {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.Bool("json", false, "Print compact JSON")
	fs.Bool("pretty", false, "Print indented JSON (implies --json)")

	return &Command{
		Flags: fs,
		Usage: "inspect [flags] <path>...",
		Short: "Print metadata of files and directories",
		Long: `Print metadata of each path in the order given.

Files are dispatched on their extension to the audio, video or code
extractor; results are cached until the file's modification time changes.
Directories print their file count and total size.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execInspect(ctx, o, sess, fs, args)
		},
	}
}

type inspectTarget struct {
	arg  string
	path string
	dir  bool
	file int // index into the file results, -1 for directories
}

func execInspect(ctx context.Context, o *IO, sess *session, fs *flag.FlagSet, args []string) error {
	if len(args) == 0 {
		return errNoPaths
	}

	format := formatText
	if asJSON, _ := fs.GetBool("json"); asJSON {
		format = formatJSON
	}

	if pretty, _ := fs.GetBool("pretty"); pretty {
		format = formatPretty
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

	targets := make([]inspectTarget, 0, len(args))
	files := make([]string, 0, len(args))

	for _, arg := range args {
		target := inspectTarget{arg: arg, path: sess.resolve(arg), file: -1}

		if info, err := sess.fsys.Stat(target.path); err == nil && info.IsDir() {
			target.dir = true
		} else {
			target.file = len(files)
			files = append(files, target.path)
		}

		targets = append(targets, target)
	}

	results, err := in.InspectAll(ctx, files)
	if err != nil {
		return err
	}

	sess.saveCache(o, in, cache)

	var errs []error

	now := time.Now()

	for _, target := range targets {
		if target.dir {
			dirMeta, err := in.DirMeta(ctx, target.path)
			if err != nil {
				errs = append(errs, err)

				continue
			}

			if err := printExport(o, meta.ExportDir(dirMeta, now), format); err != nil {
				return err
			}

			continue
		}

		res := results[target.file]

		switch {
		case res.Err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", target.arg, res.Err))
		case !res.Supported:
			ext := res.Ext
			if ext == "" {
				ext = "unknown"
			}

			o.Println("Filetype not supported:", ext)
		case !res.HasMeta():
			o.Println("No metadata for", target.arg)
		default:
			if err := printExport(o, meta.ExportFile(res.Entry, now), format); err != nil {
				return err
			}
		}
	}

	return errors.Join(errs...)
}

func printExport(o *IO, x meta.Export, format outputFormat) error {
	switch format {
	case formatJSON:
		out, err := x.JSON()
		if err != nil {
			return err
		}

		o.Println(out)
	case formatPretty:
		out, err := x.PrettyJSON()
		if err != nil {
			return err
		}

		o.Println(out)
	default:
		o.Println(x.String())
	}

	return nil
}
