package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(sess *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, sess)
		},
	}
}

func execPrintConfig(io *IO, sess *session) error {
	cfg := sess.cfg

	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("cache_path=" + cfg.CachePathAbs)
	io.Println("cache_capacity=" + strconv.Itoa(cfg.CacheCapacity))
	io.Println("cache_compression=" + cfg.Compression.String())
	io.Println("cache_enabled=" + strconv.FormatBool(!sess.noCache))
	io.Println("candidates_path=" + cfg.CandidatesPathAbs)
	io.Println("candidate_limit=" + strconv.Itoa(cfg.CandidateLimit))
	io.Println("candidate_root=" + cfg.CandidateRootAbs)
	io.Println("max_walk_depth=" + strconv.Itoa(cfg.MaxWalkDepth))
	io.Println("ffprobe=" + cfg.FFprobe)
	io.Println("jobs=" + strconv.Itoa(cfg.Jobs))
	io.Println("log_level=" + cfg.LogLevel)
	io.Println("log_format=" + cfg.LogFormat)

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
