package cli

import (
	"context"
	"errors"

	"github.com/calvinalkan/buo/internal/candidates"

	flag "github.com/spf13/pflag"
)

// CandidatesCmd returns the candidates command.
func CandidatesCmd(sess *session) *Command {
	fs := flag.NewFlagSet("candidates", flag.ContinueOnError)
	fs.String("root", "", "Directory to search for replacements (default: candidate_root)")
	fs.Int("limit", 0, "Maximum number of candidates (default: candidate_limit)")
	fs.Bool("reset", false, "Discard the stored set and search from scratch")

	return &Command{
		Flags: fs,
		Usage: "candidates [flags]",
		Short: "Repair and print the candidate file set",
		Long: `Load the stored candidate set, keep the paths that are still
supported files, refill the rest by walking the root directory in name
order, save the result and print it.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execCandidates(o, sess, fs)
		},
	}
}

func execCandidates(o *IO, sess *session, fs *flag.FlagSet) error {
	limit, _ := fs.GetInt("limit")
	if !fs.Changed("limit") {
		limit = sess.cfg.CandidateLimit
	}

	if limit < 1 {
		return errors.New("--limit must be positive")
	}

	root := sess.cfg.CandidateRootAbs
	if r, _ := fs.GetString("root"); r != "" {
		root = sess.resolve(r)
	}

	path := sess.cfg.CandidatesPathAbs

	var (
		set *candidates.Set
		err error
	)

	if reset, _ := fs.GetBool("reset"); reset {
		set = candidates.NewSet(limit)
	} else {
		set, err = candidates.LoadSet(sess.fsys, path, limit)
		if err != nil {
			return err
		}
	}

	valid := candidates.All(
		candidates.HasExtension(sess.registry().Extensions()...),
		candidates.IsRegularFile(sess.fsys),
	)

	before := set.Len()

	err = candidates.Repair(sess.fsys, root, set, valid, candidates.WalkOptions{MaxDepth: sess.cfg.MaxWalkDepth})
	if err != nil {
		return err
	}

	sess.log.Debug("candidates repaired", "root", root, "before", before, "after", set.Len())

	if err := candidates.SaveSet(path, set); err != nil {
		return err
	}

	for _, p := range set.Paths() {
		o.Println(p)
	}

	return nil
}
