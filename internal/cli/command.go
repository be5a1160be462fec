package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// ErrUnknownCommand is returned when no (sub)command matches the first argument.
var ErrUnknownCommand = errors.New("unknown command")

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "buo" in help.
	// Includes the command name and arguments/flags.
	// Examples: "inspect [flags] <path>...", "cache ls [--limit N]"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Commands are subcommands selected by the first positional argument.
	// A command with subcommands has no Exec of its own.
	Commands []*Command

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name: the last word of Usage before any flags
// or arguments.
func (c *Command) Name() string {
	name := ""

	for word := range strings.FieldsSeq(c.Usage) {
		if strings.HasPrefix(word, "[") || strings.HasPrefix(word, "<") || strings.HasPrefix(word, "-") {
			break
		}

		name = word
	}

	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-30s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "buo <cmd> --help" to w.
func (c *Command) PrintHelp(w io.Writer) {
	fprintln(w, "Usage: buo", c.Usage)
	fprintln(w)

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	fprintln(w, desc)

	if len(c.Commands) > 0 {
		fprintln(w)
		fprintln(w, "Commands:")

		for _, sub := range c.Commands {
			fprintln(w, sub.HelpLine())
		}
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		fprintln(w)
		fprintln(w, "Flags:")
		fprintln(w, strings.TrimRight(c.Flags.FlagUsages(), "\n"))
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	if c.Flags == nil {
		c.Flags = flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	}

	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	if len(c.Commands) > 0 {
		c.Flags.SetInterspersed(false)
	}

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o.out)
			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o.errOut)

		return 1
	}

	rest := c.Flags.Args()

	if len(c.Commands) > 0 {
		return c.runSub(ctx, o, rest)
	}

	if err := c.Exec(ctx, o, rest); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	return o.Finish()
}

func (c *Command) runSub(ctx context.Context, o *IO, args []string) int {
	if len(args) == 0 {
		c.PrintHelp(o.out)
		return 0
	}

	for _, sub := range c.Commands {
		if sub.Name() == args[0] {
			return sub.Run(ctx, o, args[1:])
		}
	}

	o.ErrPrintln("error:", fmt.Errorf("%w: %s %s", ErrUnknownCommand, c.Name(), args[0]))
	o.ErrPrintln()
	c.PrintHelp(o.errOut)

	return 1
}
