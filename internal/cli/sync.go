package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"subtrack/internal/records"
)

type syncCmd struct {
	env *Env
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "control synchronization across devices" }
func (*syncCmd) Usage() string {
	return `subtrack sync on|off|now|status

  on      copy local subscriptions to the synchronized store and use it
  off     copy synchronized subscriptions back and use the local store
  now     push the current collection through the synchronized store
  status  print whether sync is enabled and which backend is used
`
}

func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	err := c.env.with(ctx, func(app *App) error {
		switch f.Arg(0) {
		case "on", "off":
			enabled := f.Arg(0) == "on"
			if err := app.Tracker.SetSync(ctx, enabled); err != nil {
				return err
			}
			c.printStatus(app)
		case "now":
			err := app.Tracker.SyncNow(ctx)
			if errors.Is(err, records.ErrSyncDegraded) {
				fmt.Fprintln(c.env.Out, "sync error: synchronized store unreachable, changes kept locally")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(c.env.Out, "sync complete")
		case "status":
			c.printStatus(app)
		default:
			return fmt.Errorf("unknown sync action %q", f.Arg(0))
		}
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *syncCmd) printStatus(app *App) {
	if app.Tracker.SyncEnabled() {
		fmt.Fprintf(c.env.Out, "sync enabled (backend: %s)\n", app.Backend)
		return
	}
	fmt.Fprintln(c.env.Out, "sync disabled")
}

// confirm asks a yes/no question on the env streams.
func (e *Env) confirm(prompt string) bool {
	fmt.Fprint(e.Out, prompt)
	answer, _ := bufio.NewReader(e.In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
