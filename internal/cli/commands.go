package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"subtrack/internal/core"
	"subtrack/internal/records"
)

// Register adds every subcommand to c.
func Register(c *subcommands.Commander, env *Env) {
	for _, cmd := range Commands(env) {
		c.Register(cmd.Command, cmd.Group)
	}
}

// GroupedCommand pairs a command with its help group.
type GroupedCommand struct {
	subcommands.Command
	Group string
}

// Commands returns fresh instances of every subcommand.
func Commands(env *Env) []GroupedCommand {
	return []GroupedCommand{
		{&addCmd{env: env}, "records"},
		{&rmCmd{env: env}, "records"},
		{&editCmd{env: env}, "records"},
		{&clearCmd{env: env}, "records"},
		{&listCmd{env: env}, "views"},
		{&totalsCmd{env: env}, "views"},
		{&exportCmd{env: env}, "views"},
		{&syncCmd{env: env}, "sync"},
	}
}

// fail prints err and maps it to a failing exit status.
func (e *Env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(e.Err, describe(err))
	return subcommands.ExitFailure
}

func describe(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return "error: name must not be empty"
	case errors.Is(err, core.ErrInvalidAmount):
		return "error: amount must be a non-negative number"
	case errors.Is(err, core.ErrInvalidPeriod):
		return "error: period must be monthly or yearly"
	case errors.Is(err, records.ErrNotFound):
		return "error: no such subscription"
	case errors.Is(err, records.ErrSyncDisabled):
		return "error: sync is disabled, run 'subtrack sync on' first"
	default:
		return "error: " + err.Error()
	}
}

type addCmd struct {
	env    *Env
	period string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a subscription" }
func (*addCmd) Usage() string {
	return `subtrack add [-p monthly|yearly] <name> <amount>

  Records a recurring payment. The name may contain spaces when quoted.
  Amounts accept a dot or a comma as decimal separator.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "monthly", "billing period (monthly, yearly)")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	period, err := core.ParsePeriod(c.period)
	if err != nil {
		return c.env.fail(err)
	}
	amount, err := core.ParseAmount(f.Arg(1))
	if err != nil {
		return c.env.fail(err)
	}

	err = c.env.with(ctx, func(app *App) error {
		rec, err := app.Tracker.Add(ctx, f.Arg(0), amount, period)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "added %s (%s %s)\n", rec.ID, rec.Name, formatAmount(rec.Amount, rec.Period))
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

type rmCmd struct {
	env *Env
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete a subscription" }
func (*rmCmd) Usage() string {
	return `subtrack rm <id>...

  Deletes the subscriptions with the given IDs. Unknown IDs are ignored.
`
}

func (*rmCmd) SetFlags(*flag.FlagSet) {}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	err := c.env.with(ctx, func(app *App) error {
		for _, id := range f.Args() {
			if err := app.Tracker.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

type editCmd struct {
	env    *Env
	name   string
	amount string
	period string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "edit a subscription" }
func (*editCmd) Usage() string {
	return `subtrack edit [-name <name>] [-amount <amount>] [-p monthly|yearly] <id>

  Changes the given fields of a subscription, keeping the others.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "new name")
	f.StringVar(&c.amount, "amount", "", "new amount")
	f.StringVar(&c.period, "p", "", "new billing period (monthly, yearly)")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	err := c.env.with(ctx, func(app *App) error {
		rec, err := app.Tracker.Get(ctx, id)
		if err != nil {
			return err
		}
		if strings.TrimSpace(c.name) != "" {
			rec.Name = c.name
		}
		if c.amount != "" {
			if rec.Amount, err = core.ParseAmount(c.amount); err != nil {
				return err
			}
		}
		if c.period != "" {
			if rec.Period, err = core.ParsePeriod(c.period); err != nil {
				return err
			}
		}
		if err := app.Tracker.Update(ctx, id, rec.Name, rec.Amount, rec.Period); err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "updated %s\n", id)
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

type clearCmd struct {
	env *Env
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every subscription" }
func (*clearCmd) Usage() string {
	return `subtrack clear [-yes]

  Deletes all subscriptions after confirmation.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "skip the confirmation prompt")
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.env.with(ctx, func(app *App) error {
		recs, err := app.Tracker.List(ctx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(c.env.Out, "nothing to clear")
			return nil
		}
		if !c.yes && !c.env.confirm(fmt.Sprintf("Delete all %d subscriptions? [y/N] ", len(recs))) {
			fmt.Fprintln(c.env.Out, "aborted")
			return nil
		}
		if err := app.Tracker.ReplaceAll(ctx, nil); err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "deleted %d subscriptions\n", len(recs))
		return nil
	})
	if err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}
