package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// seedCmd inserts the demo data into an empty store
type seedCmd struct {
	app *App
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "insert demo data when the store has no account" }
func (*seedCmd) Usage() string {
	return `jellysave seed

  Inserts one demo account with six monthly snapshots, three saving goals and
  enabled reminders. Does nothing when the store already holds an account.
`
}

func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	seeded, err := c.app.Seeder.SeedIfNeeded(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	if seeded {
		fmt.Fprintln(c.app.Out, "Demo data inserted.")
	} else {
		fmt.Fprintln(c.app.Out, "Store already has data, nothing to seed.")
	}
	return subcommands.ExitSuccess
}

// exportCmd writes a backup file
type exportCmd struct {
	app *App
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write every record to a backup file" }
func (*exportCmd) Usage() string {
	return `jellysave export

  Writes accounts, snapshots, goals and settings to a new
  JellySaveBackup-YYYYMMDD-HHMMSS.json file in the export directory and prints
  its path.
`
}

func (*exportCmd) SetFlags(*flag.FlagSet) {}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	b, err := c.app.Backup.Export(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintln(c.app.Out, b.Path)
	return subcommands.ExitSuccess
}

// importCmd replaces the store content with a backup file
type importCmd struct {
	app *App
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace every record with the content of a backup file" }
func (*importCmd) Usage() string {
	return `jellysave import <file>

  Decodes the backup file, then deletes every record and restores the file
  content in one commit. A malformed file leaves the store untouched.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(c.app.Err, "import expects exactly one backup file")
		return subcommands.ExitUsageError
	}
	if err := c.app.Backup.Import(ctx, f.Arg(0)); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintln(c.app.Out, "Backup restored.")
	return subcommands.ExitSuccess
}

// clearCmd deletes every record
type clearCmd struct {
	app *App
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every record" }
func (*clearCmd) Usage() string {
	return `jellysave clear -y

  Deletes every account, snapshot, goal and the settings in one commit.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "Confirm the deletion.")
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(c.app.Err, "clear deletes every record; pass -y to confirm")
		return subcommands.ExitUsageError
	}
	if err := c.app.Backup.Clear(ctx); err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintln(c.app.Out, "All data cleared.")
	return subcommands.ExitSuccess
}
