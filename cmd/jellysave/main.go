package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/simaogato/jellysave-store/internal/cli"
	"github.com/simaogato/jellysave-store/internal/config"
	"github.com/simaogato/jellysave-store/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return int(subcommands.ExitFailure)
	}

	log, err := logger.New(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return int(subcommands.ExitFailure)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	app, err := cli.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store at %s: %v\n", cfg.Store.Path, err)
		return int(subcommands.ExitFailure)
	}
	defer app.Close()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander, app)

	flag.Parse()
	return int(commander.Execute(ctx))
}
