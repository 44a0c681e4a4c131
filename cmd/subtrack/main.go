package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"subtrack/internal/cli"
	"subtrack/internal/log"
)

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander, cli.NewEnv(cfg, logger))

	flag.Parse()
	ctx := log.NewContext(context.Background(), logger)
	os.Exit(int(commander.Execute(ctx)))
}
