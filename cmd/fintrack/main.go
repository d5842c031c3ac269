package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/services"
)

const usage = `usage: fintrack [-user ID] <command> <action> [flags]

commands:
  user        add
  account     add | list | edit | deactivate
  card        add | list | edit | invoice
  category    add | list | edit
  tx          add | edit | delete | list
  inst        buy | pay | unpay | list
  transfer    add | delete | list
  dashboard   [-ref DATE]
  report      [-ref DATE]
  commitments [-ref DATE] [-months N]

Run "fintrack <command> <action> -h" for the flags of an action.
`

func main() {
	cli.LoadEnvFile()

	// Logs go to stderr so command output stays clean on stdout.
	cfg, logger := cli.LoadAndValidateConfig(os.Stderr)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var pub events.Publisher
	if client := cli.InitEvents(logger, cfg, false); client != nil {
		defer client.Close()
		pub = client
	}

	a := &app{
		svc: services.New(repo, pub, cli.ServiceOptions(cfg)),
		out: os.Stdout,
	}

	err := a.run(context.Background(), os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if core.IsValidation(err) || core.IsNotFound(err) || core.IsInvalidState(err) {
			os.Exit(1)
		}
		os.Exit(3)
	}
}
