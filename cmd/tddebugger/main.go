package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"tddebugger/internal/cli"
	"tddebugger/internal/config"
)

var commands = []string{"watch", "replay", "targets", "history", "settings", "version", "help"}

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(args []string) int {
	if len(args) < 1 {
		printRootUsage()
		return 1
	}

	var err error
	switch args[0] {
	case "watch":
		err = parseWatch(args[1:])
	case "replay":
		err = parseReplay(args[1:])
	case "targets":
		err = parseTargets(args[1:])
	case "history":
		err = parseHistory(args[1:])
	case "settings":
		err = parseSettings(args[1:])
	case "version", "--version", "-v":
		fmt.Printf("tddebugger version %s\n", config.NewConfig().Version)
		return 0
	case "help", "--help", "-h":
		printRootUsage()
		return 0
	default:
		err = cli.UnknownCommandError(args[0], commands)
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printRootUsage() {
	fmt.Fprint(os.Stderr, `Usage: tddebugger <command> [options]

Capture Treasure Data event requests from a Chrome tab and summarize their payloads.

Commands:
  watch      Attach to a browser tab and stream captured TD requests
  replay     Feed a HAR archive through the capture pipeline
  targets    List debuggable pages of a running browser
  history    Browse and prune saved capture sessions
  settings   Manage hosts, redaction rules, extractors and filter presets

Global Options:
  --config <file>    YAML configuration file
  --verbose          also log to the console

Use "tddebugger <command> --help" for specific command usage.
`)
}
