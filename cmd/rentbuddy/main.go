// Command rentbuddy runs the RentBuddy API server and its maintenance tools.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // booking timezones on hosts without a zoneinfo database

	"github.com/gurman-sys/rentbuddy/internal/version"
)

const usage = `usage: rentbuddy <command> [flags]

commands:
  serve     run the API server (default)
  backup    archive the database and config file
  restore   restore a backup archive
  token     mint a bearer token for a user
  version   print version information
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "backup":
		runBackup(args)
	case "restore":
		runRestore(args)
	case "token":
		runToken(args)
	case "version":
		fmt.Println(version.Current())
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}
