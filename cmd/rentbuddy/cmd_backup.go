package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gurman-sys/rentbuddy/internal/backup"
	"github.com/gurman-sys/rentbuddy/internal/config"
)

func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	output := fs.String("output", "", "output file path (default: rentbuddy-backup-{timestamp}.tar.gz)")
	dbPath := fs.String("db", "", "database file (default: database.path from config)")
	configFile := fs.String("config", "", "config file to read and include in the backup")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *dbPath == "" {
		v, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		*dbPath = v.GetString("database.path")
	}
	if *output == "" {
		*output = fmt.Sprintf("rentbuddy-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
	}

	m, err := backup.Backup(context.Background(), *dbPath, *configFile, *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backup created: %s (%d files)\n", *output, len(m.Files))
}
