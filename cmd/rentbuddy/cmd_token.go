package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/gurman-sys/rentbuddy/internal/auth"
	"github.com/gurman-sys/rentbuddy/internal/config"
)

func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	user := fs.String("user", "", "user id the token is issued to (required)")
	ttl := fs.Duration("ttl", 0, "token lifetime (default: auth.token_ttl)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *user == "" {
		fmt.Fprintln(os.Stderr, "error: --user is required")
		fs.Usage()
		os.Exit(1)
	}

	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(v)

	authn := auth.New(cfg.GetString("auth.secret"), cfg.GetString("auth.default_user"), zap.NewNop())
	if authn.DemoMode() {
		fmt.Fprintln(os.Stderr, "error: auth.secret is not set; the server runs in demo mode and needs no token")
		os.Exit(1)
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.GetDuration("auth.token_ttl")
	}
	if lifetime <= 0 {
		lifetime = 30 * 24 * time.Hour
	}

	token, err := authn.Issue(*user, lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issuing token failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
