// Package main is the entry point for the wiki server.
//
// The main package stays small: it loads configuration, builds the logger,
// prepares the data directory and hands everything to internal/server.
//
// Usage:
//
//	server [-config config.yaml] [-routes markdown|json]
//
// With -routes the server prints its route table and exits without
// listening.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/docgen"

	"github.com/sakif/wiki/internal/config"
	"github.com/sakif/wiki/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (or set CONFIG_PATH)")
	routes := flag.String("routes", "", "print the route table as markdown or json and exit")
	flag.Parse()

	cfg := config.MustLoad(config.Path(*configPath))
	logger := newLogger(cfg.Env)

	// A dev server without a configured secret gets a throwaway one. Sessions
	// do not survive a restart, which is fine locally.
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			logger.Error("failed to generate JWT secret", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg.Auth.JWTSecret = secret
		logger.Warn("JWT_SECRET not set, using an ephemeral secret")
	}

	if err := cfg.Database.EnsureDir(); err != nil {
		logger.Error("failed to prepare database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *routes != "" {
		defer srv.Close()
		if err := printRoutes(srv, *routes); err != nil {
			logger.Error("failed to print routes", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger returns human-readable debug logs in dev and JSON in prod.
func newLogger(env string) *slog.Logger {
	var h slog.Handler
	if env == config.EnvProd {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func printRoutes(srv *server.Server, format string) error {
	switch format {
	case "markdown", "md":
		fmt.Println(docgen.MarkdownRoutesDoc(srv.Router(), docgen.MarkdownOpts{
			ProjectPath: "github.com/sakif/wiki",
			Intro:       "Routes served by the wiki API.",
		}))
	case "json":
		fmt.Println(docgen.JSONRoutesDoc(srv.Router()))
	default:
		return fmt.Errorf("unknown route format %q (want markdown or json)", format)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
