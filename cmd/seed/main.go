// Command seed fills a wiki database with demo users and articles.
//
//	seed [-config config.yaml] [-users 5] [-articles 4] [-password demo-password]
//
// Running it twice reuses the existing demo accounts and adds another round
// of articles.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/auth"
	"github.com/sakif/wiki/internal/config"
	"github.com/sakif/wiki/internal/model"
	"github.com/sakif/wiki/internal/repository/sqldb"
	"github.com/sakif/wiki/internal/service"
)

var demoNames = []string{
	"Ada Lovelace",
	"Alan Turing",
	"Grace Hopper",
	"Ken Thompson",
	"Barbara Liskov",
	"Rob Pike",
	"Margaret Hamilton",
	"Dennis Ritchie",
}

var topics = []struct {
	title string
	body  string
}{
	{"Getting started with %s", "# Getting started\n\nA short tour of %s for newcomers.\n\n- install it\n- read the docs\n- build something small\n"},
	{"Notes on %s internals", "# Internals\n\nHow %s works under the hood, written down before I forget.\n"},
	{"%s in production", "# Production\n\nLessons from running %s for real: monitoring, backups and the pager.\n"},
	{"Why I still like %s", "# Opinion\n\n%s is not perfect. Here is what keeps me coming back.\n"},
	{"A %s cheat sheet", "# Cheat sheet\n\n```\nthe %s commands I type every day\n```\n"},
}

var subjects = []string{"Go", "SQLite", "PostgreSQL", "Markdown", "HTTP", "OpenTelemetry", "JWT", "chi"}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (or set CONFIG_PATH)")
	users := flag.Int("users", 5, "number of demo users")
	perUser := flag.Int("articles", 4, "articles per user")
	password := flag.String("password", "demo-password", "password for every demo account")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := config.MustLoad(config.Path(*configPath))

	if err := cfg.Database.EnsureDir(); err != nil {
		logger.Error("failed to prepare database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqldb.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	s := &seeder{
		db:        db,
		articles:  service.NewArticleService(db, db, db, logger),
		passwords: auth.NewPasswordServiceWithCost(bcrypt.MinCost),
		logger:    logger,
	}

	if err := s.run(context.Background(), *users, *perUser, *password); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type seeder struct {
	db        *sqldb.DB
	articles  *service.ArticleService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func (s *seeder) run(ctx context.Context, users, perUser int, password string) error {
	if users > len(demoNames) {
		users = len(demoNames)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	created := 0
	for i := 0; i < users; i++ {
		user, err := s.user(ctx, demoNames[i], hash)
		if err != nil {
			return err
		}

		for j := 0; j < perUser; j++ {
			topic := topics[(i+j)%len(topics)]
			subject := subjects[(i*perUser+j)%len(subjects)]

			_, err := s.articles.Create(ctx, user.ID,
				fmt.Sprintf(topic.title, subject),
				fmt.Sprintf(topic.body, subject),
			)
			if err != nil {
				return fmt.Errorf("creating article for %s: %w", user.Email, err)
			}
			created++
		}
	}

	s.logger.Info("seed complete",
		slog.Int("users", users),
		slog.Int("articles", created),
		slog.String("password", password),
	)
	return nil
}

// user creates the demo account, or loads it when a previous run already did.
func (s *seeder) user(ctx context.Context, name, hash string) (*model.User, error) {
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"

	u := &model.User{Name: name, Email: email, PasswordHash: hash}
	err := s.db.CreateUser(ctx, u)
	if errors.Is(err, apperror.ErrConflict) {
		return s.db.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", email, err)
	}
	s.logger.Info("created user", slog.String("id", u.ID), slog.String("email", email))
	return u, nil
}
