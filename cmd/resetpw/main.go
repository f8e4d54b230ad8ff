// Command resetpw sets a staff account's password directly in the
// database, for when the last administrator locks themselves out.
package main

import (
	"context"
	"database/sql"
	"flag"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"sabor_menu/internal/adapters/observability"
	"sabor_menu/internal/app"
	"sabor_menu/internal/shared"
	sqliterepo "sabor_menu/internal/storage/sqlite"
)

func main() {
	username := flag.String("username", "", "account to reset")
	password := flag.String("password", "", "new password")
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if *username == "" || *password == "" {
		log.Fatal().Msg("both -username and -password are required")
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	repo := sqliterepo.New(db, cfg.SQLitePath)

	ctx := context.Background()
	u, err := repo.GetUserByUsername(ctx, *username)
	if err != nil {
		log.Fatal().Err(err).Str("username", *username).Msg("account lookup failed")
	}
	hash, err := app.HashPassword(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("hash failed")
	}
	u.PasswordHash = hash
	if err := repo.UpdateUser(ctx, u); err != nil {
		log.Fatal().Err(err).Msg("update failed")
	}
	log.Info().Str("username", *username).Msg("password reset")
}
