package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	server "sabor_menu/internal/adapters/http_server"
	"sabor_menu/internal/adapters/observability"
	redisad "sabor_menu/internal/adapters/redis"
	"sabor_menu/internal/adapters/telegram"
	"sabor_menu/internal/app"
	"sabor_menu/internal/domain"
	"sabor_menu/internal/shared"
	"sabor_menu/internal/storage/jsonfile"
	sqliterepo "sabor_menu/internal/storage/sqlite"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// stores
	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("db.Ping failed")
	}
	repo := sqliterepo.New(db, cfg.SQLitePath)
	if err := repo.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema init failed")
	}
	log.Info().Str("path", cfg.SQLitePath).Msg("database ok")

	docs := jsonfile.New(cfg.MenuJSONPath, cfg.MenuJSONBackup)

	var cache domain.Cache = redisad.Nop{}
	if cfg.RedisAddr != "" {
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	}

	// services
	catalog := app.NewCatalog(repo, docs, cache, cfg.CacheTTL)
	if err := catalog.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("catalog bootstrap failed")
	}

	accounts := app.NewAccounts(repo)
	if err := accounts.BootstrapAdmin(ctx, cfg.BootstrapName, cfg.BootstrapUser, cfg.BootstrapPass); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	var notifier domain.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		n, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notifier disabled")
		} else {
			notifier = n
		}
	}
	feedback := app.NewFeedback(repo, notifier, cfg.FeedbackPerMin)
	deployer := app.NewDeployer(cfg.DeployCommands)

	// http
	sess := server.NewSessions(cfg.SessionSecret, cfg.RememberDays, repo)
	srv := server.New(sess)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Catalog:       catalog,
		Accounts:      accounts,
		Feedback:      feedback,
		Deployer:      deployer,
		Sessions:      sess,
		DeployEnabled: cfg.DeployEnabled,
		DeployToken:   cfg.DeployToken,
		Static: server.StaticDirs{
			Images:   cfg.ImagesDir,
			Audio:    cfg.AudioDir,
			Menus:    cfg.MenusDir,
			Frontend: cfg.StaticDir,
		},
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
