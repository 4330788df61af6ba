// Утилита первоначальной настройки: создаёт или обновляет учётную запись
// суперпользователя. Вход суперпользователя всё равно подтверждается
// оператором при каждой попытке, поэтому утилита запускается только
// администратором на хосте сервиса.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/basimtrading/auth-gate/internal/config"
	"github.com/basimtrading/auth-gate/internal/lib/password"
	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/migrations"
	"github.com/basimtrading/auth-gate/internal/storage/repository"
)

func main() {
	var username, rawPassword string
	flag.StringVar(&username, "username", "", "имя суперпользователя")
	flag.StringVar(&rawPassword, "password", "", "пароль суперпользователя")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if username == "" || rawPassword == "" {
		logger.Error("both -username and -password are required")
		os.Exit(2)
	}
	if len(rawPassword) < 6 {
		logger.Error("password must be at least 6 characters")
		os.Exit(2)
	}

	cfg := config.MustLoad()

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect storage", sl.Err(err))
		os.Exit(1)
	}
	defer db.DB.Close()

	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", sl.Err(err))
		os.Exit(1)
	}

	hash, err := password.Hash(rawPassword)
	if err != nil {
		logger.Error("failed to hash password", sl.Err(err))
		os.Exit(1)
	}

	uid, err := db.UpsertSuperuser(context.Background(), username, hash)
	if err != nil {
		logger.Error("failed to upsert superuser", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("superuser is set up",
		slog.String("username", username), slog.String("uid", uid))
}
