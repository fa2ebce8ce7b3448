package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"docseek/internal/config"
	"docseek/internal/db"
	"docseek/internal/logger"
)

// migrate applies the Postgres schema. Usage: migrate [up|down|status]
func main() {
	flag.Parse()
	_ = gotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	l, err := logger.New(logger.Config{Level: cfg.Logger.Level, Mode: cfg.Logger.Mode, Encoding: cfg.Logger.Encoding})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "pgx" {
		l.Fatal("migrations only apply to postgres; gorm drivers migrate on start",
			zap.String("driver", cfg.Database.Driver))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN, db.Options{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  cfg.Database.PingTimeout,
	})
	if err != nil {
		l.Fatal("failed to connect", zap.Error(err))
	}
	defer conn.Close()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}
	switch command {
	case "up":
		err = db.Migrate(ctx, conn)
	case "down":
		err = db.MigrateDown(ctx, conn)
	case "status":
		err = db.MigrationStatus(ctx, conn)
	default:
		l.Fatal("unknown command", zap.String("command", command))
	}
	if err != nil {
		l.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
	l.Info("migration finished", zap.String("command", command))
}
