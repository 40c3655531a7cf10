package main

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"todod/internal/config"
	"todod/internal/identity"
	"todod/internal/server"
	"todod/internal/storage"
	"todod/internal/todo"
)

func main() {
	var (
		configPath string
		addr       string
		dbPath     string
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&addr, "addr", "", "Listen address override")
	flag.StringVar(&dbPath, "db", "", "SQLite database path override")
	flag.Parse()

	// .env 缺席不算错误 / a missing .env file is fine
	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "todod",
	})

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	if strings.TrimSpace(addr) != "" {
		cfg.Server.Addr = strings.TrimSpace(addr)
	}
	if strings.TrimSpace(dbPath) != "" {
		cfg.Storage.DBPath = strings.TrimSpace(dbPath)
	}

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("open storage", "err", err)
	}
	defer func() { _ = store.Close() }()

	ids := identity.New(store, cfg.Server.BcryptCost, time.Duration(cfg.Server.SessionTTLHours)*time.Hour)
	todos := todo.New(store)
	srv := server.New(cfg.Server, logger, ids, todos)

	logger.Info("listening", "addr", cfg.Server.Addr, "db", cfg.Storage.DBPath)
	if err := srv.Run(cfg.Server.Addr); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}
