package main

import (
	"flag"
	"fmt"
	"os"

	"stock-pos/internal/config"
	"stock-pos/internal/database"
	"stock-pos/internal/logger"

	"go.uber.org/zap"
)

func main() {
	command := flag.String("command", "up", "migration command: up, down or status")
	dir := flag.String("dir", "migrations", "directory holding the SQL migrations")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewWithDefaults()
	defer log.Sync()

	if cfg.Store.Driver != config.StoreDriverPostgres {
		log.Info("Store driver has no SQL schema, nothing to migrate", zap.String("store", cfg.Store.Driver))
		return
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch *command {
	case "up":
		err = database.RunMigrations(db.DB(), *dir, log)
	case "down":
		err = database.RollbackMigration(db.DB(), *dir)
	case "status":
		err = database.GetMigrationStatus(db.DB(), *dir)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *command)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", *command), zap.Error(err))
	}

	log.Info("Migration command finished", zap.String("command", *command))
}
