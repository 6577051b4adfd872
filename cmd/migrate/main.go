// Command migrate applies the embedded SQL migrations.
//
//	migrate up
//	migrate down
//	migrate status
//	migrate up-to 3
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sangkips/khata-api/internal/config"
	"github.com/sangkips/khata-api/internal/infrastructure/database"
	"github.com/sangkips/khata-api/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down|status|version|redo|reset|up-to N|down-to N>")
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := logger.Init(os.Getenv("APP_ENV")); err != nil {
		logger.Fatal(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database, false)
	if err != nil {
		logger.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal(err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(context.Background(), db, flag.Arg(0), flag.Args()[1:]...); err != nil {
		logger.Fatal(err)
	}
}
