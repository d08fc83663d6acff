package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sifan077/QRHub/config"
	appmodel "github.com/sifan077/QRHub/internal/app/model"
	apprepository "github.com/sifan077/QRHub/internal/app/repository"
	"github.com/sifan077/QRHub/internal/infra/logger"
	infraPostgres "github.com/sifan077/QRHub/internal/infra/postgres"
	infraSQLite "github.com/sifan077/QRHub/internal/infra/sqlite"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	flags := pflag.NewFlagSet("import", pflag.ExitOnError)
	flags.String("file", "", "path to a JSON array of legacy mapping rows")
	flags.String("database.driver", "postgres", "database driver: postgres or sqlite")
	flags.String("database.sqlite_path", "./data/qrhub.db", "sqlite database file")
	flags.Bool("dry-run", false, "parse and report without writing")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := v.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "bind flags: %v\n", err)
		os.Exit(1)
	}

	log := logger.MustInit(logger.ForEnv(v.GetString("app.env"), "", "qrhub-import"))
	defer func() { _ = logger.Sync() }()

	cfg, err := config.FromViper(v)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	path := v.GetString("file")
	if path == "" {
		log.Fatal("--file is required")
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatal("Failed to open import file", zap.String("file", path), zap.Error(err))
	}
	defer f.Close()

	rows, err := decodeLegacyRows(f)
	if err != nil {
		log.Fatal("Failed to parse import file", zap.String("file", path), zap.Error(err))
	}

	if v.GetBool("dry-run") {
		log.Info("Dry run", zap.Int("rows", len(rows)))
		return
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}

	ctx := context.Background()
	if err := infraPostgres.AutoMigrate(ctx, db, &appmodel.Mapping{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	stats, err := importRows(ctx, apprepository.NewMappingRepository(db), rows, log)
	if err != nil {
		log.Fatal("Import aborted", zap.Error(err), zap.Int("imported", stats.Imported))
	}
	log.Info("Import finished",
		zap.Int("imported", stats.Imported),
		zap.Int("skipped", stats.Skipped),
	)
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "sqlite" {
		return infraSQLite.NewGorm(cfg.Database.SQLitePath)
	}
	return infraPostgres.NewGorm(cfg.Postgres)
}
