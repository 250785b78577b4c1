package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/models"
	"voucherwheel/internal/pkg/caching"
	"voucherwheel/internal/pkg/database"
	"voucherwheel/internal/services"

	"github.com/google/logger"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	defer logger.Init("migrate", true, false, io.Discard).Close()

	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
			commandSeedDenominations(),
			commandClearCache(),
			commandListConfigs(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Description: "Create tables and indexes",
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			err = datastore.CreateSchema(c.Context, db)
			if err != nil {
				return err
			}

			logger.Infof("schema ready")
			return nil
		},
	}
}

func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			configs := []*models.Config{
				{Key: services.CONFIG_CLAIM_RATE_LIMIT_PER_MINUTE, Value: "30"},
				{Key: services.CONFIG_CRONJOB_TIME_VOUCHER_REPORT, Value: services.CRONJOB_TIME_VOUCHER_REPORT},
			}
			for _, config := range configs {
				err = datastore.UpsertConfig(c.Context, db, config)
				if err != nil {
					return err
				}
			}

			logger.Infof("%d configs written", len(configs))
			return nil
		},
	}
}

func commandSeedDenominations() *cli.Command {
	return &cli.Command{
		Name:        "seed-denominations",
		Description: "Insert denominations listed in a yaml file, skipping rows that already exist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Value: "denominations.yaml",
				Usage: "seed file",
			},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			defer f.Close()

			seeds, err := loadDenominationSeeds(f)
			if err != nil {
				return err
			}

			db, err := getDb()
			if err != nil {
				return err
			}

			inserted, err := seedDenominations(c.Context, db, seeds)
			if err != nil {
				return err
			}

			logger.Infof("%d of %d denominations inserted", inserted, len(seeds))
			return nil
		},
	}
}

func commandClearCache() *cli.Command {
	return &cli.Command{
		Name:        "clear-cache",
		Description: "Drop cached denominations and configs",
		Action: func(c *cli.Context) error {
			client, err := getRedis()
			if err != nil {
				return err
			}

			ctx := context.Background()
			for _, pattern := range []string{services.DBKeyWheelDenominations(), services.DBKeyConfig("*")} {
				if err := caching.DeleteKeys(ctx, client, pattern); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func commandListConfigs() *cli.Command {
	return &cli.Command{
		Name:        "configs",
		Description: "Print stored configs",
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			configs, err := datastore.ListConfigs(c.Context, db)
			if err != nil {
				return err
			}
			for _, config := range configs {
				fmt.Printf("%s=%s\t(updated %s)\n", config.Key, config.Value, config.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	return database.Open(os.Getenv("DB_DSN"), os.Getenv("DB_PASSWORD"))
}

func getRedis() (redis.UniversalClient, error) {
	clusterURL := os.Getenv("CLUSTER_REDIS_CACHE")
	if clusterURL != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterURL)
		if err != nil {
			return nil, err
		}
		return redis.NewClusterClient(clusterOpts), nil
	}
	return db.InitRedis(&db.RedisConfig{
		URL: os.Getenv("REDIS_CACHE"),
	})
}
