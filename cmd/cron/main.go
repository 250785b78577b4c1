package main

import (
	"io"
	"log"
	"os"

	"voucherwheel/internal/pkg/database"

	"github.com/google/logger"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
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

type CronJob interface {
	Start(cronRunner *cron.Cron) error
}

func main() {
	defer logger.Init("cronjob", true, false, io.Discard).Close()

	app := &cli.App{
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob() *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			cronRunner := cron.New()

			jobs := []CronJob{
				NewVoucherReportJob(db),
			}
			for _, job := range jobs {
				if err := job.Start(cronRunner); err != nil {
					return err
				}
			}

			logger.Infof("Start cronjob")
			cronRunner.Run()
			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	return database.Open(os.Getenv("DB_DSN"), os.Getenv("DB_PASSWORD"))
}
