package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/models"
	"voucherwheel/internal/pkg"
	"voucherwheel/internal/services"

	"github.com/google/logger"
	"github.com/robfig/cron/v3"
	"github.com/uptrace/bun"
)

// VoucherReportJob logs today's issuance by status and the claimed vouchers
// still waiting for fulfillment.
type VoucherReportJob struct {
	Db  *bun.DB
	Now func() time.Time
}

type VoucherReport struct {
	Counts  []models.VoucherStatusCount
	Backlog *models.VoucherBacklog
}

func NewVoucherReportJob(db *bun.DB) *VoucherReportJob {
	return &VoucherReportJob{
		Db:  db,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (j *VoucherReportJob) Start(cronRunner *cron.Cron) error {
	timeline := services.CRONJOB_TIME_VOUCHER_REPORT
	config, err := datastore.GetConfigByKey(context.Background(), j.Db, services.CONFIG_CRONJOB_TIME_VOUCHER_REPORT)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case config.Value != "":
		timeline = config.Value
	}

	_, err = cronRunner.AddFunc(timeline, j.runScheduledTask)
	if err != nil {
		return err
	}

	logger.Infof("Voucher report cronjob scheduled, cron: %s", timeline)
	return nil
}

func (j *VoucherReportJob) runScheduledTask() {
	report, err := j.Build(context.Background())
	if err != nil {
		logger.Errorf("voucher report: %v", err)
		return
	}

	for _, c := range report.Counts {
		logger.Infof("voucher report: %s total=%d amount=%d", c.Status, c.Total, c.Amount)
	}
	if report.Backlog.Total > 0 && report.Backlog.Oldest != nil {
		logger.Warningf("voucher report: %d claimed vouchers (amount %d) waiting for processing, oldest claimed at %s",
			report.Backlog.Total, report.Backlog.Amount, report.Backlog.Oldest.Format(time.RFC3339))
	}
}

func (j *VoucherReportJob) Build(ctx context.Context) (*VoucherReport, error) {
	from := pkg.GetFirstTimeOfCurrentDay(j.Now())
	counts, err := datastore.CountVouchersByStatus(ctx, j.Db, from, from.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	backlog, err := datastore.ClaimedBacklog(ctx, j.Db)
	if err != nil {
		return nil, err
	}

	return &VoucherReport{Counts: counts, Backlog: backlog}, nil
}
