package datastore

import (
	"context"

	"voucherwheel/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableVoucherEvent(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.VoucherEvent)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.VoucherEvent)(nil)).Index("index_voucher_event_voucher_id").IfNotExists().Column("voucher_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertVoucherEvents(ctx context.Context, db bun.IDB, events []*models.VoucherEvent) error {
	if len(events) == 0 {
		return nil
	}

	_, err := db.NewInsert().Model(&events).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetVoucherEvents(ctx context.Context, db bun.IDB, voucherID string) ([]*models.VoucherEvent, error) {
	events := make([]*models.VoucherEvent, 0)
	err := db.NewSelect().Model(&events).
		Where("voucher_id = ?", voucherID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}
