package datastore

import (
	"context"
	"time"

	"voucherwheel/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableDenomination(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.Denomination)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	// one row per cash amount, dummy rows are free to repeat
	_, err = db.NewCreateIndex().Model((*models.Denomination)(nil)).Index("index_denomination_cash_amount").IfNotExists().Unique().Column("amount").Where("is_dummy = false").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Denomination)(nil)).Index("index_denomination_amount").IfNotExists().Column("amount").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func orderWheel(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("is_dummy ASC").
		OrderExpr("priority DESC").
		OrderExpr("amount ASC NULLS LAST").
		OrderExpr("label ASC NULLS LAST")
}

func ListDenominations(ctx context.Context, db bun.IDB) ([]*models.Denomination, error) {
	denominations := make([]*models.Denomination, 0)
	err := orderWheel(db.NewSelect().Model(&denominations)).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return denominations, nil
}

func ListWheelDenominations(ctx context.Context, db bun.IDB) ([]*models.Denomination, error) {
	denominations := make([]*models.Denomination, 0)
	err := orderWheel(db.NewSelect().Model(&denominations).Where("is_enabled_wheel = ?", true)).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return denominations, nil
}

func ListGenerateAmounts(ctx context.Context, db bun.IDB) ([]int64, error) {
	amounts := make([]int64, 0)
	err := db.NewSelect().Model((*models.Denomination)(nil)).
		Column("amount").
		Where("is_dummy = ?", false).
		Where("is_enabled_generate = ?", true).
		OrderExpr("amount DESC").
		Scan(ctx, &amounts)
	if err != nil {
		return nil, err
	}

	return amounts, nil
}

func ExistsDenominationAmount(ctx context.Context, db bun.IDB, amount int64) (bool, error) {
	return db.NewSelect().Model((*models.Denomination)(nil)).Where("amount = ?", amount).Exists(ctx)
}

// ExistsDenominationAmountExcept is ExistsDenominationAmount ignoring the row exceptID.
func ExistsDenominationAmountExcept(ctx context.Context, db bun.IDB, amount int64, exceptID string) (bool, error) {
	q := db.NewSelect().Model((*models.Denomination)(nil)).
		Where("amount = ?", amount)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Exists(ctx)
}

// ExistsDummyDenomination reports whether a dummy row with this label and icon exists.
// A nil label or icon matches a row where the column is NULL.
func ExistsDummyDenomination(ctx context.Context, db bun.IDB, label, iconURL *string) (bool, error) {
	q := db.NewSelect().Model((*models.Denomination)(nil)).Where("is_dummy = ?", true)
	if label == nil {
		q = q.Where("label IS NULL")
	} else {
		q = q.Where("label = ?", *label)
	}
	if iconURL == nil {
		q = q.Where("icon_url IS NULL")
	} else {
		q = q.Where("icon_url = ?", *iconURL)
	}
	return q.Exists(ctx)
}

func GetDenominationByID(ctx context.Context, db bun.IDB, id string) (*models.Denomination, error) {
	var denomination models.Denomination
	err := db.NewSelect().Model(&denomination).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &denomination, nil
}

// MinNegativeAmount returns the smallest amount below zero, or 0 when there is none.
func MinNegativeAmount(ctx context.Context, db bun.IDB) (int64, error) {
	var minneg int64
	err := db.NewSelect().Model((*models.Denomination)(nil)).
		ColumnExpr("COALESCE(MIN(amount), 0)").
		Where("amount < 0").
		Scan(ctx, &minneg)
	if err != nil {
		return 0, err
	}

	return minneg, nil
}

func InsertDenomination(ctx context.Context, db bun.IDB, denomination *models.Denomination) error {
	_, err := db.NewInsert().Model(denomination).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func UpdateDenomination(ctx context.Context, db bun.IDB, denomination *models.Denomination, columns ...string) error {
	denomination.UpdatedAt = time.Now().UTC()
	columns = append(columns, "updated_at")
	_, err := db.NewUpdate().Model(denomination).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}
