package datastore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"voucherwheel/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableVoucher(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.Voucher)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Voucher)(nil)).Index("index_voucher_member_id").IfNotExists().Column("member_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Voucher)(nil)).Index("index_voucher_status").IfNotExists().Column("status").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Voucher)(nil)).Index("index_voucher_issued_at").IfNotExists().Column("issued_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertVoucherIfCodeFree inserts the voucher unless its code is taken.
// It reports false on a code collision and leaves the surrounding transaction usable.
func InsertVoucherIfCodeFree(ctx context.Context, db bun.IDB, voucher *models.Voucher) (bool, error) {
	res, err := db.NewInsert().Model(voucher).On("CONFLICT (code) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func GetVoucherByCode(ctx context.Context, db bun.IDB, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := db.NewSelect().Model(&voucher).Where("code = ?", code).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func GetVoucherByID(ctx context.Context, db bun.IDB, id string) (*models.VoucherWithMember, error) {
	var voucher models.VoucherWithMember
	err := db.NewSelect().Model(&voucher).
		ColumnExpr("v.*").
		ColumnExpr("m.full_name").
		Join("LEFT JOIN members AS m ON m.id = v.member_id").
		Where("v.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func ListVouchers(ctx context.Context, db bun.IDB, filter models.VoucherFilter) ([]*models.VoucherWithMember, error) {
	vouchers := make([]*models.VoucherWithMember, 0)
	q := db.NewSelect().Model(&vouchers).
		ColumnExpr("v.*").
		ColumnExpr("m.full_name").
		Join("LEFT JOIN members AS m ON m.id = v.member_id")

	if filter.Member != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("v.member_id = ?", filter.Member).
				WhereOr("LOWER(m.full_name) LIKE ?", "%"+strings.ToLower(filter.Member)+"%")
		})
	}
	if filter.Code != "" {
		q = q.Where("v.code LIKE ?", "%"+strings.ToUpper(strings.TrimSpace(filter.Code))+"%")
	}
	if filter.Status != "" {
		q = q.Where("v.status = ?", filter.Status)
	}
	if filter.Unprocessed {
		q = q.Where("v.status = ?", models.VoucherStatusClaimed)
	}
	if filter.From != nil {
		q = q.Where("v.issued_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("v.issued_at < ?", *filter.To)
	}

	err := q.OrderExpr("v.issued_at DESC").OrderExpr("v.id DESC").Limit(filter.Limit).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return vouchers, nil
}

// ClaimVoucher moves a claimable voucher from ISSUED to CLAIMED in one statement.
// It returns nil without error when no row matched.
func ClaimVoucher(ctx context.Context, db bun.IDB, code string, now time.Time, ip, userAgent *string) (*models.Voucher, error) {
	voucher := new(models.Voucher)
	res, err := db.NewUpdate().Model(voucher).
		Set("status = ?", models.VoucherStatusClaimed).
		Set("claimed_at = ?", now).
		Set("claim_ip = ?", ip).
		Set("claim_user_agent = ?", userAgent).
		Where("code = ?", code).
		Where("status = ?", models.VoucherStatusIssued).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Returning("*").
		Exec(ctx)
	return voucherFromUpdate(voucher, res, err)
}

// ProcessVoucher moves a CLAIMED voucher to PROCESSED. It returns nil without
// error when the voucher is missing or not in CLAIMED.
func ProcessVoucher(ctx context.Context, db bun.IDB, id string, now time.Time, processedBy string, note *string) (*models.Voucher, error) {
	voucher := new(models.Voucher)
	res, err := db.NewUpdate().Model(voucher).
		Set("status = ?", models.VoucherStatusProcessed).
		Set("processed_at = ?", now).
		Set("processed_by = ?", processedBy).
		Set("process_note = ?", note).
		Where("id = ?", id).
		Where("status = ?", models.VoucherStatusClaimed).
		Returning("*").
		Exec(ctx)
	return voucherFromUpdate(voucher, res, err)
}

func voucherFromUpdate(voucher *models.Voucher, res sql.Result, err error) (*models.Voucher, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	return voucher, nil
}

func CountVouchersByStatus(ctx context.Context, db bun.IDB, from, to time.Time) ([]models.VoucherStatusCount, error) {
	counts := make([]models.VoucherStatusCount, 0)
	err := db.NewSelect().Model((*models.Voucher)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("COALESCE(SUM(amount), 0) AS amount").
		Where("issued_at >= ?", from).
		Where("issued_at < ?", to).
		Group("status").
		OrderExpr("status ASC").
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// ClaimedBacklog aggregates every CLAIMED voucher regardless of issue date.
func ClaimedBacklog(ctx context.Context, db bun.IDB) (*models.VoucherBacklog, error) {
	var backlog models.VoucherBacklog
	err := db.NewSelect().Model((*models.Voucher)(nil)).
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("COALESCE(SUM(amount), 0) AS amount").
		ColumnExpr("MIN(claimed_at) AS oldest").
		Where("status = ?", models.VoucherStatusClaimed).
		Scan(ctx, &backlog)
	if err != nil {
		return nil, err
	}

	return &backlog, nil
}
