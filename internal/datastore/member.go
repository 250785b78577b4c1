package datastore

import (
	"context"
	"strings"

	"voucherwheel/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableMember(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.Member)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Member)(nil)).Index("index_member_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertMember(ctx context.Context, db bun.IDB, member *models.Member) error {
	_, err := db.NewInsert().Model(member).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func ExistsMember(ctx context.Context, db bun.IDB, id string) (bool, error) {
	return db.NewSelect().Model((*models.Member)(nil)).Where("id = ?", id).Exists(ctx)
}

func SearchMembers(ctx context.Context, db bun.IDB, q string, limit int) ([]*models.Member, error) {
	members := make([]*models.Member, 0)
	query := db.NewSelect().Model(&members).
		ExcludeColumn("notes").
		OrderExpr("created_at DESC").
		Limit(limit)
	if q != "" {
		query = query.Where("LOWER(full_name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	err := query.Scan(ctx)
	if err != nil {
		return nil, err
	}

	return members, nil
}
