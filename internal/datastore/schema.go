package datastore

import (
	"context"

	"github.com/uptrace/bun"
)

// CreateSchema creates every table and index the service needs. It is safe to rerun.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	creators := []func(context.Context, bun.IDB) error{
		CreateTableConfig,
		CreateTableDenomination,
		CreateTableMember,
		CreateTableVoucher,
		CreateTableVoucherEvent,
	}
	for _, create := range creators {
		if err := create(ctx, db); err != nil {
			return err
		}
	}
	return nil
}
