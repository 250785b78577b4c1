package datastore

import (
	"context"

	"github.com/uptrace/bun"
)

// Now asks the database for its clock, which doubles as a connectivity check.
func Now(ctx context.Context, db bun.IDB) (string, error) {
	var now string
	err := db.NewSelect().ColumnExpr("CAST(CURRENT_TIMESTAMP AS TEXT)").Scan(ctx, &now)
	if err != nil {
		return "", err
	}
	return now, nil
}
