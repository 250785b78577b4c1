package datastore

import (
	"context"
	"time"

	"voucherwheel/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableConfig(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*models.Config)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// UpsertConfig writes the value for key, replacing any previous one.
func UpsertConfig(ctx context.Context, db bun.IDB, config *models.Config) error {
	config.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().Model(config).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetConfigByKey(ctx context.Context, db bun.IDB, key string) (*models.Config, error) {
	var config models.Config
	err := db.NewSelect().Model(&config).Where("key = ?", key).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func ListConfigs(ctx context.Context, db bun.IDB) ([]*models.Config, error) {
	configs := make([]*models.Config, 0)
	err := db.NewSelect().Model(&configs).OrderExpr("key ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return configs, nil
}
