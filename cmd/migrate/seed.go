package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

type denominationSeed struct {
	Amount   int64  `yaml:"amount"`
	Dummy    bool   `yaml:"dummy"`
	Label    string `yaml:"label"`
	Icon     string `yaml:"icon"`
	Wheel    *bool  `yaml:"wheel"`
	Generate *bool  `yaml:"generate"`
	Weight   int    `yaml:"weight"`
	Priority int    `yaml:"priority"`
}

type seedFile struct {
	Denominations []denominationSeed `yaml:"denominations"`
}

func loadDenominationSeeds(r io.Reader) ([]denominationSeed, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, err
	}

	for i, seed := range file.Denominations {
		if !seed.Dummy && seed.Amount <= 0 {
			return nil, fmt.Errorf("denomination #%d: cash amount must be positive", i+1)
		}
		if seed.Dummy && seed.Amount > 0 {
			return nil, fmt.Errorf("denomination #%d: dummy amount must be negative or omitted", i+1)
		}
	}
	return file.Denominations, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// seedDenominations inserts every seed not registered yet and returns how many
// rows were written. Cash and explicit dummy amounts are matched by amount,
// dummies without an amount by label and icon, so reruns insert nothing.
func seedDenominations(ctx context.Context, db *bun.DB, seeds []denominationSeed) (int, error) {
	inserted := 0
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, seed := range seeds {
			amount := seed.Amount
			label, icon := optionalString(seed.Label), optionalString(seed.Icon)

			var exists bool
			var err error
			if seed.Dummy && amount == 0 {
				exists, err = datastore.ExistsDummyDenomination(ctx, tx, label, icon)
			} else {
				exists, err = datastore.ExistsDenominationAmount(ctx, tx, amount)
			}
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			if seed.Dummy && amount == 0 {
				minneg, err := datastore.MinNegativeAmount(ctx, tx)
				if err != nil {
					return err
				}
				amount = minneg - 1
			}

			now := time.Now().UTC()
			denomination := &models.Denomination{
				ID:                uuid.NewString(),
				Amount:            amount,
				IsDummy:           seed.Dummy,
				Label:             label,
				IconURL:           icon,
				IsEnabledWheel:    seed.Wheel == nil || *seed.Wheel,
				IsEnabledGenerate: !seed.Dummy && (seed.Generate == nil || *seed.Generate),
				Weight:            max(seed.Weight, 1),
				Priority:          seed.Priority,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := datastore.InsertDenomination(ctx, tx, denomination); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}
