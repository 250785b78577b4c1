package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/models"
	"voucherwheel/internal/pkg/caching"

	"github.com/go-redsync/redsync/v4"
	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type DenominationInput struct {
	Type              string  `json:"type"`
	Amount            *int64  `json:"amount"`
	IsDummy           bool    `json:"is_dummy"`
	Label             *string `json:"label"`
	IconURL           *string `json:"icon_url"`
	IsEnabledWheel    *bool   `json:"is_enabled_wheel"`
	IsEnabledGenerate *bool   `json:"is_enabled_generate"`
	Weight            *int    `json:"weight"`
	Priority          *int    `json:"priority"`
}

type DenominationPatch struct {
	Amount            *int64  `json:"amount"`
	Label             *string `json:"label"`
	IconURL           *string `json:"icon_url"`
	IsEnabledWheel    *bool   `json:"is_enabled_wheel"`
	IsEnabledGenerate *bool   `json:"is_enabled_generate"`
	Weight            *int    `json:"weight"`
	Priority          *int    `json:"priority"`
}

// dummy resolves the row kind. An explicit type wins over is_dummy, but the two may not disagree.
func (input *DenominationInput) dummy() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(input.Type)) {
	case "":
		return input.IsDummy, nil
	case models.DENOMINATION_TYPE_CASH:
		if input.IsDummy {
			return false, ErrDenominationType
		}
		return false, nil
	case models.DENOMINATION_TYPE_DUMMY:
		return true, nil
	}
	return false, ErrDenominationType
}

func (p *DenominationPatch) Empty() bool {
	return p.Amount == nil && p.Label == nil && p.IconURL == nil &&
		p.IsEnabledWheel == nil && p.IsEnabledGenerate == nil &&
		p.Weight == nil && p.Priority == nil
}

type ServiceDenomination struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	rs                 *redsync.Redsync
}

func NewServiceDenomination(container *do.Injector) (*ServiceDenomination, error) {
	db, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	return &ServiceDenomination{container, db, readonlyPostgresDB, cache, readonlyCache, rs}, nil
}

// ValidateAmount reports whether any denomination, cash or dummy, has exactly this amount.
func (service *ServiceDenomination) ValidateAmount(ctx context.Context, amount int64) (bool, error) {
	return datastore.ExistsDenominationAmount(ctx, service.postgresDB, amount)
}

func (service *ServiceDenomination) ListWheelEligible(ctx context.Context) ([]*models.Denomination, error) {
	callback := func() ([]*models.Denomination, error) {
		return datastore.ListWheelDenominations(ctx, service.readonlyPostgresDB)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyWheelDenominations(), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceDenomination) ListGenerateEligible(ctx context.Context) ([]int64, error) {
	return datastore.ListGenerateAmounts(ctx, service.readonlyPostgresDB)
}

func (service *ServiceDenomination) List(ctx context.Context) ([]*models.Denomination, error) {
	return datastore.ListDenominations(ctx, service.readonlyPostgresDB)
}

func (service *ServiceDenomination) Preview(ctx context.Context) ([]models.Segment, error) {
	denominations, err := service.ListWheelEligible(ctx)
	if err != nil {
		return nil, err
	}
	return PreviewSegments(denominations), nil
}

func (service *ServiceDenomination) Create(ctx context.Context, input DenominationInput) (*models.Denomination, error) {
	isDummy, err := input.dummy()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	denomination := &models.Denomination{
		ID:                uuid.NewString(),
		IsDummy:           isDummy,
		Label:             trimmed(input.Label),
		IconURL:           trimmed(input.IconURL),
		IsEnabledWheel:    true,
		IsEnabledGenerate: !isDummy,
		Weight:            DEFAULT_DENOMINATION_WEIGHT,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if input.IsEnabledWheel != nil {
		denomination.IsEnabledWheel = *input.IsEnabledWheel
	}
	if input.IsEnabledGenerate != nil && !isDummy {
		denomination.IsEnabledGenerate = *input.IsEnabledGenerate
	}
	if input.Weight != nil {
		if *input.Weight < 1 {
			return nil, ErrValidation
		}
		denomination.Weight = *input.Weight
	}
	if input.Priority != nil {
		denomination.Priority = *input.Priority
	}

	if isDummy {
		err = service.createDummy(ctx, denomination, input.Amount)
	} else {
		err = service.createCash(ctx, denomination, input.Amount)
	}
	if err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return denomination, nil
}

func (service *ServiceDenomination) createCash(ctx context.Context, denomination *models.Denomination, amount *int64) error {
	if amount == nil || *amount <= 0 {
		return ErrValidation
	}
	denomination.Amount = *amount

	exists, err := datastore.ExistsDenominationAmountExcept(ctx, service.postgresDB, denomination.Amount, "")
	if err != nil {
		return err
	}
	if exists {
		return ErrDenominationExists
	}

	err = datastore.InsertDenomination(ctx, service.postgresDB, denomination)
	if datastore.IsUniqueViolation(err) {
		return ErrDenominationExists
	}
	return err
}

// lockDummies serializes every write that picks or changes a dummy amount.
func (service *ServiceDenomination) lockDummies(ctx context.Context) (*redsync.Mutex, error) {
	mutex := service.rs.NewMutex(LockKeyDummyDenomination())
	if err := mutex.LockContext(ctx); err != nil {
		return nil, ErrDummyDenominationLock
	}
	return mutex, nil
}

// createDummy assigns the next free negative amount unless one is given.
func (service *ServiceDenomination) createDummy(ctx context.Context, denomination *models.Denomination, amount *int64) error {
	if amount != nil && *amount >= 0 {
		return ErrValidation
	}

	mutex, err := service.lockDummies(ctx)
	if err != nil {
		return err
	}
	// nolint:errcheck
	defer mutex.UnlockContext(ctx)

	if amount != nil {
		exists, err := datastore.ExistsDenominationAmount(ctx, service.postgresDB, *amount)
		if err != nil {
			return err
		}
		if exists {
			return ErrDenominationExists
		}
		denomination.Amount = *amount
		return datastore.InsertDenomination(ctx, service.postgresDB, denomination)
	}

	minneg, err := datastore.MinNegativeAmount(ctx, service.postgresDB)
	if err != nil {
		return err
	}
	denomination.Amount = DEFAULT_DUMMY_AMOUNT
	if minneg < 0 {
		denomination.Amount = minneg - 1
	}

	return datastore.InsertDenomination(ctx, service.postgresDB, denomination)
}

func (service *ServiceDenomination) Update(ctx context.Context, id string, patch DenominationPatch) (*models.Denomination, error) {
	if patch.Empty() {
		return nil, ErrNoFields
	}

	denomination, err := datastore.GetDenominationByID(ctx, service.postgresDB, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDenominationNotFound
	}
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, 7)
	if patch.Amount != nil {
		if denomination.IsDummy && *patch.Amount >= 0 || !denomination.IsDummy && *patch.Amount <= 0 {
			return nil, ErrValidation
		}
		if denomination.IsDummy {
			mutex, err := service.lockDummies(ctx)
			if err != nil {
				return nil, err
			}
			// nolint:errcheck
			defer mutex.UnlockContext(ctx)
		}
		exists, err := datastore.ExistsDenominationAmountExcept(ctx, service.postgresDB, *patch.Amount, denomination.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDenominationExists
		}
		denomination.Amount = *patch.Amount
		columns = append(columns, "amount")
	}
	if patch.Label != nil {
		denomination.Label = trimmed(patch.Label)
		columns = append(columns, "label")
	}
	if patch.IconURL != nil {
		denomination.IconURL = trimmed(patch.IconURL)
		columns = append(columns, "icon_url")
	}
	if patch.IsEnabledWheel != nil {
		denomination.IsEnabledWheel = *patch.IsEnabledWheel
		columns = append(columns, "is_enabled_wheel")
	}
	if patch.IsEnabledGenerate != nil {
		if denomination.IsDummy && *patch.IsEnabledGenerate {
			return nil, ErrValidation
		}
		denomination.IsEnabledGenerate = *patch.IsEnabledGenerate
		columns = append(columns, "is_enabled_generate")
	}
	if patch.Weight != nil {
		if *patch.Weight < 1 {
			return nil, ErrValidation
		}
		denomination.Weight = *patch.Weight
		columns = append(columns, "weight")
	}
	if patch.Priority != nil {
		denomination.Priority = *patch.Priority
		columns = append(columns, "priority")
	}

	err = datastore.UpdateDenomination(ctx, service.postgresDB, denomination, columns...)
	if datastore.IsUniqueViolation(err) {
		return nil, ErrDenominationExists
	}
	if err != nil {
		return nil, err
	}

	service.invalidate(ctx)
	return denomination, nil
}

func (service *ServiceDenomination) invalidate(ctx context.Context) {
	if err := service.cache.Delete(ctx, DBKeyWheelDenominations()); err != nil {
		logger.Warningf("denomination: invalidate wheel cache: %v", err)
	}
}

// trimmed maps blank strings to nil.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
