package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/interfaces"
	"voucherwheel/internal/models"
	"voucherwheel/internal/pkg"
	"voucherwheel/internal/pkg/limiter"

	"github.com/go-redis/redis_rate/v10"
	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type IssueBatchInput struct {
	MemberID  string     `json:"member_id"`
	Amount    int64      `json:"amount"`
	Count     int        `json:"count"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type IssuedVoucher struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type ClaimResult struct {
	OK     bool                `json:"ok"`
	Reason models.ClaimReason  `json:"reason,omitempty"`
	Amount int64               `json:"amount,omitempty"`
	Wheel  *models.WheelConfig `json:"wheel,omitempty"`
}

func claimFailure(reason models.ClaimReason) *ClaimResult {
	return &ClaimResult{OK: false, Reason: reason}
}

type VoucherDetail struct {
	*models.VoucherWithMember
	Events []*models.VoucherEvent `json:"events"`
}

type ServiceVoucher struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	denominations      *ServiceDenomination
	members            *ServiceMember
	config             *ServiceConfig
	limiter            interfaces.Limiter

	rng     Randomizer
	now     func() time.Time
	newCode func() (string, error)
}

func NewServiceVoucher(container *do.Injector) (*ServiceVoucher, error) {
	db, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	denominations, err := do.Invoke[*ServiceDenomination](container)
	if err != nil {
		return nil, err
	}

	members, err := do.Invoke[*ServiceMember](container)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	claimLimiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	return &ServiceVoucher{
		container:          container,
		postgresDB:         db,
		readonlyPostgresDB: readonlyPostgresDB,
		denominations:      denominations,
		members:            members,
		config:             config,
		limiter:            claimLimiter,
		rng:                globalRand{},
		now:                func() time.Time { return time.Now().UTC() },
		newCode:            func() (string, error) { return pkg.GenVoucherCode(CODE_LENGTH) },
	}, nil
}

// NormalizeCode trims and uppercases a member-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IssueBatch creates count vouchers for one member in a single transaction.
// Either all of them become visible or none do.
func (service *ServiceVoucher) IssueBatch(ctx context.Context, input IssueBatchInput) ([]*IssuedVoucher, error) {
	memberID := strings.TrimSpace(input.MemberID)
	if memberID == "" {
		return nil, ErrMemberIDRequired
	}
	if input.Count < 1 || input.Count > MAX_BATCH_COUNT {
		return nil, ErrBatchCount
	}
	now := service.now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, ErrExpiresInPast
	}

	exists, err := service.members.Exists(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMemberNotFound
	}

	valid, err := service.denominations.ValidateAmount(ctx, input.Amount)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalidDenomination
	}

	var expiresAt *time.Time
	if input.ExpiresAt != nil {
		t := input.ExpiresAt.UTC()
		expiresAt = &t
	}

	issued := make([]*IssuedVoucher, 0, input.Count)
	collisions := 0
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		events := make([]*models.VoucherEvent, 0, input.Count)
		for i := 0; i < input.Count; i++ {
			voucher := &models.Voucher{
				ID:        uuid.NewString(),
				MemberID:  memberID,
				Amount:    input.Amount,
				Status:    models.VoucherStatusIssued,
				IssuedAt:  now,
				ExpiresAt: expiresAt,
			}

			// collisions only happen by chance, so retry until a free code sticks
			for {
				code, err := service.newCode()
				if err != nil {
					return err
				}
				voucher.Code = code

				inserted, err := datastore.InsertVoucherIfCodeFree(ctx, tx, voucher)
				if err != nil {
					return err
				}
				if inserted {
					break
				}
				collisions++
			}

			issued = append(issued, &IssuedVoucher{ID: voucher.ID, Code: voucher.Code})
			events = append(events, &models.VoucherEvent{
				ID:        uuid.NewString(),
				VoucherID: voucher.ID,
				EventType: models.VOUCHER_EVENT_CREATED,
				Meta:      map[string]interface{}{"batch_size": input.Count},
				CreatedAt: now,
			})
		}

		return datastore.InsertVoucherEvents(ctx, tx, events)
	})
	if err != nil {
		return nil, err
	}

	if collisions > 0 {
		logger.Warningf("voucher: batch for member %s hit %d code collisions", memberID, collisions)
	}
	return issued, nil
}

// Claim redeems code at most once. Expected failures come back as a
// ClaimResult with a reason, only storage faults are returned as errors.
func (service *ServiceVoucher) Claim(ctx context.Context, code string, clientIP, userAgent *string) (*ClaimResult, error) {
	code = NormalizeCode(code)
	if len(code) < MIN_CODE_LENGTH {
		return claimFailure(models.ClaimReasonInvalidCode), nil
	}

	if clientIP != nil && *clientIP != "" {
		limit, err := service.config.GetIntConfig(ctx, CONFIG_CLAIM_RATE_LIMIT_PER_MINUTE, CLAIM_RATE_LIMIT_PER_MINUTE)
		if err != nil {
			logger.Warningf("voucher: read %s: %v", CONFIG_CLAIM_RATE_LIMIT_PER_MINUTE, err)
		}
		err = service.limiter.Allow(ctx, LimitKeyClaimIP(*clientIP), redis_rate.PerMinute(limit))
		if errors.Is(err, limiter.ErrRateLimited) {
			return claimFailure(models.ClaimReasonRateLimited), nil
		}
		if err != nil {
			logger.Warningf("voucher: claim limiter: %v", err)
		}
	}

	now := service.now()
	var claimed *models.Voucher
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		voucher, err := datastore.ClaimVoucher(ctx, tx, code, now, clientIP, userAgent)
		if err != nil || voucher == nil {
			return err
		}
		claimed = voucher

		meta := map[string]interface{}{}
		if clientIP != nil {
			meta["ip"] = *clientIP
		}
		if userAgent != nil {
			meta["user_agent"] = *userAgent
		}
		return datastore.InsertVoucherEvents(ctx, tx, []*models.VoucherEvent{{
			ID:        uuid.NewString(),
			VoucherID: voucher.ID,
			EventType: models.VOUCHER_EVENT_CLAIMED,
			Meta:      meta,
			CreatedAt: now,
		}})
	})
	if err != nil {
		return nil, err
	}

	if claimed == nil {
		reason, err := service.diagnose(ctx, code, now)
		if err != nil {
			return nil, err
		}
		return claimFailure(reason), nil
	}

	denominations, err := service.denominations.ListWheelEligible(ctx)
	if err != nil {
		logger.Warningf("voucher: wheel denominations: %v", err)
		denominations = nil
	}

	return &ClaimResult{
		OK:     true,
		Amount: claimed.Amount,
		Wheel:  BuildWheel(claimed.Amount, denominations, service.rng),
	}, nil
}

// diagnose explains why the conditional update matched nothing. It never
// decides whether a claim happens.
func (service *ServiceVoucher) diagnose(ctx context.Context, code string, now time.Time) (models.ClaimReason, error) {
	voucher, err := datastore.GetVoucherByCode(ctx, service.postgresDB, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ClaimReasonInvalidCode, nil
	}
	if err != nil {
		return "", err
	}

	switch {
	case voucher.Expired(now):
		return models.ClaimReasonExpired, nil
	case voucher.Status.Used():
		return models.ClaimReasonAlreadyUsed, nil
	default:
		return models.ClaimReasonUnableToClaim, nil
	}
}

// Process marks a claimed voucher as fulfilled by adminID.
func (service *ServiceVoucher) Process(ctx context.Context, id string, adminID string, note *string) (*models.Voucher, error) {
	if adminID == "" {
		return nil, ErrAdminIDNotSet
	}

	now := service.now()
	note = trimmed(note)
	var processed *models.Voucher
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		voucher, err := datastore.ProcessVoucher(ctx, tx, id, now, adminID, note)
		if err != nil {
			return err
		}
		if voucher == nil {
			return ErrNotClaimedOrAlreadyProcessed
		}
		processed = voucher

		meta := map[string]interface{}{"admin_id": adminID}
		if note != nil {
			meta["note"] = *note
		}
		return datastore.InsertVoucherEvents(ctx, tx, []*models.VoucherEvent{{
			ID:        uuid.NewString(),
			VoucherID: voucher.ID,
			EventType: models.VOUCHER_EVENT_PROCESSED,
			Meta:      meta,
			CreatedAt: now,
		}})
	})
	if err != nil {
		return nil, err
	}

	return processed, nil
}

func (service *ServiceVoucher) List(ctx context.Context, filter models.VoucherFilter) ([]*models.VoucherWithMember, error) {
	if filter.Limit <= 0 {
		filter.Limit = VOUCHER_LIST_DEFAULT_LIMIT
	}
	if filter.Limit > VOUCHER_LIST_MAX_LIMIT {
		filter.Limit = VOUCHER_LIST_MAX_LIMIT
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrValidation
	}

	return datastore.ListVouchers(ctx, service.readonlyPostgresDB, filter)
}

func (service *ServiceVoucher) Get(ctx context.Context, id string) (*VoucherDetail, error) {
	voucher, err := datastore.GetVoucherByID(ctx, service.readonlyPostgresDB, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}

	events, err := datastore.GetVoucherEvents(ctx, service.readonlyPostgresDB, id)
	if err != nil {
		return nil, err
	}

	return &VoucherDetail{voucher, events}, nil
}

// Report counts vouchers issued in [from, to) by status.
func (service *ServiceVoucher) Report(ctx context.Context, from, to time.Time) ([]models.VoucherStatusCount, error) {
	return datastore.CountVouchersByStatus(ctx, service.readonlyPostgresDB, from, to)
}
