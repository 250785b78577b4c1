package datastore_test

import (
	"context"
	"testing"
	"time"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/models"
	"voucherwheel/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newVoucher(code string, expiresAt *time.Time) *models.Voucher {
	return &models.Voucher{
		ID:        uuid.NewString(),
		Code:      code,
		MemberID:  "m-1",
		Amount:    10000,
		Status:    models.VoucherStatusIssued,
		IssuedAt:  t0,
		ExpiresAt: expiresAt,
	}
}

func TestConfigs(t *testing.T) {
	db := testutil.New(t).DB
	ctx := context.Background()

	require.NoError(t, datastore.UpsertConfig(ctx, db, &models.Config{Key: "B", Value: "1"}))
	require.NoError(t, datastore.UpsertConfig(ctx, db, &models.Config{Key: "A", Value: "2"}))
	require.NoError(t, datastore.UpsertConfig(ctx, db, &models.Config{Key: "B", Value: "3"}))

	configs, err := datastore.ListConfigs(ctx, db)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "A", configs[0].Key)
	assert.Equal(t, "3", configs[1].Value)
	assert.False(t, configs[1].UpdatedAt.IsZero())
}

func TestInsertVoucherIfCodeFree(t *testing.T) {
	db := testutil.New(t).DB
	ctx := context.Background()

	ok, err := datastore.InsertVoucherIfCodeFree(ctx, db, newVoucher("ABCD1234EFGH", nil))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = datastore.InsertVoucherIfCodeFree(ctx, db, newVoucher("ABCD1234EFGH", nil))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimVoucherOnlyOnce(t *testing.T) {
	db := testutil.New(t).DB
	ctx := context.Background()

	expires := t0.Add(time.Hour)
	_, err := datastore.InsertVoucherIfCodeFree(ctx, db, newVoucher("CLAIMME00001", &expires))
	require.NoError(t, err)

	ip := "10.0.0.1"
	claimed, err := datastore.ClaimVoucher(ctx, db, "CLAIMME00001", t0.Add(time.Minute), &ip, nil)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, models.VoucherStatusClaimed, claimed.Status)
	assert.Equal(t, int64(10000), claimed.Amount)
	require.NotNil(t, claimed.ClaimIP)
	assert.Equal(t, ip, *claimed.ClaimIP)

	again, err := datastore.ClaimVoucher(ctx, db, "CLAIMME00001", t0.Add(2*time.Minute), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestClaimVoucherExpired(t *testing.T) {
	db := testutil.New(t).DB
	ctx := context.Background()

	expires := t0.Add(time.Hour)
	_, err := datastore.InsertVoucherIfCodeFree(ctx, db, newVoucher("EXPIRED00001", &expires))
	require.NoError(t, err)

	claimed, err := datastore.ClaimVoucher(ctx, db, "EXPIRED00001", expires, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	voucher, err := datastore.GetVoucherByCode(ctx, db, "EXPIRED00001")
	require.NoError(t, err)
	assert.Equal(t, models.VoucherStatusIssued, voucher.Status)
}

func TestProcessVoucherRequiresClaimed(t *testing.T) {
	db := testutil.New(t).DB
	ctx := context.Background()

	voucher := newVoucher("PROCESS00001", nil)
	_, err := datastore.InsertVoucherIfCodeFree(ctx, db, voucher)
	require.NoError(t, err)

	processed, err := datastore.ProcessVoucher(ctx, db, voucher.ID, t0, "admin", nil)
	require.NoError(t, err)
	assert.Nil(t, processed)

	_, err = datastore.ClaimVoucher(ctx, db, voucher.Code, t0, nil, nil)
	require.NoError(t, err)

	processed, err = datastore.ProcessVoucher(ctx, db, voucher.ID, t0.Add(time.Hour), "admin", nil)
	require.NoError(t, err)
	require.NotNil(t, processed)
	assert.Equal(t, models.VoucherStatusProcessed, processed.Status)
	require.NotNil(t, processed.ProcessedBy)
	assert.Equal(t, "admin", *processed.ProcessedBy)
}

func TestCashAmountUnique(t *testing.T) {
	db := testutil.New(t).DB
	ctx := context.Background()

	insert := func(amount int64, dummy bool) error {
		return datastore.InsertDenomination(ctx, db, &models.Denomination{
			ID:        uuid.NewString(),
			Amount:    amount,
			IsDummy:   dummy,
			Weight:    1,
			CreatedAt: t0,
			UpdatedAt: t0,
		})
	}

	require.NoError(t, insert(10000, false))
	err := insert(10000, false)
	require.Error(t, err)
	assert.True(t, datastore.IsUniqueViolation(err))

	require.NoError(t, insert(-1, true))
	require.NoError(t, insert(-1, true))

	minneg, err := datastore.MinNegativeAmount(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), minneg)
}

func TestMinNegativeAmountEmpty(t *testing.T) {
	db := testutil.New(t).DB

	minneg, err := datastore.MinNegativeAmount(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, minneg)
}
