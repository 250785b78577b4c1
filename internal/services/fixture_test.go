package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"voucherwheel/internal/models"
	"voucherwheel/internal/testutil"

	"github.com/samber/do"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	env           *testutil.Env
	vouchers      *ServiceVoucher
	denominations *ServiceDenomination
	members       *ServiceMember
	config        *ServiceConfig
	member        *models.Member

	mu    sync.Mutex
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return newFixtureOn(t, testutil.New(t))
}

func newFixtureOn(t *testing.T, env *testutil.Env) *fixture {
	t.Helper()

	Provide(env.Container)

	f := &fixture{
		env:           env,
		vouchers:      do.MustInvoke[*ServiceVoucher](env.Container),
		denominations: do.MustInvoke[*ServiceDenomination](env.Container),
		members:       do.MustInvoke[*ServiceMember](env.Container),
		config:        do.MustInvoke[*ServiceConfig](env.Container),
		clock:         time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.vouchers.now = f.now

	ctx := context.Background()
	for _, amount := range []int64{10000, 15000, 50000} {
		amount := amount
		_, err := f.denominations.Create(ctx, DenominationInput{Amount: &amount})
		require.NoError(t, err)
	}
	_, err := f.denominations.Create(ctx, DenominationInput{IsDummy: true, Label: strPtr("Robot")})
	require.NoError(t, err)

	f.member, err = f.members.Create(ctx, MemberInput{FullName: "Nguyen Van A"})
	require.NoError(t, err)

	return f
}

func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

func (f *fixture) issue(t *testing.T, amount int64, count int, expiresAt *time.Time) []*IssuedVoucher {
	t.Helper()

	issued, err := f.vouchers.IssueBatch(context.Background(), IssueBatchInput{
		MemberID:  f.member.ID,
		Amount:    amount,
		Count:     count,
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	require.Len(t, issued, count)
	return issued
}

func (f *fixture) countVouchers(t *testing.T) int {
	t.Helper()

	n, err := f.env.DB.NewSelect().Model((*models.Voucher)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

// sequenceCodes yields each code repeat times before moving on.
func sequenceCodes(repeat int) func() (string, error) {
	var mu sync.Mutex
	calls := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := fmt.Sprintf("SEQ%09d", calls/repeat)
		calls++
		return code, nil
	}
}
