package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/models"
	"voucherwheel/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestIssueBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued := f.issue(t, 15000, 25, nil)

	codes := map[string]bool{}
	for _, v := range issued {
		assert.Len(t, v.Code, CODE_LENGTH)
		assert.Regexp(t, `^[A-Z0-9]{12}$`, v.Code)
		codes[v.Code] = true

		detail, err := f.vouchers.Get(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VoucherStatusIssued, detail.Status)
		assert.Equal(t, int64(15000), detail.Amount)
		assert.Equal(t, "Nguyen Van A", detail.FullName)
		assert.Nil(t, detail.ClaimedAt)
		require.Len(t, detail.Events, 1)
		assert.Equal(t, models.VOUCHER_EVENT_CREATED, detail.Events[0].EventType)
	}
	assert.Len(t, codes, 25)
}

func TestIssueBatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.clock.Add(-time.Minute)

	cases := []struct {
		name  string
		input IssueBatchInput
		err   error
	}{
		{"missing member", IssueBatchInput{Amount: 15000, Count: 1}, ErrMemberIDRequired},
		{"zero count", IssueBatchInput{MemberID: f.member.ID, Amount: 15000, Count: 0}, ErrBatchCount},
		{"count over max", IssueBatchInput{MemberID: f.member.ID, Amount: 15000, Count: MAX_BATCH_COUNT + 1}, ErrBatchCount},
		{"expiry in past", IssueBatchInput{MemberID: f.member.ID, Amount: 15000, Count: 1, ExpiresAt: &past}, ErrExpiresInPast},
		{"unknown member", IssueBatchInput{MemberID: "nobody", Amount: 15000, Count: 1}, ErrMemberNotFound},
		{"unknown amount", IssueBatchInput{MemberID: f.member.ID, Amount: 12345, Count: 1}, ErrInvalidDenomination},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.vouchers.IssueBatch(ctx, tc.input)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := f.vouchers.IssueBatch(ctx, IssueBatchInput{Amount: 15000, Count: 1})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.countVouchers(t))
}

func TestIssueBatchAcceptsDummyAmount(t *testing.T) {
	f := newFixture(t)

	issued := f.issue(t, -1, 2, nil)
	assert.Len(t, issued, 2)
}

func TestIssueBatchSurvivesCodeCollisions(t *testing.T) {
	f := newFixture(t)
	f.vouchers.newCode = sequenceCodes(3)

	issued := f.issue(t, 10000, 5, nil)

	codes := map[string]bool{}
	for _, v := range issued {
		codes[v.Code] = true
	}
	assert.Len(t, codes, 5)
	assert.Equal(t, 5, f.countVouchers(t))
}

func TestIssueBatchCollidesWithExistingCodes(t *testing.T) {
	f := newFixture(t)
	f.vouchers.newCode = sequenceCodes(1)
	first := f.issue(t, 10000, 3, nil)

	// restart the sequence so the next batch collides with every earlier code
	f.vouchers.newCode = sequenceCodes(1)
	second := f.issue(t, 10000, 2, nil)

	assert.Equal(t, "SEQ000000003", second[0].Code)
	assert.Equal(t, "SEQ000000004", second[1].Code)
	assert.Len(t, first, 3)
	assert.Equal(t, 5, f.countVouchers(t))
}

func TestIssueBatchIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.env.DB.ExecContext(ctx, `CREATE TRIGGER fail_after_30 BEFORE INSERT ON vouchers
		WHEN (SELECT COUNT(*) FROM vouchers) >= 30
		BEGIN SELECT RAISE(ABORT, 'storage fault'); END`)
	require.NoError(t, err)

	_, err = f.vouchers.IssueBatch(ctx, IssueBatchInput{MemberID: f.member.ID, Amount: 15000, Count: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage fault")

	assert.Equal(t, 0, f.countVouchers(t))
	events, err := f.env.DB.NewSelect().Model((*models.VoucherEvent)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, events)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued := f.issue(t, 15000, 1, nil)
	f.advance(time.Minute)

	ip, ua := "10.0.0.1", "test-agent"
	res, err := f.vouchers.Claim(ctx, "  "+issued[0].Code+"\n", &ip, &ua)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, int64(15000), res.Amount)
	require.NotNil(t, res.Wheel)
	assert.Equal(t, int64(15000), res.Wheel.Segments[res.Wheel.TargetIndex].Value())

	detail, err := f.vouchers.Get(ctx, issued[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherStatusClaimed, detail.Status)
	require.NotNil(t, detail.ClaimedAt)
	assert.True(t, detail.ClaimedAt.Equal(f.clock))
	assert.Equal(t, &ip, detail.ClaimIP)
	assert.Equal(t, &ua, detail.ClaimUserAgent)
	require.Len(t, detail.Events, 2)
	assert.Equal(t, models.VOUCHER_EVENT_CLAIMED, detail.Events[1].EventType)
	assert.Equal(t, ip, detail.Events[1].Meta["ip"])
}

func TestClaimIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, 10000, 1, nil)

	res, err := f.vouchers.Claim(context.Background(), "  "+strings.ToLower(issued[0].Code), nil, nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestClaimFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.vouchers.Claim(ctx, " ab ", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, &ClaimResult{Reason: models.ClaimReasonInvalidCode}, res)

	res, err = f.vouchers.Claim(ctx, "NOSUCHCODE99", nil, nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, models.ClaimReasonInvalidCode, res.Reason)
}

func TestClaimTwiceReportsAlreadyUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued := f.issue(t, 10000, 1, nil)

	first, err := f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)
	require.True(t, first.OK)

	for i := 0; i < 3; i++ {
		again, err := f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
		require.NoError(t, err)
		assert.False(t, again.OK)
		assert.Equal(t, models.ClaimReasonAlreadyUsed, again.Reason)
		assert.Nil(t, again.Wheel)
	}
}

func TestClaimAtMostOnceUnderConcurrency(t *testing.T) {
	const n = 12
	f := newFixtureOn(t, testutil.NewPooled(t, n))
	issued := f.issue(t, 50000, 3, nil)

	for _, voucher := range issued {
		results := make([]*ClaimResult, n)
		errs := make([]error, n)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], errs[i] = f.vouchers.Claim(context.Background(), voucher.Code, nil, nil)
			}(i)
		}
		close(start)
		wg.Wait()

		ok, used := 0, 0
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			if results[i].OK {
				ok++
				assert.Equal(t, int64(50000), results[i].Amount)
			} else if results[i].Reason == models.ClaimReasonAlreadyUsed {
				used++
			}
		}
		assert.Equal(t, 1, ok, voucher.Code)
		assert.Equal(t, n-1, used, voucher.Code)

		events, err := datastore.GetVoucherEvents(context.Background(), f.env.DB, voucher.ID)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	}
}

type queryRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *queryRecorder) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (r *queryRecorder) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, event.Query)
}

// voucherQueries returns the recorded statements touching the vouchers table.
func (r *queryRecorder) voucherQueries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.queries))
	for _, q := range r.queries {
		if strings.Contains(q, `"vouchers"`) {
			out = append(out, q)
		}
	}
	return out
}

func TestClaimIsOneConditionalUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued := f.issue(t, 15000, 1, nil)

	recorder := &queryRecorder{}
	f.env.DB.AddQueryHook(recorder)

	res, err := f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)
	require.True(t, res.OK)

	queries := recorder.voucherQueries()
	require.Len(t, queries, 1, "a successful claim reads nothing before or after its update")
	assert.True(t, strings.HasPrefix(queries[0], "UPDATE"), queries[0])
	assert.Contains(t, queries[0], "status = 'ISSUED'")
	assert.Contains(t, queries[0], "status = 'CLAIMED'")

	res, err = f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)
	require.False(t, res.OK)

	queries = recorder.voucherQueries()[1:]
	require.Len(t, queries, 2)
	assert.True(t, strings.HasPrefix(queries[0], "UPDATE"), "the update runs before the diagnosis read")
	assert.True(t, strings.HasPrefix(queries[1], "SELECT"), queries[1])
}

func TestClaimExpiryTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expiresAt := f.clock.Add(time.Hour)
	issued := f.issue(t, 15000, 2, &expiresAt)

	res, err := f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)
	require.True(t, res.OK)

	f.advance(time.Hour)

	// the deadline itself is already too late
	res, err = f.vouchers.Claim(ctx, issued[1].Code, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimReasonExpired, res.Reason)

	res, err = f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimReasonExpired, res.Reason)

	detail, err := f.vouchers.Get(ctx, issued[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherStatusIssued, detail.Status)
}

func TestClaimReturnsAmountFixedAtIssuance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued := f.issue(t, 15000, 1, nil)

	denominations, err := f.denominations.List(ctx)
	require.NoError(t, err)
	for _, d := range denominations {
		if d.Amount == 15000 {
			amount, off := int64(16000), false
			_, err = f.denominations.Update(ctx, d.ID, DenominationPatch{Amount: &amount, IsEnabledWheel: &off})
			require.NoError(t, err)
		}
	}

	res, err := f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, int64(15000), res.Amount)
	assert.Equal(t, models.CashSegment{Amount: 15000}, res.Wheel.Segments[res.Wheel.TargetIndex])
}

func TestClaimRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.env.Limiter.Budget = 2
	ip := "192.0.2.10"

	for i := 0; i < 2; i++ {
		res, err := f.vouchers.Claim(ctx, "GUESS0000000", &ip, nil)
		require.NoError(t, err)
		assert.Equal(t, models.ClaimReasonInvalidCode, res.Reason)
	}

	res, err := f.vouchers.Claim(ctx, "GUESS0000000", &ip, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimReasonRateLimited, res.Reason)

	other := "192.0.2.11"
	res, err = f.vouchers.Claim(ctx, "GUESS0000000", &other, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimReasonInvalidCode, res.Reason)
}

func TestProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued := f.issue(t, 10000, 1, nil)
	id := issued[0].ID

	_, err := f.vouchers.Process(ctx, id, "admin-1", nil)
	assert.ErrorIs(t, err, ErrNotClaimedOrAlreadyProcessed)

	f.advance(time.Minute)
	_, err = f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)

	_, err = f.vouchers.Process(ctx, id, "", nil)
	assert.ErrorIs(t, err, ErrAdminIDNotSet)

	f.advance(time.Minute)
	processed, err := f.vouchers.Process(ctx, id, "admin-1", strPtr(" handed out "))
	require.NoError(t, err)
	assert.Equal(t, models.VoucherStatusProcessed, processed.Status)
	require.NotNil(t, processed.ProcessedAt)
	require.NotNil(t, processed.ClaimedAt)
	assert.Equal(t, "admin-1", *processed.ProcessedBy)
	assert.Equal(t, "handed out", *processed.ProcessNote)

	_, err = f.vouchers.Process(ctx, id, "admin-2", nil)
	assert.ErrorIs(t, err, ErrNotClaimedOrAlreadyProcessed)

	_, err = f.vouchers.Process(ctx, "missing", "admin-1", nil)
	assert.ErrorIs(t, err, ErrNotClaimedOrAlreadyProcessed)

	detail, err := f.vouchers.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, detail.Events, 3)
	assert.Equal(t, models.VOUCHER_EVENT_PROCESSED, detail.Events[2].EventType)
	assert.Equal(t, "admin-1", detail.Events[2].Meta["admin_id"])

	res, err := f.vouchers.Claim(ctx, issued[0].Code, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimReasonAlreadyUsed, res.Reason)
}

func TestListVouchers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.members.Create(ctx, MemberInput{FullName: "Tran Thi B"})
	require.NoError(t, err)

	f.issue(t, 10000, 2, nil)
	f.advance(time.Second)
	claimedBatch := f.issue(t, 15000, 1, nil)
	f.advance(time.Second)
	_, err = f.vouchers.IssueBatch(ctx, IssueBatchInput{MemberID: other.ID, Amount: 50000, Count: 1})
	require.NoError(t, err)

	_, err = f.vouchers.Claim(ctx, claimedBatch[0].Code, nil, nil)
	require.NoError(t, err)

	all, err := f.vouchers.List(ctx, models.VoucherFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(50000), all[0].Amount)
	assert.Equal(t, "Tran Thi B", all[0].FullName)

	byName, err := f.vouchers.List(ctx, models.VoucherFilter{Member: "van a"})
	require.NoError(t, err)
	assert.Len(t, byName, 3)

	unprocessed, err := f.vouchers.List(ctx, models.VoucherFilter{Unprocessed: true})
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, claimedBatch[0].ID, unprocessed[0].ID)

	issued, err := f.vouchers.List(ctx, models.VoucherFilter{Status: models.VoucherStatusIssued, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, issued, 2)

	_, err = f.vouchers.List(ctx, models.VoucherFilter{Status: "LOST"})
	assert.ErrorIs(t, err, ErrValidation)

	report, err := f.vouchers.Report(ctx, f.clock.Add(-time.Hour), f.clock.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, models.VoucherStatusCount{Status: models.VoucherStatusClaimed, Total: 1, Amount: 15000}, report[0])
	assert.Equal(t, models.VoucherStatusCount{Status: models.VoucherStatusIssued, Total: 3, Amount: 70000}, report[1])
}

func TestGetUnknownVoucher(t *testing.T) {
	f := newFixture(t)

	_, err := f.vouchers.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}
