package models

import (
	"time"

	"github.com/uptrace/bun"
)

type VoucherStatus string

const (
	VoucherStatusIssued    VoucherStatus = "ISSUED"
	VoucherStatusClaimed   VoucherStatus = "CLAIMED"
	VoucherStatusProcessed VoucherStatus = "PROCESSED"
)

func (s VoucherStatus) Valid() bool {
	switch s {
	case VoucherStatusIssued, VoucherStatusClaimed, VoucherStatusProcessed:
		return true
	}
	return false
}

// Used reports whether the voucher already left the ISSUED state.
func (s VoucherStatus) Used() bool {
	return s == VoucherStatusClaimed || s == VoucherStatusProcessed
}

type ClaimReason string

const (
	ClaimReasonInvalidCode     ClaimReason = "INVALID_CODE"
	ClaimReasonExpired         ClaimReason = "EXPIRED"
	ClaimReasonAlreadyUsed     ClaimReason = "ALREADY_USED"
	ClaimReasonUnableToClaim   ClaimReason = "UNABLE_TO_CLAIM"
	ClaimReasonValidationError ClaimReason = "VALIDATION_ERROR"
	ClaimReasonRateLimited     ClaimReason = "RATE_LIMITED"
	ClaimReasonServerError     ClaimReason = "SERVER_ERROR"
)

type Voucher struct {
	bun.BaseModel  `bun:"table:vouchers,alias:v"`
	ID             string        `bun:"id,pk" json:"id"`
	Code           string        `bun:"code,notnull,unique" json:"code"`
	MemberID       string        `bun:"member_id,notnull" json:"member_id"`
	Amount         int64         `bun:"amount,notnull" json:"amount"`
	Status         VoucherStatus `bun:"status,notnull" json:"status"`
	IssuedAt       time.Time     `bun:"issued_at,notnull" json:"issued_at"`
	ClaimedAt      *time.Time    `bun:"claimed_at" json:"claimed_at"`
	ProcessedAt    *time.Time    `bun:"processed_at" json:"processed_at"`
	ExpiresAt      *time.Time    `bun:"expires_at" json:"expires_at"`
	ClaimIP        *string       `bun:"claim_ip" json:"claim_ip,omitempty"`
	ClaimUserAgent *string       `bun:"claim_user_agent" json:"claim_user_agent,omitempty"`
	ProcessedBy    *string       `bun:"processed_by" json:"processed_by,omitempty"`
	ProcessNote    *string       `bun:"process_note" json:"process_note,omitempty"`
}

// Expired reports whether the deadline has passed at the given instant.
// A voucher expiring exactly at now is no longer claimable.
func (v *Voucher) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && !v.ExpiresAt.After(now)
}

type VoucherWithMember struct {
	Voucher  `bun:",extend"`
	FullName string `bun:"full_name" json:"full_name"`
}

type VoucherFilter struct {
	Member      string
	Code        string
	Status      VoucherStatus
	Unprocessed bool
	From        *time.Time
	To          *time.Time
	Limit       int
}

type VoucherStatusCount struct {
	Status VoucherStatus `bun:"status"`
	Total  int           `bun:"total"`
	Amount int64         `bun:"amount"`
}

type VoucherBacklog struct {
	Total  int        `bun:"total"`
	Amount int64      `bun:"amount"`
	Oldest *time.Time `bun:"oldest"`
}
