package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation                   = errors.New("VALIDATION_ERROR")
	ErrMemberIDRequired             = fmt.Errorf("%w: MEMBER_ID_REQUIRED", ErrValidation)
	ErrBatchCount                   = fmt.Errorf("%w: count must be between 1 and %d", ErrValidation, MAX_BATCH_COUNT)
	ErrExpiresInPast                = fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	ErrDenominationType             = fmt.Errorf("%w: type must be cash or dummy", ErrValidation)
	ErrMemberNotFound               = errors.New("MEMBER_NOT_FOUND")
	ErrInvalidFullName              = errors.New("INVALID_FULLNAME")
	ErrInvalidDenomination          = errors.New("INVALID_DENOMINATION")
	ErrDenominationExists           = errors.New("DENOMINATION_EXISTS")
	ErrDenominationNotFound         = errors.New("NOT_FOUND")
	ErrNoFields                     = errors.New("NO_FIELDS")
	ErrVoucherNotFound              = errors.New("VOUCHER_NOT_FOUND")
	ErrNotClaimedOrAlreadyProcessed = errors.New("NOT_CLAIMED_OR_ALREADY_PROCESSED")
	ErrAdminIDNotSet                = errors.New("ADMIN_ID_NOT_SET")
	ErrDummyDenominationLock        = errors.New("dummy denomination locked")
)

const (
	CONFIG_CLAIM_RATE_LIMIT_PER_MINUTE = "CLAIM_RATE_LIMIT_PER_MINUTE"
	CONFIG_CRONJOB_TIME_VOUCHER_REPORT = "CRONJOB_TIME_VOUCHER_REPORT"

	CLAIM_RATE_LIMIT_PER_MINUTE = 30
	CRONJOB_TIME_VOUCHER_REPORT = "0 * * * *"
	MAX_BATCH_COUNT             = 1000
	CODE_LENGTH                 = 12
	MIN_CODE_LENGTH             = 4
	MIN_FULLNAME_LENGTH         = 2
	MEMBER_SEARCH_DEFAULT_LIMIT = 50
	MEMBER_SEARCH_MAX_LIMIT     = 200
	VOUCHER_LIST_DEFAULT_LIMIT  = 200
	VOUCHER_LIST_MAX_LIMIT      = 5000
	SPIN_MS_MIN                 = 5500
	SPIN_MS_RANGE               = 1500
	DEFAULT_DENOMINATION_WEIGHT = 1
	DEFAULT_DUMMY_AMOUNT        = -1

	CACHE_TTL_1_MIN  = 1 * time.Minute
	CACHE_TTL_5_MINS = 5 * time.Minute
)

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", key)
}

func DBKeyWheelDenominations() string {
	return "denominations:wheel"
}

func LockKeyDummyDenomination() string {
	return "lock:denomination-dummy"
}

func LimitKeyClaimIP(ip string) string {
	return fmt.Sprintf("limit:claim:%s", ip)
}
