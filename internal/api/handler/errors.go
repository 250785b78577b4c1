package handler

import (
	"errors"

	"voucherwheel/internal/services"

	"github.com/google/logger"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
)

// wrapServiceError tags a service error with the errorx kind the response should carry.
func wrapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidFullName),
		errors.Is(err, services.ErrInvalidDenomination),
		errors.Is(err, services.ErrNoFields):
		return errorx.Wrap(err, errorx.Validation)
	case errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrDenominationNotFound),
		errors.Is(err, services.ErrVoucherNotFound):
		return errorx.Wrap(err, errorx.NotExist)
	case errors.Is(err, services.ErrDenominationExists),
		errors.Is(err, services.ErrNotClaimedOrAlreadyProcessed),
		errors.Is(err, services.ErrDummyDenominationLock):
		return errorx.Wrap(err, errorx.Invalid)
	}

	logger.Errorf("handler: %v", err)
	return errorx.Wrap(err, errorx.Service)
}
