package handler

import (
	"net/http"
	"strings"

	"voucherwheel/internal/models"
	"voucherwheel/internal/services"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupMember struct {
	container *do.Injector
}

type claimRequest struct {
	Code string `json:"code"`
}

var claimStatus = map[models.ClaimReason]int{
	models.ClaimReasonInvalidCode:     http.StatusNotFound,
	models.ClaimReasonExpired:         http.StatusGone,
	models.ClaimReasonAlreadyUsed:     http.StatusConflict,
	models.ClaimReasonUnableToClaim:   http.StatusBadRequest,
	models.ClaimReasonValidationError: http.StatusBadRequest,
	models.ClaimReasonRateLimited:     http.StatusTooManyRequests,
	models.ClaimReasonServerError:     http.StatusInternalServerError,
}

func claimAbort(c echo.Context, status int, reason models.ClaimReason) error {
	return c.JSON(status, &services.ClaimResult{OK: false, Reason: reason})
}

// Claim always answers with {ok, ...} so the member app can branch on reason.
func (gr *groupMember) Claim(c echo.Context) error {
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return claimAbort(c, http.StatusBadRequest, models.ClaimReasonValidationError)
	}

	code := services.NormalizeCode(req.Code)
	if len(code) < services.MIN_CODE_LENGTH {
		return claimAbort(c, http.StatusBadRequest, models.ClaimReasonInvalidCode)
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		logger.Errorf("claim: %v", err)
		return claimAbort(c, http.StatusInternalServerError, models.ClaimReasonServerError)
	}

	res, err := serviceVoucher.Claim(c.Request().Context(), code, optional(clientIP(c)), optional(c.Request().UserAgent()))
	if err != nil {
		logger.Errorf("claim %s: %v", code, err)
		return claimAbort(c, http.StatusInternalServerError, models.ClaimReasonServerError)
	}

	if res.OK {
		return c.JSON(http.StatusOK, res)
	}

	status, ok := claimStatus[res.Reason]
	if !ok {
		status = http.StatusBadRequest
	}
	return c.JSON(status, res)
}

func (gr *groupMember) Wheel(c echo.Context) error {
	serviceDenomination, err := do.Invoke[*services.ServiceDenomination](gr.container)
	if err != nil {
		logger.Errorf("wheel: %v", err)
		return claimAbort(c, http.StatusInternalServerError, models.ClaimReasonServerError)
	}

	segments, err := serviceDenomination.Preview(c.Request().Context())
	if err != nil {
		logger.Errorf("wheel: %v", err)
		return claimAbort(c, http.StatusInternalServerError, models.ClaimReasonServerError)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "segments": segments})
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(c echo.Context) string {
	if forwarded := c.Request().Header.Get(echo.HeaderXForwardedFor); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	return c.RealIP()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
