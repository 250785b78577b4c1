package handler

import (
	"strconv"
	"time"

	"voucherwheel/internal/models"
	"voucherwheel/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupVoucher struct {
	container *do.Injector
	adminID   string
}

type processRequest struct {
	Note *string `json:"note"`
}

func parseTimeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse(time.DateOnly, raw)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (gr *groupVoucher) List(c echo.Context) error {
	filter := models.VoucherFilter{
		Member:      c.QueryParam("member"),
		Code:        c.QueryParam("code"),
		Status:      models.VoucherStatus(c.QueryParam("status")),
		Unprocessed: c.QueryParam("unprocessed") == "1" || c.QueryParam("unprocessed") == "true",
	}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	var err error
	if filter.From, err = parseTimeParam(c, "from"); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}
	if filter.To, err = parseTimeParam(c, "to"); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	vouchers, err := serviceVoucher.List(c.Request().Context(), filter)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, vouchers, nil)
}

func (gr *groupVoucher) Get(c echo.Context) error {
	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	voucher, err := serviceVoucher.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, voucher, nil)
}

func (gr *groupVoucher) Batch(c echo.Context) error {
	var input services.IssueBatchInput
	if err := c.Bind(&input); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	issued, err := serviceVoucher.IssueBatch(c.Request().Context(), input)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, map[string]interface{}{"created": len(issued), "vouchers": issued}, nil)
}

func (gr *groupVoucher) Process(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}

	serviceVoucher, err := do.Invoke[*services.ServiceVoucher](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	voucher, err := serviceVoucher.Process(c.Request().Context(), c.Param("id"), gr.adminID, req.Note)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, voucher, nil)
}
