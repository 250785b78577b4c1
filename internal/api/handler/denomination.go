package handler

import (
	"voucherwheel/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupDenomination struct {
	container *do.Injector
}

func (gr *groupDenomination) List(c echo.Context) error {
	serviceDenomination, err := do.Invoke[*services.ServiceDenomination](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	denominations, err := serviceDenomination.List(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, denominations, nil)
}

func (gr *groupDenomination) Generate(c echo.Context) error {
	serviceDenomination, err := do.Invoke[*services.ServiceDenomination](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	amounts, err := serviceDenomination.ListGenerateEligible(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, amounts, nil)
}

func (gr *groupDenomination) Create(c echo.Context) error {
	var input services.DenominationInput
	if err := c.Bind(&input); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}

	serviceDenomination, err := do.Invoke[*services.ServiceDenomination](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	denomination, err := serviceDenomination.Create(c.Request().Context(), input)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, denomination, nil)
}

func (gr *groupDenomination) Update(c echo.Context) error {
	var patch services.DenominationPatch
	if err := c.Bind(&patch); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}

	serviceDenomination, err := do.Invoke[*services.ServiceDenomination](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	denomination, err := serviceDenomination.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, denomination, nil)
}
