package handler

import (
	"strconv"

	"voucherwheel/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupAdminMember struct {
	container *do.Injector
}

func (gr *groupAdminMember) List(c echo.Context) error {
	serviceMember, err := do.Invoke[*services.ServiceMember](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	members, err := serviceMember.Search(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, members, nil)
}

func (gr *groupAdminMember) Create(c echo.Context) error {
	var input services.MemberInput
	if err := c.Bind(&input); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Validation))
	}

	serviceMember, err := do.Invoke[*services.ServiceMember](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	member, err := serviceMember.Create(c.Request().Context(), input)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, member, nil)
}
