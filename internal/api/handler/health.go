package handler

import (
	"net/http"

	"voucherwheel/internal/datastore"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type groupHealth struct {
	container *do.Injector
}

func (gr *groupHealth) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Ready also round-trips the primary database.
func (gr *groupHealth) Ready(c echo.Context) error {
	db, err := do.Invoke[*bun.DB](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	now, err := datastore.Now(c.Request().Context(), db)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, map[string]interface{}{"ok": true, "now": now}, nil)
}
