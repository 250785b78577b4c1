package handler

import (
	"net/http"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
	AdminKey  string
	SuperKey  string
	AdminID   string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🎡")
	})

	routesAPI := r.Group("/api")
	{
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Origins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, HeaderAdminKey, HeaderSuperKey},
			MaxAge:       60 * 60,
		})
		routesAPI.Use(cors)

		h := groupHealth{cfg.Container}
		routesAPI.GET("/health", h.Live)

		m := groupMember{cfg.Container}
		routesAPI.POST("/claim", m.Claim)
		routesAPI.GET("/wheel", m.Wheel)

		routesAPIAdmin := routesAPI.Group("/admin")
		routesAPIAdmin.Use(AuthnAdmin(cfg.AdminKey, cfg.SuperKey))
		{
			routesAPIAdmin.GET("/health", h.Ready)

			d := groupDenomination{cfg.Container}
			routesAPIAdmin.GET("/denominations", d.List)
			routesAPIAdmin.POST("/denominations", d.Create)
			routesAPIAdmin.GET("/denominations/generate", d.Generate)
			routesAPIAdmin.PATCH("/denominations/:id", d.Update, RequireSuper)

			am := groupAdminMember{cfg.Container}
			routesAPIAdmin.GET("/members", am.List)
			routesAPIAdmin.POST("/members", am.Create)

			v := groupVoucher{cfg.Container, cfg.AdminID}
			routesAPIAdmin.GET("/vouchers", v.List)
			routesAPIAdmin.POST("/vouchers/batch", v.Batch)
			routesAPIAdmin.GET("/vouchers/:id", v.Get)
			routesAPIAdmin.POST("/vouchers/:id/process", v.Process)
		}
	}

	return r, nil
}
