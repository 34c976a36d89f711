package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/fx"
	"github.com/meridian-ledger/meridian/internal/model"
	"github.com/meridian-ledger/meridian/internal/period"
	"github.com/meridian-ledger/meridian/internal/platform/httpx"
	"github.com/meridian-ledger/meridian/internal/statement"
	"github.com/meridian-ledger/meridian/internal/subledger/ap"
	"github.com/meridian-ledger/meridian/internal/subledger/ar"
	"github.com/meridian-ledger/meridian/internal/subledger/fixedasset"
	"github.com/meridian-ledger/meridian/internal/subledger/inventory"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

// RouterParams wires the module handlers into one router.
type RouterParams struct {
	Logger    *slog.Logger
	Config    *Config
	COA       *coa.Handler
	Vouchers  *voucher.Handler
	Periods   *period.Handler
	Statement *statement.Handler
	Model     *model.Handler
	FX        *fx.Handler
	AR        *ar.Handler
	AP        *ap.Handler
	Inventory *inventory.Handler
	Assets    *fixedasset.Handler
}

// NewRouter assembles the HTTP surface.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if p.Config != nil {
		r.Use(chimw.Timeout(p.Config.AppRequestTimeout))
	} else {
		r.Use(chimw.Timeout(30 * time.Second))
	}
	r.Use(httprate.LimitByIP(300, time.Minute))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      p.Config != nil && !p.Config.IsProduction(),
	})
	r.Use(secureMiddleware.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		p.COA.Routes(api)
		p.Vouchers.Routes(api)
		p.Periods.Routes(api)
		p.Statement.Routes(api)
		p.Model.Routes(api)
		p.FX.Routes(api)
		p.AR.Routes(api)
		p.AP.Routes(api)
		p.Inventory.Routes(api)
		p.Assets.Routes(api)
	})

	return r
}
