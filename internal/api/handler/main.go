package handler

import (
	"net/http"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/services"

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
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == services.SERVER_MODE_DEBUG {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🎟️")
	})

	authentication, err := do.Invoke[*services.Authentication](cfg.Container)
	if err != nil {
		return nil, err
	}
	settings, err := do.Invoke[*services.Settings](cfg.Container)
	if err != nil {
		return nil, err
	}
	limiter, err := do.Invoke[interfaces.Limiter](cfg.Container)
	if err != nil {
		return nil, err
	}

	routesAPIv1 := r.Group("/api/v1")
	{
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, headerIdempotencyKey},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})
		routesAPIv1.Use(cors)

		w := groupWallet{cfg.Container}
		routesAPIv1.POST("/payments/webhook", w.PaymentWebhook, WebhookSecret(settings.WebhookSecret))

		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.
		routesAPIv1.GET("", Hello)

		u := groupUser{cfg.Container}
		routesAPIv1.GET("/user/me", u.Me)

		routesAPIv1Scratch := routesAPIv1.Group("/scratch")
		{
			s := groupScratch{cfg.Container}
			routesAPIv1Scratch.GET("/categories", s.ListCategories)
			routesAPIv1Scratch.GET("/categories/:slug", s.GetCategory)
			routesAPIv1Scratch.GET("/categories/:slug/rewards", s.GetRewards)
			routesAPIv1Scratch.GET("/categories/:slug/stats", s.GetStats)
			routesAPIv1Scratch.POST("/categories/:slug/purchase", s.Purchase,
				RateLimit(limiter, ipKey(services.LimitKeyIPPurchase), settings.PurchaseIPLimit),
				RateLimit(limiter, userKey(services.LimitKeyUserPurchase), settings.PurchaseUserLimit),
			)
			routesAPIv1Scratch.GET("/history", s.History)
			routesAPIv1Scratch.GET("/games/:id", s.GameDetails)
			routesAPIv1Scratch.POST("/games/:id/complete", s.CompleteGame)
		}

		routesAPIv1Wallet := routesAPIv1.Group("/wallet")
		{
			financial := RateLimit(limiter, userKey(services.LimitKeyUserFinancial), settings.FinancialLimit)
			routesAPIv1Wallet.GET("", w.Info)
			routesAPIv1Wallet.GET("/transactions", w.Transactions)
			routesAPIv1Wallet.GET("/transactions/:id", w.Transaction)
			routesAPIv1Wallet.POST("/deposit", w.Deposit, financial)
			routesAPIv1Wallet.POST("/withdraw", w.Withdraw, financial)
			routesAPIv1Wallet.GET("/withdraw/limits", w.WithdrawLimits)
			routesAPIv1Wallet.GET("/summary", w.Summary)
		}

		routesAPIv1Admin := routesAPIv1.Group("/admin")
		routesAPIv1Admin.Use(RequireAdmin(cfg.Container))
		{
			a := groupAdmin{cfg.Container}
			routesAPIv1Admin.GET("/stats", a.Stats)
			routesAPIv1Admin.GET("/users", a.Users)
			routesAPIv1Admin.POST("/users/:id/balance", a.AddUserBalance)
			routesAPIv1Admin.GET("/categories", a.Categories)
			routesAPIv1Admin.POST("/categories", a.CreateCategory)
			routesAPIv1Admin.PATCH("/categories/:id", a.UpdateCategory)
			routesAPIv1Admin.DELETE("/categories/:id", a.DeactivateCategory)
			routesAPIv1Admin.GET("/categories/:id/prizes", a.Prizes)
			routesAPIv1Admin.POST("/prizes", a.CreatePrize)
			routesAPIv1Admin.PATCH("/prizes/:id", a.UpdatePrize)
			routesAPIv1Admin.DELETE("/prizes/:id", a.DeactivatePrize)
			routesAPIv1Admin.GET("/games", a.Games)
			routesAPIv1Admin.GET("/transactions", a.Transactions)
			routesAPIv1Admin.POST("/withdrawals/:id", a.ProcessWithdraw)
			routesAPIv1Admin.GET("/configs", a.Configs)
			routesAPIv1Admin.PUT("/configs/:key", a.SetConfig)
			routesAPIv1Admin.POST("/reconcile/wins", a.Reconcile)
			routesAPIv1Admin.GET("/reconcile/ledger", a.LedgerAudit)
		}
	}

	return r, nil
}

func Hello(c echo.Context) error {
	return httpx.RestAbort(c, "hello world", nil)
}
