package main

import (
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"innerlab/internal/activation"
	"innerlab/internal/cache"
	"innerlab/internal/config"
	"innerlab/internal/db"
	"innerlab/internal/docstore"
	"innerlab/internal/entitlement"
	"innerlab/internal/http/handlers"
	appmw "innerlab/internal/http/middleware"
	"innerlab/internal/identity"
)

// routePolicy is the static route→tier table. Built once at startup,
// never mutated. Unlisted paths require no tier; lab stems gate the
// whole lab family below them on segment boundaries.
func routePolicy() *entitlement.Policy {
	return entitlement.NewPolicy(
		map[string]entitlement.Tier{
			"/v1/me":     entitlement.TierFree,
			"/v1/access": entitlement.TierFree,
		},
		map[string]entitlement.Tier{
			"/v1/labs":             entitlement.TierFree,
			"/v1/labs/momentum":    entitlement.TierBasicPaid,
			"/v1/labs/integration": entitlement.TierBasicPaid,
			"/v1/labs/deepening":   entitlement.TierDeepening,
		},
	)
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("APP_JWT_SECRET is required")
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}

	store, err := docstore.NewPostgres(gdb)
	if err != nil {
		logger.Fatal("failed to prepare document store", zap.Error(err))
	}

	tiers := cache.NewTierCache(cfg.RedisAddr, cfg.TierCacheTTL, logger)
	if tiers != nil {
		logger.Info("tier cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	verifier := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	pipeline := activation.NewPipeline(store, logger, cfg.Environment)

	activation.RegisterMetrics()
	appmw.RegisterMetrics()

	db.StartRollupWorker(gdb, logger)

	policy := routePolicy()
	auth := appmw.BearerAuth(verifier, store, tiers, logger)
	gate := appmw.RequireAccess(policy)
	admin := appmw.AdminAuth(cfg)

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.POST("/v1/labs/{labId}/entries", auth(gate(handlers.SaveLabEntry(store, pipeline, logger))))
	r.GET("/v1/labs/{labId}/entries", auth(gate(handlers.GetLabEntry(store))))
	r.GET("/v1/me", auth(handlers.Me(store)))
	r.GET("/v1/access", auth(handlers.CheckAccess(policy)))

	r.GET("/v1/metrics", handlers.ServiceMetrics())

	r.GET("/admin/events/recent", admin(handlers.RecentEvents(gdb)))
	r.GET("/admin/activation/stats", admin(handlers.ActivationStats(gdb)))
	r.GET("/admin/healthz", admin(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("admin ok")
	}))

	// Global middleware chain: request logger, then usage events, then router.
	handler := handlers.RequestLogger(logger)(appmw.UsageEvents(pipeline)(r.Handler))

	logger.Info("innerlab listening", zap.String("addr", cfg.ListenAddr))
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
