package middleware

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"innerlab/internal/entitlement"
	httpctx "innerlab/internal/http/ctx"
)

var gateDenials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "innerlab",
		Name:      "gate_denials_total",
		Help:      "Requests rejected by the entitlement gate.",
	},
	[]string{"reason"},
)

// RegisterMetrics registers middleware collectors on the default
// registry. Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(gateDenials)
}

// RequireAccess enforces the route policy for the request path.
// Authentication and tier gating stay distinct checks: a missing
// caller is rejected as unauthenticated even on free routes behind
// this middleware, an under-tier caller as under_tier.
func RequireAccess(policy *entitlement.Policy) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			path := string(ctx.Path())

			tier, authed := httpctx.TierFromCtx(ctx)
			if !authed {
				gateDenials.WithLabelValues("unauthenticated").Inc()
				writeReason(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}

			if !policy.CanAccess(&tier, path) {
				gateDenials.WithLabelValues("under_tier").Inc()
				writeReason(ctx, fasthttp.StatusForbidden, "under_tier",
					"requires tier "+policy.RequiredTier(path).String())
				return
			}

			next(ctx)
		}
	}
}

func writeReason(ctx *fasthttp.RequestCtx, status int, reason, message string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": reason, "message": message})
	ctx.SetBody(body)
}
