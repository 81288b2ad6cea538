package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	httpctx "innerlab/internal/http/ctx"
	"innerlab/internal/identity"
)

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			log.Info("request",
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
				zap.Int("status", ctx.Response.StatusCode()),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", ctx.RemoteAddr().String()))
		}
	}
}

// MustClaims returns the verified claims from context, or sends 401
// and returns (nil, false).
func MustClaims(ctx *fasthttp.RequestCtx) (*identity.Claims, bool) {
	claims, ok := httpctx.ClaimsFromCtx(ctx)
	if !ok || claims == nil {
		errResponse(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "authentication required")
		return nil, false
	}
	return claims, true
}

func jsonResponse(ctx *fasthttp.RequestCtx, data map[string]any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

// errResponse writes a failure with a stable machine-readable reason
// code alongside the human message.
func errResponse(ctx *fasthttp.RequestCtx, status int, reason, message string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": reason, "message": message})
	ctx.SetBody(body)
}

// routeParam returns the string route parameter by name, or "".
func routeParam(ctx *fasthttp.RequestCtx, name string) string {
	v := ctx.UserValue(name)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
