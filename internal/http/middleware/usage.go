package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"innerlab/internal/activation"
	httpctx "innerlab/internal/http/ctx"
)

// UsageEvents records a route_accessed event for every authenticated
// API request after it completes. Emission runs in its own goroutine
// and is best-effort; it can never slow down or fail the request.
func UsageEvents(pipeline *activation.Pipeline) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			next(ctx)

			path := string(ctx.Path())
			if path == "/healthz" || path == "/v1/metrics" || strings.HasPrefix(path, "/admin") {
				return
			}

			claims, ok := httpctx.ClaimsFromCtx(ctx)
			if !ok || claims == nil {
				return
			}

			status := ctx.Response.StatusCode()
			ev := activation.Event{
				Kind:      activation.EventRouteAccessed,
				UserID:    claims.UserID,
				SessionID: claims.SessionID,
				LabID:     path,
				Success:   status < fasthttp.StatusBadRequest,
			}
			if status >= fasthttp.StatusBadRequest {
				ev.ErrorKind = fasthttp.StatusMessage(status)
			}

			go func() {
				emitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				pipeline.EmitEvent(emitCtx, ev)
			}()
		}
	}
}
