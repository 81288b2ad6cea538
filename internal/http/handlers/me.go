package handlers

import (
	"errors"

	"github.com/valyala/fasthttp"

	"innerlab/internal/docstore"
	"innerlab/internal/entitlement"
	httpctx "innerlab/internal/http/ctx"
)

// Me returns the caller's resolved tier and activation status.
func Me(store docstore.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		claims, ok := MustClaims(ctx)
		if !ok {
			return
		}
		tier, _ := httpctx.TierFromCtx(ctx)

		resp := map[string]any{
			"user_id":   claims.UserID,
			"tier":      tier.String(),
			"activated": false,
		}

		doc, err := store.Get(ctx, "users", claims.UserID)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			errResponse(ctx, fasthttp.StatusInternalServerError, "storage_error", "failed to load user record")
			return
		}
		if doc != nil {
			if at, ok := doc["activated_at"]; ok {
				resp["activated"] = true
				resp["activated_at"] = at
			}
		}

		jsonResponse(ctx, resp)
	}
}

// CheckAccess is a dry-run of the entitlement gate: given ?path=, it
// reports the required tier and whether the caller clears it. Useful
// for clients deciding whether to show upgrade prompts.
func CheckAccess(policy *entitlement.Policy) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustClaims(ctx); !ok {
			return
		}

		path := string(ctx.QueryArgs().Peek("path"))
		if path == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid_request", "path query parameter required")
			return
		}

		tier, _ := httpctx.TierFromCtx(ctx)
		jsonResponse(ctx, map[string]any{
			"path":          path,
			"required_tier": policy.RequiredTier(path).String(),
			"tier":          tier.String(),
			"allowed":       policy.CanAccess(&tier, path),
		})
	}
}
