package middleware

import (
	"bytes"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"innerlab/internal/cache"
	"innerlab/internal/docstore"
	"innerlab/internal/entitlement"
	httpctx "innerlab/internal/http/ctx"
	"innerlab/internal/identity"
)

// BearerAuth verifies the session token from the external identity
// provider, resolves the caller's effective tier (claims merged with
// the stored user document, founder override first), and sets both on
// the request context. Tier gating itself happens in RequireAccess.
func BearerAuth(verifier *identity.Verifier, store docstore.Store, tiers *cache.TierCache, log *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			auth := ctx.Request.Header.Peek("Authorization")
			if len(auth) == 0 {
				writeReason(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "missing Authorization header")
				return
			}

			const prefix = "Bearer "
			if !bytes.HasPrefix(auth, []byte(prefix)) {
				writeReason(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "invalid Authorization header")
				return
			}

			token := strings.TrimSpace(string(auth[len(prefix):]))
			if token == "" {
				writeReason(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "empty bearer token")
				return
			}

			claims, err := verifier.Parse(token)
			if err != nil {
				writeReason(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "invalid session token")
				return
			}

			tier, ok := tiers.Get(ctx, claims.UserID)
			if !ok {
				rec := entitlement.UserRecord{
					Founder:    claims.Founder,
					TierLabel:  claims.TierLabel,
					LegacyPlan: claims.LegacyPlan,
				}

				doc, err := store.Get(ctx, "users", claims.UserID)
				if err != nil && !errors.Is(err, docstore.ErrNotFound) {
					log.Error("user document read failed",
						zap.String("user_id", claims.UserID),
						zap.Error(err))
					writeReason(ctx, fasthttp.StatusInternalServerError, "storage_error", "failed to load user record")
					return
				}
				if doc != nil {
					if v, ok := doc["founder"].(bool); ok && v {
						rec.Founder = true
					}
					if v, ok := doc["tier"].(string); ok && v != "" {
						rec.TierLabel = v
					}
					if v, ok := doc["plan"].(string); ok && v != "" {
						rec.LegacyPlan = v
					}
				}

				tier = entitlement.ResolveTier(rec)
				tiers.Put(ctx, claims.UserID, tier)
			}

			httpctx.SetClaims(ctx, &claims)
			httpctx.SetTier(ctx, tier)
			next(ctx)
		}
	}
}
