package ctx

import (
	"github.com/valyala/fasthttp"

	"innerlab/internal/entitlement"
	"innerlab/internal/identity"
)

const (
	ClaimsKey = "claims"
	TierKey   = "tier"
)

func SetClaims(ctx *fasthttp.RequestCtx, claims *identity.Claims) {
	ctx.SetUserValue(ClaimsKey, claims)
}

func ClaimsFromCtx(ctx *fasthttp.RequestCtx) (*identity.Claims, bool) {
	v := ctx.UserValue(ClaimsKey)
	if v == nil {
		return nil, false
	}
	c, ok := v.(*identity.Claims)
	return c, ok
}

func SetTier(ctx *fasthttp.RequestCtx, tier entitlement.Tier) {
	ctx.SetUserValue(TierKey, tier)
}

// TierFromCtx returns the caller's resolved tier. Absent for
// unauthenticated requests.
func TierFromCtx(ctx *fasthttp.RequestCtx) (entitlement.Tier, bool) {
	v := ctx.UserValue(TierKey)
	if v == nil {
		return entitlement.TierFree, false
	}
	t, ok := v.(entitlement.Tier)
	return t, ok
}
