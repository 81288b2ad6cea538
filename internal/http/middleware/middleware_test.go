package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"innerlab/internal/config"
	"innerlab/internal/docstore"
	"innerlab/internal/entitlement"
	httpctx "innerlab/internal/http/ctx"
	"innerlab/internal/identity"
)

func newRequestCtx(method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func reasonOf(t *testing.T, ctx *fasthttp.RequestCtx) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body["error"]
}

func gatePolicy() *entitlement.Policy {
	return entitlement.NewPolicy(nil, map[string]entitlement.Tier{
		"/v1/labs":          entitlement.TierFree,
		"/v1/labs/momentum": entitlement.TierBasicPaid,
	})
}

func TestRequireAccess(t *testing.T) {
	handler := RequireAccess(gatePolicy())(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	// No resolved tier on the context: unauthenticated, even though
	// the route itself is gated by tier.
	ctx := newRequestCtx("POST", "http://test/v1/labs/momentum/entries")
	handler(ctx)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.Equal(t, "unauthenticated", reasonOf(t, ctx))

	// Authenticated but under tier.
	ctx = newRequestCtx("POST", "http://test/v1/labs/momentum/entries")
	httpctx.SetTier(ctx, entitlement.TierFree)
	handler(ctx)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
	assert.Equal(t, "under_tier", reasonOf(t, ctx))

	// At tier.
	ctx = newRequestCtx("POST", "http://test/v1/labs/momentum/entries")
	httpctx.SetTier(ctx, entitlement.TierBasicPaid)
	handler(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	// Free route passes for any authenticated tier.
	ctx = newRequestCtx("POST", "http://test/v1/labs/orientation/entries")
	httpctx.SetTier(ctx, entitlement.TierFree)
	handler(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func signSession(t *testing.T, secret string, mutate func(*jwt.RegisteredClaims) jwt.Claims) string {
	t.Helper()
	rc := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "innerlab-auth",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	claims := mutate(&rc)
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestBearerAuthResolvesTierFromUserDoc(t *testing.T) {
	store := docstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), "users", "user-1", docstore.Fields{"tier": "deepening"}, false))

	verifier := identity.NewVerifier("secret", "innerlab-auth")
	token := signSession(t, "secret", func(rc *jwt.RegisteredClaims) jwt.Claims { return rc })

	var gotTier entitlement.Tier
	handler := BearerAuth(verifier, store, nil, zap.NewNop())(func(ctx *fasthttp.RequestCtx) {
		gotTier, _ = httpctx.TierFromCtx(ctx)
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	ctx := newRequestCtx("GET", "http://test/v1/me")
	ctx.Request.Header.Set("Authorization", "Bearer "+token)
	handler(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, entitlement.TierDeepening, gotTier)
}

func TestBearerAuthRejectsBadTokens(t *testing.T) {
	verifier := identity.NewVerifier("secret", "innerlab-auth")
	handler := BearerAuth(verifier, docstore.NewMemory(), nil, zap.NewNop())(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer not-a-jwt"} {
		ctx := newRequestCtx("GET", "http://test/v1/me")
		if header != "" {
			ctx.Request.Header.Set("Authorization", header)
		}
		handler(ctx)
		assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode(), "header %q", header)
		assert.Equal(t, "unauthenticated", reasonOf(t, ctx), "header %q", header)
	}
}

func TestAdminAuth(t *testing.T) {
	cfg := &config.Config{AdminUser: "admin", AdminPassword: "hunter2"}
	handler := AdminAuth(cfg)(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	ctx := newRequestCtx("GET", "http://test/admin/healthz")
	handler(ctx)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = newRequestCtx("GET", "http://test/admin/healthz")
	ctx.Request.Header.Set("Authorization",
		"Basic "+base64.StdEncoding.EncodeToString([]byte("admin:wrong")))
	handler(ctx)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = newRequestCtx("GET", "http://test/admin/healthz")
	ctx.Request.Header.Set("Authorization",
		"Basic "+base64.StdEncoding.EncodeToString([]byte("admin:hunter2")))
	handler(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestAdminAuthDisabledWithoutPassword(t *testing.T) {
	cfg := &config.Config{AdminUser: "admin"}
	handler := AdminAuth(cfg)(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	ctx := newRequestCtx("GET", "http://test/admin/healthz")
	ctx.Request.Header.Set("Authorization",
		"Basic "+base64.StdEncoding.EncodeToString([]byte("admin:")))
	handler(ctx)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
	assert.Equal(t, "admin_disabled", reasonOf(t, ctx))
}
