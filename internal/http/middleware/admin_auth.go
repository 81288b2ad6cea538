package middleware

import (
	"bytes"
	"encoding/base64"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"innerlab/internal/config"
)

// AdminAuth protects the /admin endpoints with HTTP basic auth against
// the operator credentials from config. Admin access is disabled when
// no password is configured.
func AdminAuth(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	var hash []byte
	if cfg.AdminPassword != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err == nil {
			hash = h
		}
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if hash == nil {
				writeReason(ctx, fasthttp.StatusForbidden, "admin_disabled", "admin access is not configured")
				return
			}

			user, pass, ok := basicAuth(ctx)
			if !ok || user != cfg.AdminUser ||
				bcrypt.CompareHashAndPassword(hash, []byte(pass)) != nil {
				ctx.Response.Header.Set("WWW-Authenticate", `Basic realm="innerlab admin"`)
				writeReason(ctx, fasthttp.StatusUnauthorized, "unauthenticated", "admin credentials required")
				return
			}

			next(ctx)
		}
	}
}

func basicAuth(ctx *fasthttp.RequestCtx) (user, pass string, ok bool) {
	auth := ctx.Request.Header.Peek("Authorization")
	const prefix = "Basic "
	if !bytes.HasPrefix(auth, []byte(prefix)) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(string(auth[len(prefix):]))
	if err != nil {
		return "", "", false
	}
	i := bytes.IndexByte(decoded, ':')
	if i < 0 {
		return "", "", false
	}
	return string(decoded[:i]), string(decoded[i+1:]), true
}
