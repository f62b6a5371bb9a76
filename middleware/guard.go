// Package middleware adapts the authentication engine to net/http: token
// extraction from requests and a guard that gates protected handlers.
package middleware

import (
	"context"
	"net/http"

	authcore "github.com/tradegate/authcore"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims stored by [Guard].
func ClaimsFromContext(ctx context.Context) (*authcore.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.Claims)
	return claims, ok
}

// Guard rejects requests that do not carry a valid, unrevoked access token.
// Verified claims are attached to the request context for downstream
// handlers. All rejections are a bare 401; the reason stays server-side.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			access, _ := ExtractTokens(r)
			if access == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := engine.VerifyToken(r.Context(), access)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
