package middleware

import (
	"net/http"
	"strings"
)

// Cookie names used by server-rendered callers that keep tokens in
// HTTP-only cookies rather than an Authorization header.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

// ExtractTokens pulls the access and refresh tokens off a request. The
// Authorization header wins for the access token; cookies are the fallback.
// Either value may be empty.
func ExtractTokens(r *http.Request) (access, refresh string) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		access = token
	} else if c, err := r.Cookie(CookieAccessToken); err == nil {
		access = c.Value
	}

	if c, err := r.Cookie(CookieRefreshToken); err == nil {
		refresh = c.Value
	}

	return access, refresh
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
