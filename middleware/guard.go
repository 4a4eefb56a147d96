package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by Authenticate.
func AuthResultFromContext(ctx context.Context) (*goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSession.AuthResult)
	return res, ok && res != nil
}

// Authenticate verifies the request's credentials and, when the access token
// has expired, rotates them through response cookies before calling next.
func Authenticate(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, r, goSession.DefaultConfig().Transport, goSession.ErrEngineNotReady)
				return
			}

			tc := engine.Transport()
			ctx := RequestContext(r, tc)

			req := goSession.AuthRequest{
				AccessToken:  accessToken(r, tc),
				RefreshToken: credentialValue(r, tc.RefreshName),
			}

			res, err := engine.Authenticate(ctx, req, NewCookieSink(w, tc))
			if err != nil {
				WriteError(w, r, tc, err)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestContext attaches client IP, client id and user agent from r to its
// context, for throttling and audit.
func RequestContext(r *http.Request, tc goSession.TransportConfig) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = goSession.WithClientIP(ctx, ip)
	}
	if id := r.Header.Get(tc.ClientIDHeader); id != "" {
		ctx = goSession.WithClientID(ctx, id)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = goSession.WithUserAgent(ctx, ua)
	}
	return ctx
}

func accessToken(r *http.Request, tc goSession.TransportConfig) string {
	if c, err := r.Cookie(tc.AccessName); err == nil && c.Value != "" {
		return stripBearer(c.Value)
	}
	return stripBearer(r.Header.Get(tc.AccessName))
}

func credentialValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get(name))
}

func stripBearer(value string) string {
	value = strings.TrimSpace(value)
	if token, ok := bearerToken(value); ok {
		return token
	}
	return value
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
