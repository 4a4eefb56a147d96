package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// Authorize must run after Authenticate. It rejects the request with
// goSession.ErrForbidden unless the authenticated user holds one of roles.
func Authorize(engine *goSession.Engine, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc := goSession.DefaultConfig().Transport
			if engine != nil {
				tc = engine.Transport()
			}

			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				WriteError(w, r, tc, goSession.ErrForbidden)
				return
			}
			if engine == nil {
				WriteError(w, r, tc, goSession.ErrEngineNotReady)
				return
			}
			if err := engine.Authorize(r.Context(), res, roles...); err != nil {
				WriteError(w, r, tc, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
