package middleware

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// CookieSink writes credentials as HttpOnly cookies with the attributes in
// the transport config.
type CookieSink struct {
	w  http.ResponseWriter
	tc goSession.TransportConfig
}

// NewCookieSink returns a goSession.CredentialSink backed by w.
func NewCookieSink(w http.ResponseWriter, tc goSession.TransportConfig) *CookieSink {
	return &CookieSink{w: w, tc: tc}
}

// SetCredential sets a cookie that expires after maxAge.
func (s *CookieSink) SetCredential(name, value string, maxAge time.Duration) {
	http.SetCookie(s.w, s.cookie(name, value, int(maxAge/time.Second)))
}

// ClearCredential expires the cookie immediately.
func (s *CookieSink) ClearCredential(name string) {
	c := s.cookie(name, "", -1)
	c.Expires = time.Unix(0, 0)
	http.SetCookie(s.w, c)
}

func (s *CookieSink) cookie(name, value string, maxAge int) *http.Cookie {
	path := s.tc.CookiePath
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.tc.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.tc.SecureCookies,
		SameSite: s.tc.SameSite,
	}
}
