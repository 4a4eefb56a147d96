package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// ErrorBody is the JSON error shape for API paths.
type ErrorBody struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Next    string `json:"next,omitempty"`
}

// WriteError answers r with err. Paths under tc.APIPrefix get JSON with an
// action hint when the caller must log in again. Other paths that need a
// login are redirected to tc.LoginPath with a next parameter.
func WriteError(w http.ResponseWriter, r *http.Request, tc goSession.TransportConfig, err error) {
	code := goSession.StatusCode(err)
	next := r.URL.RequestURI()
	loginRequired := goSession.LoginRequired(err)

	if !isAPIRequest(r, tc) {
		if loginRequired {
			http.Redirect(w, r, tc.LoginPath+"?next="+url.QueryEscape(next), http.StatusSeeOther)
			return
		}
		http.Error(w, http.StatusText(code), code)
		return
	}

	body := ErrorBody{
		Status:  "error",
		Code:    code,
		Message: publicMessage(code, err),
	}
	if loginRequired {
		body.Action = goSession.ActionLoginRequired
		body.Next = next
	}

	WriteJSON(w, code, body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func isAPIRequest(r *http.Request, tc goSession.TransportConfig) bool {
	return tc.APIPrefix != "" && strings.HasPrefix(r.URL.Path, tc.APIPrefix)
}

func publicMessage(code int, err error) string {
	if code >= http.StatusInternalServerError {
		return http.StatusText(code)
	}
	return err.Error()
}
