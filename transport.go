package goSession

import "time"

// Fixed names of the request and response channels. The access and refresh
// names are used both as cookie names and as header names.
const (
	AccessCredentialName  = "authorization"
	RefreshCredentialName = "x-rtoken-id"
	ClientIDHeader        = "x-client-id"
	APIKeyHeader          = "x-api-key"
)

// ActionLoginRequired is the machine-readable hint for responses that must
// send the caller back through login.
const ActionLoginRequired = "LOGIN_REQUIRED"

// CredentialSink is the response side of the transport. Implementations are
// expected to deliver values as HttpOnly, Secure, SameSite=Strict cookies.
type CredentialSink interface {
	SetCredential(name, value string, maxAge time.Duration)
	ClearCredential(name string)
}

// AuthRequest carries the tokens extracted from one request. Either may be
// empty; phase two only reads RefreshToken when the access token has expired.
type AuthRequest struct {
	AccessToken  string
	RefreshToken string
}

// EmitTokens sets both credentials on sink with their class lifetimes.
func (e *Engine) EmitTokens(sink CredentialSink, tokens TokenPair) {
	if sink == nil {
		return
	}
	sink.SetCredential(e.config.Transport.AccessName, tokens.AccessToken, e.config.JWT.AccessTTL)
	sink.SetCredential(e.config.Transport.RefreshName, tokens.RefreshToken, e.config.JWT.RefreshTTL)
}

// ClearTokens removes both credentials from sink.
func (e *Engine) ClearTokens(sink CredentialSink) {
	if sink == nil {
		return
	}
	sink.ClearCredential(e.config.Transport.AccessName)
	sink.ClearCredential(e.config.Transport.RefreshName)
}

// Transport returns the configured transport names and cookie attributes.
func (e *Engine) Transport() TransportConfig {
	return e.config.Transport
}
