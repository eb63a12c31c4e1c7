package gateway

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth holds the token the gateway accepts. Precedence: config
// value, then the VENTANILLA_GATEWAY_TOKEN environment variable.
type ResolvedAuth struct {
	Token string
}

// ResolveAuth resolves the gateway token from config and environment.
func ResolveAuth(configured string) ResolvedAuth {
	token := configured
	if token == "" {
		token = os.Getenv("VENTANILLA_GATEWAY_TOKEN")
	}
	return ResolvedAuth{Token: token}
}

// Authorize checks the WebSocket connect credentials against the resolved
// server auth. An unset server token disables auth; the gateway then binds
// to loopback only by default.
func Authorize(serverAuth ResolvedAuth, clientAuth *ConnectAuth) AuthResult {
	if serverAuth.Token == "" {
		return AuthResult{OK: true}
	}
	if clientAuth == nil || clientAuth.Token == "" {
		return AuthResult{OK: false, Reason: "token required"}
	}
	if !safeEqual(clientAuth.Token, serverAuth.Token) {
		return AuthResult{OK: false, Reason: "token_mismatch"}
	}
	return AuthResult{OK: true}
}

// AuthorizeBearer checks the Authorization header of an HTTP request.
func AuthorizeBearer(serverAuth ResolvedAuth, r *http.Request) AuthResult {
	if serverAuth.Token == "" {
		return AuthResult{OK: true}
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return AuthResult{OK: false, Reason: "bearer token required"}
	}
	if !safeEqual(token, serverAuth.Token) {
		return AuthResult{OK: false, Reason: "token_mismatch"}
	}
	return AuthResult{OK: true}
}

// safeEqual performs a constant-time string comparison. Length is compared
// in constant time too so the secret's length does not leak via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
