package gateway

import (
	"crypto/subtle"
	"os"

	"github.com/fieldline/iotops/internal/config"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth holds the gateway's resolved authentication settings.
// When Enabled is false every connect succeeds without credentials.
type ResolvedAuth struct {
	Enabled bool
	Token   string
}

// ResolveAuth resolves the shared token from config and environment.
// Precedence: config value, then IOTOPS_GATEWAY_TOKEN.
func ResolveAuth(gw config.GatewayConfig) ResolvedAuth {
	auth := ResolvedAuth{Enabled: gw.Capabilities.Auth}
	auth.Token = gw.Auth.Token
	if auth.Token == "" {
		auth.Token = os.Getenv("IOTOPS_GATEWAY_TOKEN")
	}
	return auth
}

// Authorize checks the connect credentials against the resolved auth.
func Authorize(serverAuth ResolvedAuth, clientAuth *ConnectAuth) AuthResult {
	if !serverAuth.Enabled {
		return AuthResult{OK: true}
	}
	if serverAuth.Token == "" {
		return AuthResult{OK: false, Reason: "server token not configured"}
	}
	if clientAuth == nil || clientAuth.Token == "" {
		return AuthResult{OK: false, Reason: "token required"}
	}
	if !safeEqual(clientAuth.Token, serverAuth.Token) {
		return AuthResult{OK: false, Reason: "token_mismatch"}
	}
	return AuthResult{OK: true}
}

// safeEqual performs a constant-time string comparison, avoiding an
// early return on length mismatch so the secret's length does not leak
// via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
