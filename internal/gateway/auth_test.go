package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldline/iotops/internal/config"
)

func TestResolveAuthFromConfig(t *testing.T) {
	auth := ResolveAuth(config.GatewayConfig{
		Capabilities: config.Capabilities{Auth: true},
		Auth:         config.GatewayAuth{Token: "my-token"},
	})
	assert.True(t, auth.Enabled)
	assert.Equal(t, "my-token", auth.Token)
}

func TestResolveAuthEnvFallback(t *testing.T) {
	t.Setenv("IOTOPS_GATEWAY_TOKEN", "env-token")
	auth := ResolveAuth(config.GatewayConfig{
		Capabilities: config.Capabilities{Auth: true},
	})
	assert.Equal(t, "env-token", auth.Token)
}

func TestResolveAuthConfigWinsOverEnv(t *testing.T) {
	t.Setenv("IOTOPS_GATEWAY_TOKEN", "env-token")
	auth := ResolveAuth(config.GatewayConfig{
		Auth: config.GatewayAuth{Token: "cfg-token"},
	})
	assert.Equal(t, "cfg-token", auth.Token)
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name   string
		server ResolvedAuth
		client *ConnectAuth
		ok     bool
		reason string
	}{
		{
			name:   "disabled accepts anything",
			server: ResolvedAuth{Enabled: false},
			client: nil,
			ok:     true,
		},
		{
			name:   "disabled ignores credentials",
			server: ResolvedAuth{Enabled: false, Token: "secret"},
			client: &ConnectAuth{Token: "wrong"},
			ok:     true,
		},
		{
			name:   "matching token",
			server: ResolvedAuth{Enabled: true, Token: "secret"},
			client: &ConnectAuth{Token: "secret"},
			ok:     true,
		},
		{
			name:   "wrong token",
			server: ResolvedAuth{Enabled: true, Token: "secret"},
			client: &ConnectAuth{Token: "wrong"},
			ok:     false,
			reason: "token_mismatch",
		},
		{
			name:   "missing credentials",
			server: ResolvedAuth{Enabled: true, Token: "secret"},
			client: nil,
			ok:     false,
			reason: "token required",
		},
		{
			name:   "server not configured",
			server: ResolvedAuth{Enabled: true},
			client: &ConnectAuth{Token: "anything"},
			ok:     false,
			reason: "server token not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Authorize(tt.server, tt.client)
			assert.Equal(t, tt.ok, result.OK)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("abc", "abc"))
	assert.False(t, safeEqual("abc", "abd"))
	assert.False(t, safeEqual("abc", "abcd"))
	assert.False(t, safeEqual("", "abc"))
	assert.True(t, safeEqual("", ""))
}
