package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkPresets(t *testing.T) {
	tests := []struct {
		network string
		url     string
	}{
		{"regtest", "http://localhost:18332"},
		{"testnet", "http://localhost:18333"},
	}
	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			preset, ok := NetworkPresets[tt.network]
			require.True(t, ok)
			assert.Equal(t, tt.url, preset.URL)
			assert.Equal(t, "lottery", preset.User)
		})
	}
	_, ok := NetworkPresets["mainnet"]
	assert.False(t, ok, "mainnet must be configured explicitly")
}

func TestResolveConfig(t *testing.T) {
	tests := []struct {
		name       string
		configured *RPCConfig
		network    string
		wantURL    string
		wantUser   string
		wantPass   string
	}{
		{
			name:     "preset only",
			network:  "regtest",
			wantURL:  "http://localhost:18332",
			wantUser: "lottery",
			wantPass: "lottery",
		},
		{
			name:       "configured over preset",
			configured: &RPCConfig{URL: "http://node:9999", Password: "secret"},
			network:    "testnet",
			wantURL:    "http://node:9999",
			wantUser:   "lottery",
			wantPass:   "secret",
		},
		{
			name:       "mainnet explicit",
			configured: &RPCConfig{URL: "http://main:8332", User: "u", Password: "p"},
			network:    "mainnet",
			wantURL:    "http://main:8332",
			wantUser:   "u",
			wantPass:   "p",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ResolveConfig(tt.configured, tt.network)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, cfg.URL)
			assert.Equal(t, tt.wantUser, cfg.User)
			assert.Equal(t, tt.wantPass, cfg.Password)
			assert.Equal(t, tt.network, cfg.Network)
		})
	}
}

func TestResolveConfigMainnetRequiresExplicit(t *testing.T) {
	_, err := ResolveConfig(&RPCConfig{User: "u"}, "mainnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mainnet")
	assert.Contains(t, err.Error(), "rpc_url")
}
