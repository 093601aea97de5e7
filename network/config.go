package network

import "fmt"

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
	Network  string `json:"network"`
}

// NetworkPresets are local-node defaults. Mainnet has none so that a
// custody key is never pointed at a node by accident.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "lottery", Password: "lottery"},
	"testnet": {URL: "http://localhost:18333", User: "lottery", Password: "lottery"},
}

// ResolveConfig layers the configured values over the network preset.
// Empty values never override.
func ResolveConfig(configured *RPCConfig, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}
	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if configured != nil {
		set(&result.URL, configured.URL)
		set(&result.User, configured.User)
		set(&result.Password, configured.Password)
	}

	if result.URL == "" {
		return nil, fmt.Errorf("network: %s requires an RPC url (rpc_url in the config file or --rpc-url)", network)
	}
	return &result, nil
}
