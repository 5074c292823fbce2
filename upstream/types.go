package upstream

import "time"

// Config configures how the HTTPClient reaches the upstream embedding
// service.
type Config struct {
	// Endpoint is the base URL of the upstream service, e.g.
	// "https://api.example.com". The client posts to Endpoint+"/embed".
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// APIKey is sent as a Bearer token, if set.
	APIKey string `yaml:"api_key" json:"api_key"`
	// Timeout bounds a single upstream call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns sensible defaults for the upstream client.
func DefaultConfig() Config {
	return Config{
		Endpoint: "http://localhost:8081",
		Timeout:  10 * time.Second,
	}
}

// embedRequest mirrors the proxy's own ingress body shape, per the wire
// compatibility requirement: upstream speaks the same protocol the proxy
// exposes to its own callers.
type embedRequest struct {
	Inputs []string `json:"inputs"`
}
