package app

import "github.com/algrsh400-debug/ser/internal/domain"

// Credentials is the resolved exchange API credential set.
type Credentials struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// Configured reports whether the credentials are complete enough to sign
// exchange requests.
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// ResolveCredentials picks the effective credentials: an explicit settings
// value wins, the environment-provided fallback fills the gaps. The testnet
// flag always follows the settings (they are seeded from the environment at
// startup, so the override order still holds).
func ResolveCredentials(s domain.BotSettings, env Credentials) Credentials {
	out := Credentials{
		APIKey:    s.APIKey,
		APISecret: s.APISecret,
		Testnet:   s.Testnet,
	}
	if out.APIKey == "" {
		out.APIKey = env.APIKey
	}
	if out.APISecret == "" {
		out.APISecret = env.APISecret
	}
	return out
}
