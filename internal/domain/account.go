package domain

// Account error codes reported alongside connected=false.
const (
	AccountErrNoCredentials    = "no_credentials"    // No API key/secret configured
	AccountErrConnectionFailed = "connection_failed" // Exchange request failed
)

// AccountState is the account panel payload: balances plus open positions.
// When the exchange path is unavailable the demo balances are served with
// Connected=false and an error code explaining why.
type AccountState struct {
	Connected        bool       `json:"connected"`        // Whether the data came from the live exchange
	TotalBalance     float64    `json:"totalBalance"`     // Total wallet balance in quote asset
	AvailableBalance float64    `json:"availableBalance"` // Balance not locked as position margin
	UnrealizedProfit float64    `json:"unrealizedProfit"` // Sum of open-position unrealized P&L
	Positions        []Position `json:"positions"`        // Open positions, zero-quantity rows excluded
	Error            string     `json:"error,omitempty"`  // no_credentials or connection_failed
}
