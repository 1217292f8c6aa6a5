package domain

import "strings"

// BotSettings holds the dashboard configuration: exchange credentials,
// trading parameters and notification targets. Secrets are stored unmasked
// and must be masked with Masked before leaving the process.
type BotSettings struct {
	APIKey             string   `json:"apiKey"`             // Exchange API key
	APISecret          string   `json:"apiSecret"`          // Exchange API secret
	Testnet            bool     `json:"testnet"`            // Route requests to the exchange testnet
	TradingPairs       []string `json:"tradingPairs"`       // Display symbols the bot watches (e.g., "BTC/USDT")
	Leverage           int      `json:"leverage"`           // Default leverage for new positions
	RiskPerTrade       float64  `json:"riskPerTrade"`       // Fraction of balance risked per trade
	StopLossPercent    float64  `json:"stopLossPercent"`    // Default stop-loss distance in percent
	TakeProfitPercent  float64  `json:"takeProfitPercent"`  // Default take-profit distance in percent
	AutoTradingEnabled bool     `json:"autoTradingEnabled"` // Whether the auto-trading loop is running
	BotActive          bool     `json:"botActive"`          // Master switch for the bot
	TelegramBotToken   string   `json:"telegramBotToken"`   // Telegram bot token for notifications
	TelegramChatID     string   `json:"telegramChatId"`     // Telegram chat the notifications go to
	NotifyOnTrade      bool     `json:"notifyOnTrade"`      // Send a notification on every trade event
}

// SettingsUpdate is a partial settings change. Nil fields are left untouched,
// and secret fields whose value is still masked are discarded so that a
// round-tripped settings form never overwrites a stored secret.
type SettingsUpdate struct {
	APIKey             *string   `json:"apiKey"`
	APISecret          *string   `json:"apiSecret"`
	Testnet            *bool     `json:"testnet"`
	TradingPairs       *[]string `json:"tradingPairs"`
	Leverage           *int      `json:"leverage"`
	RiskPerTrade       *float64  `json:"riskPerTrade"`
	StopLossPercent    *float64  `json:"stopLossPercent"`
	TakeProfitPercent  *float64  `json:"takeProfitPercent"`
	AutoTradingEnabled *bool     `json:"autoTradingEnabled"`
	BotActive          *bool     `json:"botActive"`
	TelegramBotToken   *string   `json:"telegramBotToken"`
	TelegramChatID     *string   `json:"telegramChatId"`
	NotifyOnTrade      *bool     `json:"notifyOnTrade"`
}

// Apply merges the update into s. Secret fields carrying a masked value are
// treated as "unchanged".
func (u SettingsUpdate) Apply(s *BotSettings) {
	if u.APIKey != nil && !IsMaskedSecret(*u.APIKey) {
		s.APIKey = *u.APIKey
	}
	if u.APISecret != nil && !IsMaskedSecret(*u.APISecret) {
		s.APISecret = *u.APISecret
	}
	if u.Testnet != nil {
		s.Testnet = *u.Testnet
	}
	if u.TradingPairs != nil {
		s.TradingPairs = append([]string(nil), (*u.TradingPairs)...)
	}
	if u.Leverage != nil {
		s.Leverage = *u.Leverage
	}
	if u.RiskPerTrade != nil {
		s.RiskPerTrade = *u.RiskPerTrade
	}
	if u.StopLossPercent != nil {
		s.StopLossPercent = *u.StopLossPercent
	}
	if u.TakeProfitPercent != nil {
		s.TakeProfitPercent = *u.TakeProfitPercent
	}
	if u.AutoTradingEnabled != nil {
		s.AutoTradingEnabled = *u.AutoTradingEnabled
	}
	if u.BotActive != nil {
		s.BotActive = *u.BotActive
	}
	if u.TelegramBotToken != nil && !IsMaskedSecret(*u.TelegramBotToken) {
		s.TelegramBotToken = *u.TelegramBotToken
	}
	if u.TelegramChatID != nil {
		s.TelegramChatID = *u.TelegramChatID
	}
	if u.NotifyOnTrade != nil {
		s.NotifyOnTrade = *u.NotifyOnTrade
	}
}

// Masked returns a copy of the settings with every secret field replaced by
// its masked form. Trading pairs are copied so callers cannot mutate the
// stored slice.
func (s BotSettings) Masked() BotSettings {
	out := s
	out.APIKey = MaskSecret(s.APIKey)
	out.APISecret = MaskSecret(s.APISecret)
	out.TelegramBotToken = MaskSecret(s.TelegramBotToken)
	out.TradingPairs = append([]string(nil), s.TradingPairs...)
	return out
}

// MaskSecret hides a secret, keeping the last 4 characters as a hint.
// Short secrets are fully masked and empty ones stay empty.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// IsMaskedSecret reports whether v looks like the output of MaskSecret rather
// than a newly entered secret. Real exchange credentials never contain '*'.
func IsMaskedSecret(v string) bool {
	return strings.Contains(v, "*")
}
