package eventbus

// Event types published by the bot.
const (
	// TypeSettingsChanged carries a SettingsChanged payload.
	TypeSettingsChanged = "garden.settings_changed"
	// TypeConfigReloaded carries no payload.
	TypeConfigReloaded = "config.reloaded"
)

// SettingsChanged is published once per field a user changed.
type SettingsChanged struct {
	UserID    int64
	ChatID    int64
	Field     string
	Value     string
	RequestID string
}
