package config

import "github.com/spf13/viper"

// NotifierConfig configures the optional Telegram notifier. Chats maps a user
// ID to the Telegram chat that should receive that user's notifications.
// An empty token disables the notifier entirely.
type NotifierConfig struct {
	Token string           `mapstructure:"token"`
	Chats map[string]int64 `mapstructure:"chats"`
}

func (config NotifierConfig) bindEnvironmentVariables() error {
	return viper.BindEnv("notifier.token", "NOTIFIER_TOKEN")
}
