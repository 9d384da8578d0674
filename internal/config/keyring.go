package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "codebot"
	keyringUser    = "telegram-bot-token"
)

// ResolveToken fills Telegram.Token from the OS keyring when neither the
// file nor the environment set it. A missing keyring entry is not an error.
func (c *Config) ResolveToken() error {
	if c.Telegram.Token != "" {
		return nil
	}
	token, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		// Headless hosts often have no secret service; the token may come later.
		slog.Debug("keyring unavailable", "error", err)
		return nil
	}
	c.Telegram.Token = token
	return nil
}

// StoreToken saves the bot token in the OS keyring.
func StoreToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// DeleteToken removes the stored bot token.
func DeleteToken() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
