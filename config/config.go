// Package config builds bots from yaml config files, with credential
// overrides from the environment.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	ttbot "github.com/nmalaguti/Turntable-API-sharp"
)

// Config is the on-disk configuration for a single bot.
type Config struct {
	Bot ttbot.BotConfig `yaml:"Bot"`
}

// Environment variables that override the corresponding config fields, so
// credentials can be kept out of the config file.
const (
	EnvUserID   = "TTBOT_USERID"
	EnvUserAuth = "TTBOT_USERAUTH"
	EnvRoomID   = "TTBOT_ROOMID"
)

func configFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := &Config{}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, err
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv(EnvUserID); v != "" {
		c.Bot.UserID = v
	}
	if v := os.Getenv(EnvUserAuth); v != "" {
		c.Bot.UserAuth = v
	}
	if v := os.Getenv(EnvRoomID); v != "" {
		c.Bot.RoomID = v
	}
}

func botFromConfig(c *Config) (*ttbot.Bot, error) {
	return ttbot.New(c.Bot)
}

// BotFromCfgFile reads a yaml config, applies environment overrides, and
// constructs the bot.
func BotFromCfgFile(path string) (*ttbot.Bot, error) {
	cfg, err := configFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return botFromConfig(cfg)
}
