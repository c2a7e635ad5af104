// Package config loads the bot settings from an optional YAML file, a .env
// file and the process environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DefaultStorePath   = "quiz_questions.json"
	DefaultPollTimeout = 60
)

// Config holds everything the bot needs to start.
type Config struct {
	Token       string `yaml:"token"`
	ChannelID   string `yaml:"channel_id"`
	StorePath   string `yaml:"store_path"`
	Debug       bool   `yaml:"debug"`
	Env         string `yaml:"env"`
	PollTimeout int    `yaml:"poll_timeout"`
}

// Destination is the channel polls are sent to: a numeric chat id or a
// public @username.
type Destination struct {
	ChatID   int64
	Username string
}

func (d Destination) String() string {
	if d.Username != "" {
		return d.Username
	}
	return strconv.FormatInt(d.ChatID, 10)
}

func Default() *Config {
	return &Config{
		StorePath:   DefaultStorePath,
		Env:         EnvLocal,
		PollTimeout: DefaultPollTimeout,
	}
}

// Load builds the config. The YAML file named by BOT_CONFIG_FILE is read
// first, then envFile is loaded into the environment without overriding
// variables that are already set, then the environment is applied. A missing
// envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Token = v
	}
	if v := getenv("TELEGRAM_CHANNEL_ID"); v != "" {
		c.ChannelID = v
	}
	if v := getenv("QUIZ_STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := getenv("APP_ENV"); v != "" {
		c.Env = v
	}
	if v := getenv("BOT_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BOT_DEBUG: %w", err)
		}
		c.Debug = debug
	}
	if v := getenv("BOT_POLL_TIMEOUT"); v != "" {
		timeout, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOT_POLL_TIMEOUT: %w", err)
		}
		c.PollTimeout = timeout
	}
	return nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.ChannelID == "" {
		errs = append(errs, errors.New("TELEGRAM_CHANNEL_ID is required"))
	} else if _, err := c.Destination(); err != nil {
		errs = append(errs, err)
	}
	if c.StorePath == "" {
		errs = append(errs, errors.New("store path is empty"))
	}
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}
	if c.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("poll timeout must be positive, got %d", c.PollTimeout))
	}
	return errors.Join(errs...)
}

// Destination parses ChannelID.
func (c *Config) Destination() (Destination, error) {
	id := strings.TrimSpace(c.ChannelID)
	if strings.HasPrefix(id, "@") {
		if len(id) == 1 {
			return Destination{}, errors.New("TELEGRAM_CHANNEL_ID: empty channel username")
		}
		return Destination{Username: id}, nil
	}
	chatID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Destination{}, fmt.Errorf("TELEGRAM_CHANNEL_ID: want a chat id or @username, got %q", c.ChannelID)
	}
	return Destination{ChatID: chatID}, nil
}
