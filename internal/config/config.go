package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// DefaultSlot is the snapshot slot holding the receipt collection.
const DefaultSlot = "agentic-finance-receipts"

// StorageConfig selects where the receipt snapshot lives.
type StorageConfig struct {
	Backend string
	Path    string
	Slot    string
}

// DefaultStorageConfig returns the built-in storage settings.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend: BackendSQLite,
		Path:    "$HOME/.local/share/receipts/receipts.db",
		Slot:    DefaultSlot,
	}
}

// Validate checks the storage settings.
func (c StorageConfig) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("%w: storage.backend must be %q or %q, got %q",
			common.ErrInvalidConfig, BackendSQLite, BackendFile, c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("%w: storage.path", common.ErrMissingConfig)
	}
	if strings.TrimSpace(c.Slot) == "" {
		return fmt.Errorf("%w: storage.slot", common.ErrMissingConfig)
	}
	return nil
}

// CaptureConfig configures capture sessions and the inbox watcher.
type CaptureConfig struct {
	Delay   time.Duration
	Inbox   string
	Workers int
}

// DefaultCaptureConfig returns the built-in capture settings.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Delay:   1800 * time.Millisecond,
		Workers: 2,
	}
}

// Validate checks the capture settings.
func (c CaptureConfig) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("%w: capture.delay must not be negative", common.ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: capture.workers must be at least 1", common.ErrInvalidConfig)
	}
	return nil
}

// VoiceConfig configures the voice assistant.
type VoiceConfig struct {
	Currency string
	Speak    bool
}

// DefaultVoiceConfig returns the built-in voice settings.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{Currency: "INR", Speak: true}
}

// Validate checks the voice settings.
func (c VoiceConfig) Validate() error {
	if len(c.Currency) != 3 {
		return fmt.Errorf("%w: voice.currency must be a 3-letter code, got %q", common.ErrInvalidConfig, c.Currency)
	}
	return nil
}

// LoadStorageConfig loads storage settings. It follows this precedence:
// 1. Viper configuration (from config file or RECEIPTS_ env vars)
// 2. Direct environment variables (RECEIPTS_DB)
// 3. Default values
func LoadStorageConfig() (*StorageConfig, error) {
	config := DefaultStorageConfig()

	if v := viper.GetString("storage.backend"); v != "" {
		config.Backend = strings.ToLower(v)
	}
	if v := viper.GetString("storage.slot"); v != "" {
		config.Slot = v
	}
	if v := viper.GetString("storage.path"); v != "" {
		config.Path = v
	} else if v := os.Getenv("RECEIPTS_DB"); v != "" {
		config.Path = v
	} else if config.Backend == BackendFile {
		config.Path = "$HOME/.local/share/receipts"
	}
	config.Path = ExpandPath(config.Path)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadCaptureConfig loads capture settings with the same precedence as
// LoadStorageConfig. The inbox falls back to RECEIPTS_INBOX.
func LoadCaptureConfig() (*CaptureConfig, error) {
	config := DefaultCaptureConfig()

	if viper.IsSet("capture.delay") {
		config.Delay = viper.GetDuration("capture.delay")
	}
	if viper.IsSet("capture.workers") {
		config.Workers = viper.GetInt("capture.workers")
	}
	if v := viper.GetString("capture.inbox"); v != "" {
		config.Inbox = v
	} else {
		config.Inbox = os.Getenv("RECEIPTS_INBOX")
	}
	config.Inbox = ExpandPath(config.Inbox)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadVoiceConfig loads voice assistant settings.
func LoadVoiceConfig() (*VoiceConfig, error) {
	config := DefaultVoiceConfig()

	if v := viper.GetString("voice.currency"); v != "" {
		config.Currency = strings.ToUpper(v)
	}
	if viper.IsSet("voice.speak") {
		config.Speak = viper.GetBool("voice.speak")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
