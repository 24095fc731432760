package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

type Config struct {
	Sync struct {
		SyncTimer            Timer  `json:"sync_timer"`
		MaxConcurrentDevices int    `json:"max_concurrent_devices"`
		DeviceTimeout        uint32 `json:"device_timeout"` // milliseconds
		Policy               string `json:"policy"`
	} `json:"sync"`

	Verify struct {
		Enabled    bool   `json:"enabled"`
		SampleSize int    `json:"sample_size"`
		Timeout    uint32 `json:"timeout"` // milliseconds
	} `json:"verify"`

	History struct {
		Enabled  bool   `json:"enabled"`
		Driver   string `json:"driver"` // sqlite or postgres
		DSN      string `json:"dsn"`
		KeepRuns int    `json:"keep_runs"`
	} `json:"history"`

	Server struct {
		AdminTokenHash string `json:"admin_token_hash"` // bcrypt hash; empty disables auth
	} `json:"server"`

	Redis struct {
		Enabled bool   `json:"enabled"`
		LockKey string `json:"lock_key"`
	} `json:"redis"`
}

const settingsFilePath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex
)

func init() {
	// Initialize configValue with a default Config instance
	configValue.Store(Config{})
}

func ReadSettings() {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration")

			err = os.MkdirAll("data", os.ModePerm)
			if err != nil {
				log.Error("Error creating directory for settings file:", err)
				return
			}

			err = os.WriteFile(settingsFilePath, defaultConfig, os.ModePerm)
			if err != nil {
				log.Error("Error writing default settings file:", err)
				return
			}

			data = defaultConfig
		} else {
			log.Error("Error reading settings file:", err)
			return
		}
	}

	var newConfig Config
	err = json.Unmarshal(data, &newConfig)
	if err != nil {
		log.Error("Error unmarshalling settings file:", err)
		return
	}

	if err := applyConfigUpdate(newConfig, false); err != nil {
		log.Error("Error applying configuration from settings file:", err)
		return
	}

	log.Debug("Settings file loaded successfully")
}

// SetConfig applies a new configuration and persists it to the settings file.
func SetConfig(newConfig Config) {
	if err := applyConfigUpdate(newConfig, true); err != nil {
		log.Error("Error applying configuration update:", err)
		return
	}

	log.Debug("Configuration updated and written to file successfully")
}

func applyConfigUpdate(newConfig Config, persistToFile bool) error {
	configMu.Lock()
	defer configMu.Unlock()

	applyDefaults(&newConfig)
	configValue.Store(newConfig)
	SetSyncInterval()

	if !persistToFile {
		return nil
	}

	data, err := json.MarshalIndent(newConfig, "", "  ")
	if err != nil {
		log.Error("Error marshalling new configuration:", err)
		return err
	}
	if err := os.WriteFile(settingsFilePath, data, os.ModePerm); err != nil {
		log.Error("Error writing new configuration to file:", err)
		return err
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sync.MaxConcurrentDevices <= 0 {
		cfg.Sync.MaxConcurrentDevices = 4
	}
	if cfg.Sync.DeviceTimeout == 0 {
		cfg.Sync.DeviceTimeout = 15000
	}
	if cfg.Sync.Policy == "" {
		cfg.Sync.Policy = "additive"
	}
	if cfg.Verify.SampleSize <= 0 {
		cfg.Verify.SampleSize = 5
	}
	if cfg.Verify.Timeout == 0 {
		cfg.Verify.Timeout = 3000
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "sqlite"
	}
	if cfg.History.DSN == "" && cfg.History.Driver == "sqlite" {
		cfg.History.DSN = "data/holesync.db"
	}
	if cfg.History.KeepRuns <= 0 {
		cfg.History.KeepRuns = 200
	}
	if cfg.Redis.LockKey == "" {
		cfg.Redis.LockKey = "holesync:leader:sync"
	}
}

func GetConfig() Config {
	// Get the current Config atomically
	return configValue.Load().(Config)
}
