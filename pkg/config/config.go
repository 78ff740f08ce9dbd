/*
Package config manages TOML config for typeahead services.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/typeahead/internal/utils"
)

// Config holds the entire config structure
type Config struct {
	Controller ControllerConfig `toml:"controller"`
	Provider   ProviderConfig   `toml:"provider"`
	CLI        CliConfig        `toml:"cli"`
}

// ControllerConfig has debounce controller related options.
type ControllerConfig struct {
	DelayMs int `toml:"delay_ms"`
	Limit   int `toml:"limit"`
}

// ProviderConfig holds options for the builtin trie provider.
type ProviderConfig struct {
	MinWeight int    `toml:"min_weight"`
	MaxQuery  int    `toml:"max_query"`
	SeedFile  string `toml:"seed_file"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit   int `toml:"default_limit"`
	DefaultDelayMs int `toml:"default_delay_ms"`
	WaitTimeoutMs  int `toml:"wait_timeout_ms"`
}

// Delay returns the debounce window as a duration.
func (c *ControllerConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "typeahead")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "typeahead")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/typeahead/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err = InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			DelayMs: 1000,
			Limit:   24,
		},
		Provider: ProviderConfig{
			MinWeight: 1,
			MaxQuery:  60,
			SeedFile:  "",
		},
		CLI: CliConfig{
			DefaultLimit:   10,
			DefaultDelayMs: 150,
			WaitTimeoutMs:  5000,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. A file that fails strict decoding is
// not discarded wholesale; whatever tables still parse override defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.DecodeTOML(configPath, config); err != nil {
		log.Warnf("Bad TOML in %s: %v. Salvaging valid tables...", configPath, err)
		return salvageConfig(configPath)
	}
	return config, nil
}

// salvageConfig re-decodes the file as an untyped tree and applies any
// recognizable keys on top of defaults.
func salvageConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	tree, err := utils.DecodeTOMLTree(configPath)
	if err != nil {
		log.Warnf("Nothing salvageable in %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if table, ok := utils.Section(tree, "controller"); ok {
		applyControllerTable(table, &config.Controller)
	}
	if table, ok := utils.Section(tree, "provider"); ok {
		applyProviderTable(table, &config.Provider)
	}
	if table, ok := utils.Section(tree, "cli"); ok {
		applyCliTable(table, &config.CLI)
	}
	return config, nil
}

func applyControllerTable(table map[string]any, controller *ControllerConfig) {
	if val, ok := utils.IntValue(table, "delay_ms"); ok {
		controller.DelayMs = val
	}
	if val, ok := utils.IntValue(table, "limit"); ok {
		controller.Limit = val
	}
}

func applyProviderTable(table map[string]any, provider *ProviderConfig) {
	if val, ok := utils.IntValue(table, "min_weight"); ok {
		provider.MinWeight = val
	}
	if val, ok := utils.IntValue(table, "max_query"); ok {
		provider.MaxQuery = val
	}
	if val, ok := table["seed_file"].(string); ok {
		provider.SeedFile = val
	}
}

func applyCliTable(table map[string]any, cli *CliConfig) {
	if val, ok := utils.IntValue(table, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.IntValue(table, "default_delay_ms"); ok {
		cli.DefaultDelayMs = val
	}
	if val, ok := utils.IntValue(table, "wait_timeout_ms"); ok {
		cli.WaitTimeoutMs = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the config values and saves to file
func (c *Config) Update(configPath string, delayMs, limit, minWeight *int) error {
	if delayMs != nil {
		c.Controller.DelayMs = *delayMs
	}
	if limit != nil {
		c.Controller.Limit = *limit
	}
	if minWeight != nil {
		c.Provider.MinWeight = *minWeight
	}
	return SaveConfig(c, configPath)
}
