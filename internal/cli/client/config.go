package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GlobalConfig is the CLI's stored session in config.json
type GlobalConfig struct {
	APIURL   string `json:"api_url"`
	APIToken string `json:"api_token,omitempty"`
	CRMID    string `json:"crm_id,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "orderdesk"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads and parses the global config.json file
// Returns nil config (not error) if file doesn't exist
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UpdateGlobalConfig loads the stored config, applies update and saves it.
func UpdateGlobalConfig(update func(*GlobalConfig)) error {
	config, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if config == nil {
		config = &GlobalConfig{}
	}
	update(config)
	return SaveGlobalConfig(config)
}

// DeleteGlobalConfig removes the config.json file
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete config file: %w", err)
	}

	return nil
}

// CredentialSource represents where credentials came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnvFile      CredentialSource = "env_file"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// GetCredentialSource returns where the API token comes from and the token
// and URL to use. Checks in order: flag -> env_file -> global_config -> none.
// The URL follows the same cascade independently and falls back to the
// default.
func GetCredentialSource(flagToken, flagURL string) (CredentialSource, string, string) {
	var global *GlobalConfig
	if config, err := LoadGlobalConfig(); err == nil && config != nil {
		global = config
	}

	apiURL := flagURL
	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" && global != nil {
		apiURL = global.APIURL
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if flagToken != "" {
		return SourceFlag, flagToken, apiURL
	}
	if tok := os.Getenv(envAPIToken); tok != "" {
		return SourceEnvFile, tok, apiURL
	}
	if global != nil && global.APIToken != "" {
		return SourceGlobalConfig, global.APIToken, apiURL
	}
	return SourceNone, "", apiURL
}

// configCRMStore keeps the CRM id in the global config.
type configCRMStore struct{}

func (configCRMStore) LoadCRMID() (string, error) {
	config, err := LoadGlobalConfig()
	if err != nil || config == nil {
		return "", err
	}
	return config.CRMID, nil
}

func (configCRMStore) SaveCRMID(id string) error {
	return UpdateGlobalConfig(func(c *GlobalConfig) {
		c.CRMID = id
	})
}
