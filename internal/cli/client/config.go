package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// GlobalConfig is the credential file written by `chaser auth login`.
type GlobalConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

// configPathFunc is swapped out in tests to point at a temp directory.
var configPathFunc = func() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(base, "chaser", "config.json"), nil
}

// ConfigPath returns the location of the global credential file,
// typically ~/.config/chaser/config.json.
func ConfigPath() (string, error) {
	return configPathFunc()
}

// LoadGlobalConfig reads the credential file. A missing file is not an
// error; it returns a nil config.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := configPathFunc()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveGlobalConfig writes the credential file with 0600 permissions,
// creating the config directory when needed.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	path, err := configPathFunc()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes the credential file. Deleting a missing file
// succeeds so logout is idempotent.
func DeleteGlobalConfig() error {
	path, err := configPathFunc()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

var apiKeyPattern = regexp.MustCompile(`^chs_[0-9a-fA-F]{64}$`)

// IsValidAPIKey reports whether key has the chs_ + 64 hex format.
func IsValidAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// CredentialSource identifies where the active credentials came from.
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnvFile      CredentialSource = "env_file"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// GetCredentialSource resolves credentials with the same cascade the API
// client uses: flags, then environment, then the global config file.
func GetCredentialSource(flagAPIKey, flagAPIURL string) (CredentialSource, string, string) {
	if flagAPIKey != "" && flagAPIURL != "" {
		return SourceFlag, flagAPIKey, flagAPIURL
	}

	if key, url := os.Getenv(envAPIKey), os.Getenv(envAPIURL); key != "" && url != "" {
		return SourceEnvFile, key, url
	}

	if cfg, err := LoadGlobalConfig(); err == nil && cfg != nil && cfg.APIKey != "" && cfg.APIURL != "" {
		return SourceGlobalConfig, cfg.APIKey, cfg.APIURL
	}

	return SourceNone, "", ""
}
