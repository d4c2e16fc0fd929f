// Package config provides configuration management for ncbi-refdl.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rescale/ncbi-refdl/internal/constants"
)

// ConfigDirectory returns the directory holding the config file.
//
// Locations:
//   - Windows: %APPDATA%\ncbi-refdl
//   - Unix: ~/.config/ncbi-refdl
func ConfigDirectory() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), constants.AppName)
		}
		if runtime.GOOS == "windows" {
			return filepath.Join(homeDir, "AppData", "Roaming", constants.AppName)
		}
		return filepath.Join(homeDir, ".config", constants.AppName)
	}
	return filepath.Join(configDir, constants.AppName)
}

// GetDefaultConfigPath returns the default config file path.
func GetDefaultConfigPath() string {
	return filepath.Join(ConfigDirectory(), constants.ConfigFileName)
}
