// Package config loads process settings from the environment and import
// definitions from YAML or JSON files.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Settings holds process-wide options, read from RAWIMPORT_* environment
// variables (populated from .env in main).
type Settings struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	IndexFolder string `mapstructure:"index_folder"`
	Config      string `mapstructure:"config"`
}

// LoadSettings reads Settings from the environment. For example
// RAWIMPORT_LOG_LEVEL=debug sets LogLevel.
func LoadSettings() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("RAWIMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("index_folder", "")
	v.SetDefault("config", "import.yaml")

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
