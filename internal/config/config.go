// Package config loads the run configuration from scout.cfg.json.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from the JSON config file and sets default
// values. configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("outputDir", "./output")

	viper.SetDefault("segment.windowMs", 300000)
	viper.SetDefault("segment.workers", 2)
	viper.SetDefault("segment.burnTimecode", false)
	viper.SetDefault("segment.reencode", false)

	viper.SetDefault("analysis.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("analysis.apiKey", "")
	viper.SetDefault("analysis.model", "gemini-2.5-flash")
	viper.SetDefault("analysis.temperature", 0.2)
	viper.SetDefault("analysis.timeoutMs", 600000)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "scout")
	viper.SetDefault("db.sqlitePath", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "scout-telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("map.metadataPath", "")

	viper.SetConfigName("scout.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}
