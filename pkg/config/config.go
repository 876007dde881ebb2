// Package config loads the participant client's TOML configuration.
// Every key can be overridden from the environment as STUDYCTL_<KEY> with
// dots replaced by underscores, e.g. STUDYCTL_API_BASE_URL.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DirEnv relocates the whole client state directory
const DirEnv = "STUDYCTL_HOME"

var (
	configDir      string
	configFilePath string
)

func defaultDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "searchstudy", "studyctl"), nil
}

// Init reads configPath, or config.toml in the client state directory when
// configPath is empty. A missing file leaves the defaults in place.
func Init(configPath string) error {
	if configPath == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(dir, "config.toml")
	}
	configFilePath = configPath
	configDir = filepath.Dir(configPath)

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	viper.Reset()
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("STUDYCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	viper.SetConfigFile(configFilePath)
	_ = viper.ReadInConfig()
	return nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:8787")
	viper.SetDefault("api.timeout", 10)
	viper.SetDefault("output.format", "text")

	viper.SetDefault("drafts.backend", "local")
	viper.SetDefault("drafts.autosave_ms", 500)
	viper.SetDefault("tracking.scroll_flush_ms", 1000)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", filepath.Join(configDir, "studyctl.log"))
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// GetString returns a string setting. log.file has ~ expanded.
func GetString(key string) string {
	value := viper.GetString(key)
	if key == "log.file" {
		return expandHome(value)
	}
	return value
}

// GetInt returns an int setting
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetMillis reads an integer millisecond setting as a duration
func GetMillis(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Millisecond
}

// GetSeconds reads an integer second setting as a duration
func GetSeconds(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Second
}

// Set overrides a value for this process only
func Set(key string, value interface{}) {
	viper.Set(key, value)
}

// GetConfigDir returns the client state directory
func GetConfigDir() string {
	return configDir
}

// GetStatePath returns the path of the local key-value state file
func GetStatePath() string {
	return filepath.Join(configDir, "state.json")
}
