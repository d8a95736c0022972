package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/deploymenttheory/go-ooxmlcrypt/internal/fsutil"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories.
	AppName = "go-ooxmlcrypt"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "OOXMLCRYPT"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Crypto settings control the decryption engine's behavior.
	Crypto struct {
		// MaxSegmentWorkers bounds the goroutine pool used by the
		// concurrent Agile segment decrypter. Zero or negative means
		// sequential decryption.
		MaxSegmentWorkers int `mapstructure:"max_segment_workers"`

		// VerifyIntegrity enables the Agile dataIntegrity HMAC check,
		// which runs over the decrypted package. It has no effect on
		// the Standard scheme, whose password verifier always runs.
		VerifyIntegrity bool `mapstructure:"verify_integrity"`
	} `mapstructure:"crypto"`
}

// Global variables
var (
	// Instance is the global configuration instance.
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system.
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		v = viper.New()

		setDefaults(v)

		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.SetConfigName(AppName)
			v.SetConfigType("yaml")
			addSearchPaths(v)
		}

		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("error reading config file: %w", readErr)
			}
			ConfigLoaded = false
			ConfigFile = ""
		} else {
			ConfigLoaded = true
			ConfigFile = v.ConfigFileUsed()
		}

		if unmarshalErr := v.Unmarshal(&Instance); unmarshalErr != nil {
			err = fmt.Errorf("error parsing config: %w", unmarshalErr)
			return
		}

		ensureDirectories()
	})

	return err
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")

	logDir, err := fsutil.GetLogDir(AppName)
	if err == nil {
		v.SetDefault("log_file", filepath.Join(logDir, "ooxmlcrypt.log"))
	} else {
		v.SetDefault("log_file", "logs/ooxmlcrypt.log")
	}

	v.SetDefault("crypto.max_segment_workers", 0)
	v.SetDefault("crypto.verify_integrity", false)
}

// addSearchPaths adds config search paths.
func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")

	if fsutil.IsDevEnvironment() {
		configDir, err := fsutil.GetConfigDir(AppName)
		if err == nil {
			v.AddConfigPath(configDir)
		}
		return
	}

	if isRunningInPipeline() {
		v.AddConfigPath("/etc/" + AppName)
		return
	}

	configDir, err := fsutil.GetConfigDir(AppName)
	if err == nil {
		v.AddConfigPath(configDir)
	}

	systemConfigDir, err := fsutil.GetSystemConfigDir(AppName)
	if err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}

// ensureDirectories creates necessary directories based on configuration.
func ensureDirectories() {
	if isRunningInPipeline() && os.Getenv("CREATE_DIRS") != "true" {
		return
	}

	if Instance.LogFile != "" {
		logDir := filepath.Dir(Instance.LogFile)
		_ = fsutil.CreateDirIfNotExists(logDir)
	}
}

// SaveConfig saves the current configuration to a file.
func SaveConfig(filePath string) error {
	saveV := viper.New()
	saveV.SetConfigFile(filePath)

	configMap := structToMap(Instance)
	for k, val := range configMap {
		saveV.Set(k, val)
	}

	configDir := filepath.Dir(filePath)
	if err := fsutil.CreateDirIfNotExists(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return saveV.WriteConfig()
}

// structToMap converts a struct to a map using viper.
func structToMap(config interface{}) map[string]interface{} {
	tempV := viper.New()
	tempV.SetConfigType("yaml")
	tempV.Set("temp", config)

	if allSettings := tempV.AllSettings(); allSettings != nil {
		if tempMap, ok := allSettings["temp"].(map[string]interface{}); ok {
			return tempMap
		}
	}

	return make(map[string]interface{})
}

// isRunningInPipeline returns true if running in a CI/CD pipeline environment.
func isRunningInPipeline() bool {
	return os.Getenv("CI") == "true" ||
		os.Getenv("PIPELINE") == "true" ||
		os.Getenv("GITHUB_ACTIONS") == "true" ||
		os.Getenv("JENKINS_URL") != ""
}
