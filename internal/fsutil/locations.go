package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// IsDevEnvironment reports whether the process appears to be running in a
// local development environment, based on common environment variables.
func IsDevEnvironment() bool {
	return os.Getenv("OOXMLCRYPT_ENV") == "development" ||
		os.Getenv("OOXMLCRYPT_DEV") == "true" ||
		os.Getenv("DEV") == "true" ||
		os.Getenv("DEBUG") == "true"
}

// GetHomeDir returns the user's home directory.
func GetHomeDir() (string, error) {
	return os.UserHomeDir()
}

// GetConfigDir returns the per-user configuration directory for appName.
func GetConfigDir(appName string) (string, error) {
	if IsDevEnvironment() {
		return "config", nil
	}

	home, err := GetHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, appName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName), nil
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, appName), nil
	}
}

// GetSystemConfigDir returns the system-wide configuration directory for appName.
func GetSystemConfigDir(appName string) (string, error) {
	if IsDevEnvironment() {
		return "config", nil
	}

	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("ProgramData")
		if programData == "" {
			systemDrive := os.Getenv("SystemDrive")
			if systemDrive == "" {
				systemDrive = "C:"
			}
			programData = filepath.Join(systemDrive, "ProgramData")
		}
		return filepath.Join(programData, appName), nil
	case "darwin":
		return filepath.Join("/Library", "Application Support", appName), nil
	default:
		for _, path := range []string{filepath.Join("/etc", appName), filepath.Join("/usr/local/etc", appName)} {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		return filepath.Join("/etc", appName), nil
	}
}

// GetLogDir returns the appropriate log directory for appName.
func GetLogDir(appName string) (string, error) {
	if IsDevEnvironment() {
		return "logs", nil
	}

	home, err := GetHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(localAppData, appName, "Logs"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Logs", appName), nil
	default:
		stateHome := os.Getenv("XDG_STATE_HOME")
		if stateHome == "" {
			stateHome = filepath.Join(home, ".local", "state")
		}
		return filepath.Join(stateHome, appName), nil
	}
}
