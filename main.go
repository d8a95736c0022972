package main

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-ooxmlcrypt/cmd"
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/config"
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/logger"
)

func main() {
	configFile := os.Getenv("OOXMLCRYPT_CONFIG")

	if err := config.Initialize(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	logger.LogInfo("ooxmlcrypt started", nil)

	cmd.Execute()

	logger.Sync()
}

func initLogging() error {
	logConfig := logger.LoggerConfig{
		Debug:     config.Instance.Debug,
		LogFormat: config.Instance.LogFormat,
		LogFile:   config.Instance.LogFile,
	}

	return logger.InitLogger(logConfig)
}
