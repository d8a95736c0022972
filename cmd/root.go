package cmd

import (
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/config"
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "ooxmlcrypt",
	Short: "Decrypt password-protected OOXML spreadsheets",
	Long: `ooxmlcrypt decrypts MS-OFFCRYPTO password-protected OOXML
spreadsheets (Standard and Agile encryption schemes) without needing
Microsoft Office or a COM/OLE host.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		logFormat, _ := cmd.Flags().GetString("log-format")

		if cmd.Flags().Changed("debug") {
			config.Instance.Debug = debug
		}

		if cmd.Flags().Changed("log-format") {
			config.Instance.LogFormat = logFormat
		}

		if cmd.Flags().Changed("config") && cfgFile != "" {
			if err := config.Initialize(cfgFile); err != nil {
				logger.LogError("Error loading config file", err, map[string]interface{}{
					"config_file": cfgFile,
				})
			}
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")
	rootCmd.PersistentFlags().Bool("debug", config.Instance.Debug, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", config.Instance.LogFormat, "Log format: json or human")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(inspectCmd)
}
