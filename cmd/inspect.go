package cmd

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"

	"github.com/deploymenttheory/go-ooxmlcrypt/internal/config"
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/logger"
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/ooxmlcrypto"
	"github.com/spf13/cobra"
)

var inspectPassword string

// inspectCmd decrypts a container in memory and reports the first ZIP
// central-directory entry name as a quick sanity check, without becoming a
// general OOXML/ZIP parser itself.
var inspectCmd = &cobra.Command{
	Use:   "inspect <container>",
	Short: "Decrypt a container in memory and report its ZIP structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		container, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		opts := ooxmlcrypto.Options{
			VerifyIntegrity: config.Instance.Crypto.VerifyIntegrity,
			Concurrency:     config.Instance.Crypto.MaxSegmentWorkers,
		}

		plaintext, err := ooxmlcrypto.DecryptWithOptions(container, inspectPassword, opts)
		if err != nil {
			logger.LogError("decryption failed", err, map[string]interface{}{"path": path})
			return err
		}

		zr, err := zip.NewReader(bytes.NewReader(plaintext), int64(len(plaintext)))
		if err != nil {
			return fmt.Errorf("decrypted package is not a valid ZIP: %w", err)
		}
		if len(zr.File) == 0 {
			return fmt.Errorf("decrypted package contains no entries")
		}

		fmt.Printf("decrypted package: %d bytes, %d ZIP entries\n", len(plaintext), len(zr.File))
		fmt.Printf("first entry: %s\n", zr.File[0].Name)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectPassword, "password", "", "password for the encrypted container")
	inspectCmd.MarkFlagRequired("password")
}
