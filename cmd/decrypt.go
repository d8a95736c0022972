package cmd

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-ooxmlcrypt/internal/config"
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/logger"
	"github.com/deploymenttheory/go-ooxmlcrypt/internal/ooxmlcrypto"
	"github.com/spf13/cobra"
)

var (
	decryptPassword string
	decryptOut      string
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <container>",
	Short: "Decrypt a password-protected OOXML container to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		container, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		logger.LogInfo("container opened", map[string]interface{}{
			"path": path,
			"size": len(container),
		})

		opts := ooxmlcrypto.Options{
			VerifyIntegrity: config.Instance.Crypto.VerifyIntegrity,
			Concurrency:     config.Instance.Crypto.MaxSegmentWorkers,
		}

		plaintext, err := ooxmlcrypto.DecryptWithOptions(container, decryptPassword, opts)
		if err != nil {
			logger.LogError("decryption failed", err, map[string]interface{}{"path": path})
			return err
		}
		logger.LogInfo("plaintext recovered", map[string]interface{}{
			"path": path,
			"size": len(plaintext),
		})

		out := decryptOut
		if out == "" {
			out = path + ".decrypted"
		}
		if err := os.WriteFile(out, plaintext, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}

		fmt.Printf("decrypted %s -> %s (%d bytes)\n", path, out, len(plaintext))
		return nil
	},
}

func init() {
	decryptCmd.Flags().StringVar(&decryptPassword, "password", "", "password for the encrypted container")
	decryptCmd.Flags().StringVar(&decryptOut, "out", "", "output path (default: <container>.decrypted)")
	decryptCmd.MarkFlagRequired("password")
}
