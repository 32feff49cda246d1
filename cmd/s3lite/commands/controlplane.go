package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s3lite/s3lite/pkg/controlplane/models"
)

// controlplaneCmd groups offline helpers for operators managing the
// bucket-admin control plane.
var controlplaneCmd = &cobra.Command{
	Use:   "controlplane",
	Short: "Bucket-admin control plane helpers",
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Bcrypt-hash a password read from stdin, for controlplane.admin_password_hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password from stdin: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")

		hash, err := models.HashAdminPassword(password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	controlplaneCmd.AddCommand(hashPasswordCmd)
}
