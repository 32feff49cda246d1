package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s3lite/s3lite/internal/logger"
	"github.com/s3lite/s3lite/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// applyServerFlags overrides cfg.Server with whichever of the server flags
// were explicitly set on cmd, taking precedence over the config file and
// its defaults the way CLI flags outrank both in the documented precedence
// order.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Storage.Root, _ = flags.GetString("root")
	}
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("access-key") {
		cfg.Server.AccessKey, _ = flags.GetString("access-key")
	}
	if flags.Changed("secret-key") {
		cfg.Server.SecretKey, _ = flags.GetString("secret-key")
	}
	if flags.Changed("concurrency-limit") {
		cfg.Server.ConcurrencyLimit, _ = flags.GetInt("concurrency-limit")
	}
	if flags.Changed("domain-name") {
		cfg.Server.DomainName, _ = flags.GetString("domain-name")
	}
	if flags.Changed("permissive-cors") {
		cfg.Server.PermissiveCORS, _ = flags.GetBool("permissive-cors")
	}
}
