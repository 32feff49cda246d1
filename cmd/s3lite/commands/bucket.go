package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s3lite/s3lite/pkg/config"
	"github.com/s3lite/s3lite/pkg/storage"
)

// bucketCmd groups offline bucket administration, operating directly on
// pkg/storage against the configured root without starting the HTTP server.
var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Manage buckets without starting the S3 API server",
}

var bucketCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a bucket's SQLite file and schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		if err := e.CreateBucket(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("bucket %q created\n", args[0])
		return nil
	},
}

var bucketDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an empty bucket's SQLite file and sidecars",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		if err := e.DeleteBucket(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("bucket %q deleted\n", args[0])
		return nil
	},
}

var bucketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every bucket discovered under the configured root",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = e.Close() }()
		buckets, err := e.ListBuckets(context.Background())
		if err != nil {
			return err
		}
		for _, b := range buckets {
			fmt.Printf("%s\t%s\n", b.Name, b.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
		return nil
	},
}

func init() {
	bucketCmd.PersistentFlags().String("root", "", "directory containing <bucket>.sqlite3 files")
	bucketCmd.AddCommand(bucketCreateCmd)
	bucketCmd.AddCommand(bucketDeleteCmd)
	bucketCmd.AddCommand(bucketListCmd)
}

// openEngine loads configuration (config file + --root override) and opens
// a storage engine rooted there, with no metrics, the configured server
// concurrency limit, and the service-level read-only flag off, since this
// runs offline, one command at a time.
func openEngine(cmd *cobra.Command) (*storage.Engine, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		cfg.Storage.Root = root
	}
	config.ApplyDefaults(cfg)

	readOnly := func() bool { return false }
	engine, err := storage.NewEngine(cfg.EngineConfig(nil, readOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage engine at %q: %w", cfg.Storage.Root, err)
	}
	return engine, nil
}
