package cmd

import (
	"fmt"
	"os"

	"github.com/niels/page-server/pkg/config"
	"github.com/niels/page-server/pkg/logging"
	"github.com/niels/page-server/pkg/storage"
	"github.com/niels/page-server/pkg/version"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "page-server.yaml"

// rootOptions holds the flags and state shared by all commands
type rootOptions struct {
	configPath  string
	debug       bool
	showVersion bool
	cfg         *config.Config
	store       storage.FileStore
}

// NewRootCmd creates the root command for page-server
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithStore(nil)
}

// NewRootCmdWithStore creates the root command with a custom file store.
// This is primarily used for testing; a nil store means the configured
// backend is opened.
func NewRootCmdWithStore(store storage.FileStore) *cobra.Command {
	opts := &rootOptions{store: store}

	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: version.Description,
		Long: fmt.Sprintf(`%s - %s

Redirects / to the home page, serves the configured pages and streams any
other GET path from the public directory, a bitcask database or S3.
`, version.AppName, version.Description),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("config") {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				opts.cfg = cfg
			} else {
				opts.cfg = loadDefaultConfig(opts.configPath)
			}

			logging.InitGlobalLogger(opts.debug, opts.cfg)
			if opts.debug {
				logging.Debug("Debug logging enabled")
			}
			logging.DebugWith("Configuration loaded", map[string]interface{}{
				"addr":       opts.cfg.Server.Addr,
				"backend":    opts.cfg.Storage.Backend,
				"public_dir": opts.cfg.Storage.PublicDir,
				"home":       opts.cfg.Location.Home,
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
				return nil
			}
			return runServe(cmd, opts, "")
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&opts.showVersion, "version", "v", false, "Show version information")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newRoutesCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))

	return rootCmd
}

// loadDefaultConfig reads the default config file when it exists and falls
// back to built-in defaults otherwise
func loadDefaultConfig(path string) *config.Config {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.LoadOrDefault(path)
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
