package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sitesync/go-site-settings"
)

var rootCmd = &cobra.Command{
	Use:   "settingsctl",
	Short: "Inspect and transfer site settings",
	Long: `Read and write site settings through the settings API, export the whole configuration to a
portable bundle file, import a bundle into another environment, and watch for changes.`,
	SilenceUsage: true,
}

func init() {
	registerGlobalFlags(rootCmd)
	rootCmd.AddCommand(exportCmd, importCmd, getCmd, setCmd, watchCmd)
}

func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default ./settingsctl.yaml)")
	flags.String("remote-url", "", "base URL of the settings API")
	flags.String("token", "", "bearer token for the settings API")
	flags.Duration("timeout", sitesync.DefaultFetchTimeout, "timeout for each remote call")
	flags.String("snapshot-dir", "", "directory for local snapshots (default: in memory)")
	flags.String("mirror-dir", "", "shared directory for change signals between processes")
	flags.String("log-level", "warn", "log level: debug, info, warn, error, or none")
}

// withClient loads the configuration, creates a client, and runs fn with it.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *sitesync.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	config, err := cfg.clientConfig()
	if err != nil {
		return err
	}
	client, err := sitesync.MakeClient(config)
	if client == nil {
		return err
	}
	defer func() { _ = client.Close() }()
	if err != nil && !errors.Is(err, sitesync.ErrInitializationTimeout) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", err)
	}
	return fn(cmd.Context(), client)
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
