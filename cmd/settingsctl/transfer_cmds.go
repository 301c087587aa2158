package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitesync/go-site-settings"
	"github.com/sitesync/go-site-settings/syncbundle"
)

var exportCmd = &cobra.Command{
	Use:   "export [file|directory]",
	Short: "Export every setting and page to a bundle file",
	Long: `Export every setting and content page, read directly from the settings API, to a bundle file.
If the argument is a directory, or is omitted, a timestamped file name is used. Use "-" to write to
standard output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *sitesync.Client) error {
			b, err := client.Export(ctx)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			if target == "-" {
				data, err := syncbundle.Marshal(b)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if info, err := os.Stat(target); err == nil && info.IsDir() {
				target = filepath.Join(target, syncbundle.FileName(time.Now()))
			}
			if err := syncbundle.WriteFile(target, b); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "Exported %d settings and %d pages to %s", len(b.Settings), len(b.Pages), target)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bundle file",
	Long: `Write every setting and content page in a bundle file (JSON or YAML) to the settings API.
Settings and pages that are not in the bundle are left unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := syncbundle.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, client *sitesync.Client) error {
			result, err := client.Import(ctx, b)
			writeLine(cmd.OutOrStdout(), "Imported %d settings and %d pages", len(result.Settings), len(result.Pages))
			for _, failed := range result.Failed {
				writeLine(cmd.ErrOrStderr(), "failed: %s", failed)
			}
			return err
		})
	},
}
