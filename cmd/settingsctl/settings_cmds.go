package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/spf13/cobra"

	"github.com/sitesync/go-site-settings"
	"github.com/sitesync/go-site-settings/interfaces"
)

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or every setting",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *sitesync.Client) error {
			if len(args) == 1 {
				value, ok := client.GetSetting(ctx, args[0])
				if !ok {
					return fmt.Errorf("setting %q not found", args[0])
				}
				writeLine(cmd.OutOrStdout(), "%s", value.JSONString())
				return nil
			}
			all := client.GetAllSettings(ctx)
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				writeLine(cmd.OutOrStdout(), "%s\t%s", k, all[k].JSONString())
			}
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <json>",
	Short: "Write one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := ldvalue.Parse([]byte(args[1]))
		if value.IsNull() && args[1] != "null" {
			return fmt.Errorf("value is not valid JSON: %s", args[1])
		}
		return withClient(cmd, func(ctx context.Context, client *sitesync.Client) error {
			if err := client.SaveSetting(ctx, args[0], value); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "Saved %s", args[0])
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print change signals as they arrive",
	Long: `Print every change signal published by this process or, if a mirror directory is configured,
by other processes. Send SIGHUP to reload all settings, as an application does when it returns to
the foreground. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *sitesync.Client) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			triggers := make(chan struct{}, 1)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-hup:
						select {
						case triggers <- struct{}{}:
						default:
						}
					}
				}
			}()
			go client.WatchResume(ctx, triggers)

			events := make(chan interfaces.Event, 10)
			for _, name := range []interfaces.EventName{
				interfaces.EventSettingUpdated,
				interfaces.EventSettingsInitialized,
				interfaces.EventSettingsChanged,
			} {
				ch := client.Subscribe(name)
				defer client.Unsubscribe(name, ch)
				go func() {
					for e := range ch {
						events <- e
					}
				}()
			}

			writeLine(cmd.OutOrStdout(), "Watching context %s", client.ContextID())
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-events:
					origin := "local"
					if e.Remote {
						origin = e.Origin
					}
					writeLine(cmd.OutOrStdout(), "%s\t%s\t%s", e.Name, origin, e.Payload.JSONString())
				}
			}
		})
	},
}
