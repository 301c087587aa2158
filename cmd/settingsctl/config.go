package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sitesync/go-site-settings"
	"github.com/sitesync/go-site-settings/localstore"
	"github.com/sitesync/go-site-settings/mirror"
	"github.com/sitesync/go-site-settings/remotestore"
)

// cliConfig is everything settingsctl can be configured with.
type cliConfig struct {
	Remote    remoteConfig `mapstructure:"remote"`
	Snapshots string       `mapstructure:"snapshots"`
	Mirror    string       `mapstructure:"mirror"`
	LogLevel  string       `mapstructure:"loglevel"`
}

type remoteConfig struct {
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	NTLMProxy ntlmConfig    `mapstructure:"ntlmproxy"`
}

type ntlmConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Domain   string `mapstructure:"domain"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Remote:   remoteConfig{Timeout: sitesync.DefaultFetchTimeout},
		LogLevel: "warn",
	}
}

// loadConfig reads configuration from the command's flags, environment variables and the config
// file. Environment variables use the prefix "SITESYNC" and the dot character in keys is replaced by
// an underscore; for example, "remote.url" becomes "SITESYNC_REMOTE_URL".
func loadConfig(cmd *cobra.Command) (cliConfig, error) {
	cfg := defaultCLIConfig()

	v := viper.New()
	v.SetConfigName("settingsctl")
	v.AddConfigPath(".")
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix("SITESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	for key, flag := range map[string]string{
		"remote.url":     "remote-url",
		"remote.token":   "token",
		"remote.timeout": "timeout",
		"snapshots":      "snapshot-dir",
		"mirror":         "mirror-dir",
		"loglevel":       "log-level",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && v.ConfigFileUsed() != "" {
			return cfg, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Remote.URL == "" {
		return cfg, fmt.Errorf("no remote URL configured; use --remote-url or SITESYNC_REMOTE_URL")
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up corresponding environment
// variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string(nil), parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}

func parseLogLevel(name string) (ldlog.LogLevel, error) {
	switch strings.ToLower(name) {
	case "debug":
		return ldlog.Debug, nil
	case "info":
		return ldlog.Info, nil
	case "warn", "warning":
		return ldlog.Warn, nil
	case "error":
		return ldlog.Error, nil
	case "none":
		return ldlog.None, nil
	default:
		return ldlog.None, fmt.Errorf("unknown log level %q", name)
	}
}

// clientConfig turns the CLI configuration into a client configuration.
func (c cliConfig) clientConfig() (sitesync.Config, error) {
	level, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return sitesync.Config{}, err
	}
	loggers := ldlog.NewDefaultLoggers()
	loggers.SetMinLevel(level)

	remote := remotestore.HTTP(c.Remote.URL)
	if c.Remote.Token != "" {
		remote.Header("Authorization", "Bearer "+c.Remote.Token)
	}
	if p := c.Remote.NTLMProxy; p.URL != "" {
		remote.NTLMProxy(p.URL, p.Username, p.Password, p.Domain)
	}

	config := sitesync.Config{
		RemoteStore:  remote,
		FetchTimeout: c.Remote.Timeout,
		Loggers:      loggers,
	}
	if c.Snapshots != "" {
		config.Snapshots = localstore.Directory(c.Snapshots)
	}
	if c.Mirror != "" {
		config.Mirror = mirror.Directory(c.Mirror)
	}
	return config, nil
}
