package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recordcache/internal/config"
	"recordcache/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	capacity   int
	maxAge     int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "recordcache",
		Short:         "In-memory record cache with LRU eviction and secondary indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")
	cmd.PersistentFlags().IntVar(&opts.capacity, "capacity", 0, "maximum resident entries (overrides config)")
	cmd.PersistentFlags().IntVar(&opts.maxAge, "max-age", 0, "max age in seconds, 0 disables (overrides config)")

	cmd.AddCommand(newDemoCmd(opts))
	return cmd
}

// load resolves config from file and env, then lets explicit flags win.
// Flag values are validated together with the rest of the config.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	flags := cmd.Flags()

	cfg, err := config.Load(o.configPath, func(c *config.Config) {
		if flags.Changed("capacity") {
			c.Capacity = o.capacity
		}
		if flags.Changed("max-age") {
			c.MaxAgeSeconds = o.maxAge
		}
		if flags.Changed("log-level") {
			c.Logging.Level = o.logLevel
		}
		if flags.Changed("log-format") {
			c.Logging.Format = o.logFormat
		}
	})
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	return cfg, logger, nil
}
