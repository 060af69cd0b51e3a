package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"KumoSentinel/internal/config"
	"KumoSentinel/internal/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// cli carries the loaded configuration and logger between cobra hooks and
// subcommands.
type cli struct {
	cfgPath string
	debug   bool
	cfg     *config.Config
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "sentinel",
		Short: "Ichimoku Kinko Hyo signal monitor",
		Long: `sentinel evaluates the daily Ichimoku cloud for one instrument, sends a
BUY or SELL alert at most once per signal and day, and publishes a JSON
snapshot for the dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.load()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCmd(c),
		newServeCmd(c),
		newHistoryCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) load() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	path := config.Path(c.cfgPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(cfg.Log)
	c.logger.Debug().Str("config", path).Msg("configuration loaded")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sentinel %s\n", Version)
		},
	}
}
