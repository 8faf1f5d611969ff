package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/easydapp/jelly-packages/internal/app/services"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/infrastructure/config"
	"github.com/easydapp/jelly-packages/internal/infrastructure/log"
	"github.com/easydapp/jelly-packages/internal/infrastructure/metrics"
)

// errRejected is returned when at least one graph failed its check. The
// results are already printed.
var errRejected = errors.New("graph rejected")

type cli struct {
	out io.Writer
	v   *viper.Viper
	cfg *config.Config
}

func newRootCommand(out io.Writer) *cobra.Command {
	return newCLI(out).rootCommand()
}

func newCLI(out io.Writer) *cli {
	return &cli{out: out, v: viper.New()}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "jelly",
		Short:         "Check and compile jelly flow graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.loadConfig()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.Bool("strict-afflux", false, "reject joins of exclusive branches into non-tolerant components")
	flags.String("store", "", "sqlite DSN where passing graphs are saved")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	for _, name := range []string{"config", "strict-afflux", "store", "log-level"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}
	c.v.SetEnvPrefix("JELLY")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.checkCommand(),
		c.anchorsCommand(),
		c.codesCommand(),
		versionCommand(c.out),
	)
	return root
}

// loadConfig reads the config file and layers flags and JELLY_* variables
// over it.
func (c *cli) loadConfig() error {
	cfg, err := config.Load(c.v.GetString("config"))
	if err != nil {
		return err
	}
	if c.v.GetBool("strict-afflux") {
		cfg.Check.AffluxPolicy = graph.AffluxStrict.String()
	}
	if dsn := c.v.GetString("store"); dsn != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.DSN = dsn
	}
	if level := c.v.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := log.Init(cfg.Log.Level, log.Format(cfg.Log.Format)); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *cli) service(ctx context.Context) (*services.CheckService, error) {
	return services.NewCheckServiceFromConfig(ctx, c.cfg,
		services.WithLogger(log.Get()),
		services.WithMetrics(metrics.Default()))
}

func versionCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(out, "jelly %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		},
	}
}
