package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"rawstack/pkg/config"
	"rawstack/pkg/log"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const configKey = "rawstack.config"

func newApp() *cli.App {
	return &cli.App{
		Name:    "rawstack",
		Usage:   "decode, capture, bridge and announce raw link-layer frames",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration `FILE` (default: ./rawstack.yaml or /etc/rawstack/rawstack.yaml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log `LEVEL` (trace, debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log `FORMAT` (console or json)",
			},
		},
		Before: loadConfig,
		Commands: []*cli.Command{
			decodeCommand,
			captureCommand,
			bridgeCommand,
			announceCommand,
		},
	}
}

// loadConfig reads the configuration, lets global flags override it and
// sets up logging. Subcommands get the result through cfgFrom.
func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error loading configuration: %v", err), 1)
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if err := log.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return cli.Exit(fmt.Sprintf("Error setting up logging: %v", err), 1)
	}
	if cfg.ConfigFile != "" {
		log.Debug().Str("file", cfg.ConfigFile).Msg("using config file")
	}
	c.App.Metadata = map[string]interface{}{configKey: cfg}
	return nil
}

func cfgFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

func main() {
	log.SetStd()
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("rawstack: %v", err)
	}
}
