package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/config"
	"github.com/notkisk/AIAgentBuilder-sub000/pkg/logging"
)

func main() {
	if err := rootCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "agentbuilder",
		Usage: "Build AI agent workflows from prompts or a visual node editor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or JSON config file",
				Sources: cli.EnvVars("AGENTBUILDER_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (json, text)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			generateCommand(),
			layoutCommand(),
		},
	}
}

// loadConfig merges the explicitly set flags over file and environment settings and
// installs the configured logger on logOut.
func loadConfig(command *cli.Command, logOut io.Writer) (*config.Config, error) {
	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"log-level":       "log.level",
		"log-format":      "log.format",
		"addr":            "server.addr",
		"database-url":    "database.url",
		"openai-api-key":  "generator.api_key",
		"openai-base-url": "generator.base_url",
		"model":           "generator.model",
	} {
		if command.IsSet(flag) {
			overrides[key] = command.String(flag)
		}
	}

	cfg, err := config.Load(command.String("config"), overrides)
	if err != nil {
		return nil, err
	}
	logging.Setup(logOut, cfg.Log)
	return cfg, nil
}
