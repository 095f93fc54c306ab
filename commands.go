package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/notkisk/AIAgentBuilder-sub000/services/generator"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a workflow from a prompt and print it as JSON",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "existing",
				Aliases: []string{"e"},
				Usage:   "Envelope file to modify instead of creating a new workflow (- for stdin)",
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "API key of the completion endpoint",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "openai-base-url",
				Usage:   "Base URL of an OpenAI-compatible API",
				Sources: cli.EnvVars("OPENAI_BASE_URL"),
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Completion model name",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			prompt := strings.Join(command.Args().Slice(), " ")
			if strings.TrimSpace(prompt) == "" {
				return errors.New("a prompt is required")
			}

			// stdout carries the JSON result
			cfg, err := loadConfig(command, command.Root().ErrWriter)
			if err != nil {
				return err
			}

			req := generator.Request{Prompt: prompt}
			if path := command.String("existing"); path != "" {
				data, err := readInput(command.Root().Reader, path)
				if err != nil {
					return err
				}
				if req.ExistingNodes, err = workflow.ParseEnvelope(data); err != nil {
					return fmt.Errorf("existing workflow: %w", err)
				}
			}

			tools := store.NewMemory()
			if err := store.SeedTools(ctx, tools); err != nil {
				return err
			}

			resp, err := newGenerator(cfg.Generator, tools, nil).Generate(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(command.Root().Writer, resp)
		},
	}
}

func layoutCommand() *cli.Command {
	return &cli.Command{
		Name:      "layout",
		Usage:     "Print the positioned graph of an envelope file (- for stdin)",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				path = "-"
			}

			data, err := readInput(command.Root().Reader, path)
			if err != nil {
				return err
			}
			nodes, err := workflow.DecodeEnvelope(data)
			if err != nil {
				return err
			}

			out := struct {
				Graph    workflow.Graph               `json:"graph"`
				Dangling []workflow.DanglingReference `json:"danglingReferences,omitempty"`
				Issues   []workflow.Issue             `json:"issues,omitempty"`
			}{
				Graph:    workflow.Layout(nodes),
				Dangling: workflow.DanglingReferences(nodes),
			}

			var verr *workflow.ValidationError
			if errors.As(workflow.Validate(nodes), &verr) {
				out.Issues = verr.Issues
			}
			return printJSON(command.Root().Writer, out)
		},
	}
}

func readInput(r io.Reader, path string) ([]byte, error) {
	if path == "-" {
		if r == nil {
			r = os.Stdin
		}
		return io.ReadAll(r)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
