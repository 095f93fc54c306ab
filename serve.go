package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	cli "github.com/urfave/cli/v3"

	"github.com/notkisk/AIAgentBuilder-sub000/pkg/config"
	"github.com/notkisk/AIAgentBuilder-sub000/pkg/db"
	"github.com/notkisk/AIAgentBuilder-sub000/pkg/metrics"
	"github.com/notkisk/AIAgentBuilder-sub000/pkg/middleware"
	"github.com/notkisk/AIAgentBuilder-sub000/services/activity"
	"github.com/notkisk/AIAgentBuilder-sub000/services/agent"
	"github.com/notkisk/AIAgentBuilder-sub000/services/catalog"
	"github.com/notkisk/AIAgentBuilder-sub000/services/generator"
	"github.com/notkisk/AIAgentBuilder-sub000/services/store"
	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL URL for workflow storage; in-memory when empty",
				Sources: cli.EnvVars("DATABASE_URL"),
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
			cfg, err := loadConfig(command, os.Stdout)
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

// app is the wired HTTP handler plus the resources to release on shutdown.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires stores, services and middleware. Workflows go to PostgreSQL when a
// database url is configured; every other collection lives in memory.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	mem := store.NewMemory()

	var workflows store.WorkflowRepo = mem
	if cfg.Database.URL != "" {
		pool, err := db.Connect(ctx, db.Config{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)

		repo := store.NewPostgresWorkflows(pool)
		if err := repo.InitSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		workflows = repo
		slog.Info("Storing workflows in PostgreSQL")
	}

	if err := store.SeedTools(ctx, mem); err != nil {
		a.Close()
		return nil, err
	}
	if err := workflow.Seed(ctx, workflows); err != nil {
		a.Close()
		return nil, err
	}

	metricsManager := metrics.NewManager(cfg.Metrics.Enabled)
	gen := newGenerator(cfg.Generator, mem, metricsManager)

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logger(slog.Default()), middleware.Metrics(metricsManager))
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metricsManager.Handler()).Methods("GET")
	}

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	workflow.NewService(workflows).LoadRoutes(apiRouter)
	generator.NewService(gen, workflows).LoadRoutes(apiRouter)
	agent.NewService(mem, workflows).LoadRoutes(apiRouter)
	activity.NewService(mem, mem, workflows, workflow.NewEngine(workflow.NewRegistry())).LoadRoutes(apiRouter)
	catalog.NewService(mem).LoadRoutes(apiRouter)

	a.handler = handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.RequestIDHeader}),
		handlers.ExposedHeaders([]string{middleware.RequestIDHeader}),
		handlers.AllowCredentials(),
	)(router)
	return a, nil
}

// newGenerator chains the completion client, when configured, in front of the
// template generator.
func newGenerator(cfg config.GeneratorConfig, tools store.ToolRepo, recorder generator.Recorder) generator.Generator {
	var primary generator.Generator
	if cfg.Configured() {
		primary = generator.NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, tools)
		slog.Info("AI generator enabled", "base_url", cfg.BaseURL, "model", cfg.Model)
	} else {
		slog.Info("AI generator not configured, using templates only")
	}

	return generator.NewChain(primary, generator.NewTemplateGenerator(),
		generator.WithTimeout(cfg.Timeout),
		generator.WithRateLimit(cfg.RatePerMinute, cfg.Burst),
		generator.WithRecorder(recorder),
	)
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: a.handler,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "addr", cfg.Server.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Could not stop server gracefully", "error", err)
			srv.Close()
		}
	}
	return nil
}
