// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/jobfeed"
	"github.com/poiesic/jobfeed/config"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/logging"
	"github.com/poiesic/jobfeed/reembed"
	"github.com/poiesic/jobfeed/telemetry"
	"github.com/urfave/cli/v2"
)

const runtimeKey = "runtime"

const shutdownTimeout = 10 * time.Second

// runtime is the per-invocation state built by the Before hook.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "jobfeed",
		Usage: "Personalized job discovery engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"JOBFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Override the BadgerDB data directory",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the discovery HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Override the listen address",
					},
				},
			},
			{
				Name:   "discover",
				Usage:  "Print one page of ranked candidates for a profile",
				Action: discoverCommand,
				Flags: []cli.Flag{
					profileFlag(),
					&cli.StringFlag{
						Name:  "cursor",
						Usage: "Continuation cursor from a previous page",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Page size",
						Value: 20,
					},
				},
			},
			{
				Name:   "interact",
				Usage:  "Record a positive interaction with a candidate",
				Action: interactCommand,
				Flags:  []cli.Flag{profileFlag(), candidateFlag()},
			},
			{
				Name:   "explain",
				Usage:  "Explain how a candidate scores for a profile",
				Action: explainCommand,
				Flags:  []cli.Flag{profileFlag(), candidateFlag()},
			},
			{
				Name:   "seed",
				Usage:  "Load candidates and profiles from a YAML file",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "YAML seed file",
						Required: true,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute candidate embeddings",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of candidates to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N candidates",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "only-missing",
						Usage: "Only embed candidates without a vector",
					},
				},
			},
		},
	}
}

func profileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "profile",
		Aliases:  []string{"p"},
		Usage:    "Profile ID",
		Required: true,
	}
}

func candidateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "candidate",
		Usage:    "Candidate ID",
		Required: true,
	}
}

// setup loads configuration, applies flag overrides and installs the logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("log-level") {
		level := strings.ToLower(c.String("log-level"))
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
		}
		cfg.Logging.Level = level
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
		cfg.InMemory = false
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[runtimeKey] = &runtime{cfg: cfg, logger: logger}
	return nil
}

func teardown(c *cli.Context) error {
	if rt, ok := c.App.Metadata[runtimeKey].(*runtime); ok {
		return rt.logger.Close()
	}
	return nil
}

func runtimeFrom(c *cli.Context) *runtime {
	return c.App.Metadata[runtimeKey].(*runtime)
}

// openEngine opens the engine for commands that exit after one operation.
func openEngine(ctx context.Context, c *cli.Context, opts ...jobfeed.EngineOption) (*jobfeed.Engine, error) {
	rt := runtimeFrom(c)
	opts = append(opts, jobfeed.WithLogger(rt.logger.Logger))
	engine, err := jobfeed.Open(ctx, rt.cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func serveCommand(c *cli.Context) error {
	rt := runtimeFrom(c)
	if addr := c.String("listen"); addr != "" {
		rt.cfg.Listen = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:      rt.cfg.Tracing.Enabled,
		ServiceName:  telemetry.DefaultServiceName,
		Environment:  rt.cfg.Tracing.Environment,
		Endpoint:     rt.cfg.Tracing.Endpoint,
		Insecure:     rt.cfg.Tracing.Insecure,
		SamplingRate: rt.cfg.Tracing.SamplingRate,
	}, rt.logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	engine, err := openEngine(ctx, c, jobfeed.WithTracerProvider(tp.TracerProvider()))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}
	srv := engine.NewServer()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(rt.cfg.Listen)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		rt.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(
		serveErr,
		srv.Shutdown(shutdownCtx),
		engine.Close(),
		tp.Shutdown(shutdownCtx),
	)
}

func discoverCommand(c *cli.Context) error {
	profileID, err := parseID(c, "profile")
	if err != nil {
		return err
	}
	engine, err := openEngine(c.Context, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	page, err := engine.Service().Discover(c.Context, profileID, c.String("cursor"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("discover failed: %w", err)
	}
	return printJSON(c, page)
}

func interactCommand(c *cli.Context) error {
	profileID, err := parseID(c, "profile")
	if err != nil {
		return err
	}
	candidateID, err := parseID(c, "candidate")
	if err != nil {
		return err
	}
	engine, err := openEngine(c.Context, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Service().RecordPositiveInteraction(c.Context, profileID, candidateID)
	if err != nil {
		return fmt.Errorf("recording interaction failed: %w", err)
	}
	// Pending recomputes finish before the engine closes.
	engine.Updater().Wait()
	return printJSON(c, result)
}

func explainCommand(c *cli.Context) error {
	profileID, err := parseID(c, "profile")
	if err != nil {
		return err
	}
	candidateID, err := parseID(c, "candidate")
	if err != nil {
		return err
	}
	engine, err := openEngine(c.Context, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	explanation, err := engine.Service().Explain(c.Context, profileID, candidateID)
	if err != nil {
		return fmt.Errorf("explain failed: %w", err)
	}
	return printJSON(c, explanation)
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxAttempts:    c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		OnlyMissing:    c.Bool("only-missing"),
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxAttempts <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, err := openEngine(c.Context, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	rt := runtimeFrom(c)
	fmt.Fprintf(c.App.ErrWriter, "Embedding provider: %s\n", rt.cfg.Embedding.Provider)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", rt.cfg.Embedding.Model)
	fmt.Fprintln(c.App.ErrWriter)

	stats, err := engine.NewReembedder(reembedConfig, c.App.ErrWriter).Run(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return printJSON(c, stats)
}

func parseID(c *cli.Context, flag string) (core.ID, error) {
	id, err := uuid.Parse(c.String(flag))
	if err != nil {
		return core.NilID, fmt.Errorf("invalid %s id %q: %w", flag, c.String(flag), err)
	}
	return id, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
