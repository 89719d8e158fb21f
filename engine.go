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


package jobfeed

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/jobfeed/adaptation"
	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/ai/mock"
	"github.com/poiesic/jobfeed/ai/openai"
	"github.com/poiesic/jobfeed/config"
	"github.com/poiesic/jobfeed/discovery"
	"github.com/poiesic/jobfeed/ingestion"
	"github.com/poiesic/jobfeed/metrics"
	"github.com/poiesic/jobfeed/pagination"
	"github.com/poiesic/jobfeed/reembed"
	"github.com/poiesic/jobfeed/retrieval"
	"github.com/poiesic/jobfeed/retry"
	"github.com/poiesic/jobfeed/scoring"
	"github.com/poiesic/jobfeed/server"
	"github.com/poiesic/jobfeed/storage"
	"github.com/poiesic/jobfeed/storage/badger"
	"github.com/poiesic/jobfeed/storage/pgvector"
	redisstore "github.com/poiesic/jobfeed/storage/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Engine owns the stores and services of one discovery deployment.
type Engine struct {
	cfg *config.Config

	repos    *badger.Repositories
	pg       *pgvector.Store
	redis    *redisstore.InteractionRepository
	provider ai.AIProvider
	encoder  *ai.TextEncoder

	candidates   storage.CandidateRepository
	interactions storage.InteractionRepository

	scorer   *scoring.BatchScorer
	updater  *adaptation.Updater
	service  *discovery.Service
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	tracer trace.TracerProvider
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	tracer   trace.TracerProvider
	logger   *slog.Logger
}

// WithAIProvider overrides the provider selected by configuration.
func WithAIProvider(p ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = p
	}
}

// WithTracerProvider sets the provider used for request spans.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(o *engineOptions) {
		o.tracer = tp
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open opens the configured stores and wires the discovery services.
// On error everything opened so far is closed again.
func Open(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{
		tracer: noop.NewTracerProvider(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	e := &Engine{
		cfg:      cfg,
		provider: options.provider,
		tracer:   options.tracer,
		logger:   options.logger.With("component", "engine"),
	}
	if err := e.init(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	e.logger.Info("engine ready", "backend", cfg.Backend, "history", cfg.History, "embedding", cfg.Embedding.Provider)
	return e, nil
}

func (e *Engine) init(ctx context.Context) error {
	if err := e.openStores(ctx); err != nil {
		return err
	}
	if e.provider == nil {
		provider, err := newProvider(e.cfg.Embedding)
		if err != nil {
			return err
		}
		e.provider = provider
	}
	e.encoder = ai.NewTextEncoder(e.provider.Embedder())

	e.metrics = metrics.New()
	e.registry = prometheus.NewRegistry()
	e.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := e.metrics.Register(e.registry); err != nil {
		return err
	}
	return e.buildServices()
}

func (e *Engine) openStores(ctx context.Context) error {
	cfg := e.cfg
	repos, err := badger.Open(cfg.DataDir, cfg.InMemory, cfg.Retrieval.OverfetchFactor)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	e.repos = repos
	e.candidates = e.repos.Candidates
	e.interactions = e.repos.Interactions

	if cfg.Backend == "pgvector" {
		e.pg, err = pgvector.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns,
			pgvector.WithTable(cfg.Postgres.Table),
			pgvector.WithOverfetchFactor(cfg.Postgres.OverfetchFactor),
			pgvector.WithLogger(e.logger))
		if err != nil {
			return err
		}
		if cfg.Postgres.Dimensions > 0 {
			if err := e.pg.EnsureSchema(ctx, cfg.Postgres.Dimensions); err != nil {
				return err
			}
		}
		e.candidates = e.pg
	}

	if cfg.History == "redis" {
		e.redis, err = redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			return err
		}
		e.interactions = e.redis
	}
	return nil
}

func newProvider(cfg config.EmbeddingConfig) (ai.AIProvider, error) {
	if cfg.Provider == "openai" {
		return openai.NewProvider(ai.NewConfig(
			ai.WithEmbeddingHost(cfg.Host),
			ai.WithEmbeddingModel(cfg.Model),
			ai.WithAPIToken(cfg.APIToken),
		))
	}
	return mock.NewMockProvider(), nil
}

func (e *Engine) similarityBackend() retrieval.SimilarityBackend {
	if e.pg != nil {
		return e.pg
	}
	return e.repos.Candidates
}

func (e *Engine) buildServices() error {
	cfg := e.cfg

	retriever, err := retrieval.NewRetriever(e.similarityBackend(), e.candidates,
		retrieval.WithMaxPool(cfg.Retrieval.MaxPool),
		retrieval.WithTimeout(cfg.Retrieval.Timeout),
		retrieval.WithObserver(e.metrics),
		retrieval.WithLogger(e.logger))
	if err != nil {
		return err
	}

	scorer, err := scoring.NewScorer(
		scoring.WithMissingSimilarity(cfg.Scoring.MissingSimilarity),
		scoring.WithBaselineSimilarity(cfg.Scoring.BaselineSimilarity))
	if err != nil {
		return err
	}
	batchOpts := []scoring.BatchOption{scoring.WithBatchLogger(e.logger)}
	if cfg.Scoring.Workers > 0 {
		batchOpts = append(batchOpts, scoring.WithPoolSize(cfg.Scoring.Workers))
	}
	if e.scorer, err = scoring.NewBatchScorer(scorer, batchOpts...); err != nil {
		return err
	}

	secret := []byte(cfg.Pagination.CursorSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		e.logger.Warn("no cursor secret configured; cursors will not survive a restart")
	}
	codec, err := pagination.NewCodec(secret)
	if err != nil {
		return err
	}
	paginator := pagination.NewPaginator(codec,
		pagination.WithMaxLimit(cfg.Pagination.MaxLimit),
		pagination.WithEpochTTL(cfg.Pagination.EpochTTL))

	updaterOpts := []adaptation.Option{
		adaptation.WithTrigger(adaptation.Trigger{First: cfg.Adaptation.First, Every: cfg.Adaptation.Every}),
		adaptation.WithWindow(cfg.Adaptation.Window),
		adaptation.WithAlpha(cfg.Adaptation.Alpha),
		adaptation.WithAsyncTimeout(cfg.Adaptation.AsyncTimeout),
		adaptation.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Adaptation.MaxAttempts,
			BaseDelay:   20 * time.Millisecond,
			Retryable:   retry.On(storage.ErrConflict),
		}),
		adaptation.WithObserver(e.metrics),
		adaptation.WithLogger(e.logger),
	}
	if cfg.Adaptation.Async {
		updaterOpts = append(updaterOpts, adaptation.WithAsync(cfg.Adaptation.PoolSize))
	}
	if e.updater, err = adaptation.NewUpdater(e.repos.Profiles, e.interactions, e.encoder, updaterOpts...); err != nil {
		return err
	}

	e.service, err = discovery.NewService(discovery.Deps{
		Profiles:     e.repos.Profiles,
		Candidates:   e.candidates,
		Interactions: e.interactions,
		Retriever:    retriever,
		Scorer:       e.scorer,
		Paginator:    paginator,
		Updater:      e.updater,
	},
		discovery.WithObserver(e.metrics),
		discovery.WithTracerProvider(e.tracer),
		discovery.WithLogger(e.logger))
	return err
}

// Service returns the discovery service.
func (e *Engine) Service() *discovery.Service {
	return e.service
}

// Candidates returns the candidate repository in use.
func (e *Engine) Candidates() storage.CandidateRepository {
	return e.candidates
}

// Profiles returns the profile repository.
func (e *Engine) Profiles() storage.ProfileRepository {
	return e.repos.Profiles
}

// Interactions returns the interaction history in use.
func (e *Engine) Interactions() storage.InteractionRepository {
	return e.interactions
}

// Encoder returns the text encoder backed by the configured provider.
func (e *Engine) Encoder() *ai.TextEncoder {
	return e.encoder
}

// Gatherer exposes the engine's metrics registry.
func (e *Engine) Gatherer() prometheus.Gatherer {
	return e.registry
}

// Updater returns the profile vector updater.
func (e *Engine) Updater() *adaptation.Updater {
	return e.updater
}

// NewIngestionPipeline creates a pipeline that loads candidates into the active store.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(e.logger)}, opts...)
	return ingestion.NewPipeline(e.candidates, e.encoder, opts...)
}

// NewReembedder creates a reembedder over the active candidate store.
func (e *Engine) NewReembedder(cfg *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(e.candidates, e.encoder, cfg, progress)
}

// NewServer creates the HTTP server for the discovery service.
func (e *Engine) NewServer() *server.Server {
	return server.New(e.service,
		server.WithObserver(e.metrics),
		server.WithGatherer(e.registry),
		server.WithHealthCheck(e.Ping),
		server.WithLogger(e.logger))
}

// Ping checks that every store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e.repos.Backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if e.redis != nil {
		if err := e.redis.Ping(ctx); err != nil {
			return err
		}
	}
	if e.pg != nil {
		if _, err := e.pg.CountCandidates(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for background recomputes and closes every store.
func (e *Engine) Close() error {
	if e.updater != nil {
		e.updater.Close()
	}
	if e.scorer != nil {
		e.scorer.Release()
	}

	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.redis != nil {
		errs = append(errs, e.redis.Close())
	}
	if e.pg != nil {
		errs = append(errs, e.pg.Close())
	}
	if e.repos != nil {
		if err := e.repos.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
