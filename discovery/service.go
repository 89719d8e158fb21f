package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/jobfeed/adaptation"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/pagination"
	"github.com/poiesic/jobfeed/retrieval"
	"github.com/poiesic/jobfeed/scoring"
	"github.com/poiesic/jobfeed/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/poiesic/jobfeed/discovery"

// ErrMissingDependency is returned by NewService when a required collaborator is nil.
var ErrMissingDependency = errors.New("discovery: missing dependency")

// Observer receives request-level events. Implemented by metrics.Metrics.
type Observer interface {
	ObserveDiscover(mode string, items int, elapsed time.Duration)
	ObserveRequestError(operation, kind string)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Profiles     storage.ProfileRepository
	Candidates   storage.CandidateRepository
	Interactions storage.InteractionRepository
	Retriever    *retrieval.Retriever
	Scorer       *scoring.BatchScorer
	Paginator    *pagination.Paginator
	Updater      *adaptation.Updater
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithObserver attaches a request observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service implements discover, interaction recording and explanations.
type Service struct {
	Deps

	clock    func() time.Time
	observer Observer
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewService creates a service. Every dependency is required.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	if deps.Profiles == nil || deps.Candidates == nil || deps.Interactions == nil ||
		deps.Retriever == nil || deps.Scorer == nil || deps.Paginator == nil || deps.Updater == nil {
		return nil, ErrMissingDependency
	}

	s := &Service{
		Deps:   deps,
		clock:  time.Now,
		tracer: otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "discovery")
	return s, nil
}

// Discover returns one page of candidates ranked for a profile. An empty
// cursor starts from the top. limit must be positive and is clamped to the
// paginator's cap.
func (s *Service) Discover(ctx context.Context, profileID core.ID, cursor string, limit int) (page *Page, err error) {
	ctx, span := s.tracer.Start(ctx, "discovery.Discover", trace.WithAttributes(
		attribute.String("profile.id", profileID.String()),
		attribute.Int("limit", limit),
		attribute.Bool("cursor", cursor != ""),
	))
	start := time.Now()
	defer func() {
		s.finish(span, "discover", err)
		if err == nil && s.observer != nil {
			s.observer.ObserveDiscover(page.Mode, len(page.Items), time.Since(start))
		}
	}()

	limit, err = s.Paginator.Limit(limit)
	if err != nil {
		return nil, err
	}
	after, err := s.Paginator.Decode(cursor)
	if err != nil {
		return nil, err
	}

	var (
		profile  *core.Profile
		excluded []core.ID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.Profiles.GetProfile(gctx, profileID)
		return err
	})
	g.Go(func() error {
		var err error
		excluded, err = s.Interactions.InteractedCandidates(gctx, profileID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scoredAt := s.Paginator.ScoringTime(after, s.clock().UTC())
	pool, err := s.Retriever.Retrieve(ctx, profile.Vector, storage.NewFilter(excluded...), s.Retriever.EpochLimit(profile.Vector))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("retrieval.mode", pool.Mode.String()),
		attribute.Bool("retrieval.degraded", pool.Degraded),
		attribute.Int("pool.size", len(pool.Candidates)),
	)

	scored := s.Scorer.ScoreAll(profile, pool.Candidates, pool.Mode == retrieval.ModeSimilarity, scoredAt)
	result, err := pagination.Paginate(scored, after, limit, scoredAt)
	if err != nil {
		return nil, err
	}
	next, err := s.Paginator.Encode(result.Next)
	if err != nil {
		return nil, err
	}

	page = &Page{
		Items:      make([]Item, len(result.Items)),
		NextCursor: next,
		HasMore:    result.HasMore,
		Mode:       pool.Mode.String(),
		Degraded:   pool.Degraded,
		ScoredAt:   scoredAt,
	}
	for i, sc := range result.Items {
		page.Items[i] = newItem(sc)
	}
	served := 0
	if after != nil {
		served = after.Served
	}
	s.logger.Debug("discover", "profile", profileID, "mode", page.Mode, "pool", len(pool.Candidates),
		"served", served, "items", len(page.Items), "has_more", page.HasMore)
	return page, nil
}

// RecordPositiveInteraction records that the profile responded positively
// to a candidate. The candidate is excluded from later discover pages. At
// milestone counts the profile vector is recomputed; that step never fails
// the call.
func (s *Service) RecordPositiveInteraction(ctx context.Context, profileID, candidateID core.ID) (result *InteractionResult, err error) {
	ctx, span := s.tracer.Start(ctx, "discovery.RecordPositiveInteraction", trace.WithAttributes(
		attribute.String("profile.id", profileID.String()),
		attribute.String("candidate.id", candidateID.String()),
	))
	defer func() { s.finish(span, "interaction", err) }()

	if _, err := s.Profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	candidate, err := s.Candidates.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	r, err := s.Updater.OnPositiveInteraction(ctx, profileID, candidate)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("interactions", r.Count),
		attribute.Bool("recomputed", r.Recomputed),
	)
	return &InteractionResult{
		Count:      r.Count,
		Duplicate:  r.Duplicate,
		Recomputed: r.Recomputed,
		Scheduled:  r.Scheduled,
	}, nil
}

// Explain describes how a candidate scores for a profile right now.
func (s *Service) Explain(ctx context.Context, profileID, candidateID core.ID) (explanation *scoring.Explanation, err error) {
	ctx, span := s.tracer.Start(ctx, "discovery.Explain", trace.WithAttributes(
		attribute.String("profile.id", profileID.String()),
		attribute.String("candidate.id", candidateID.String()),
	))
	defer func() { s.finish(span, "explain", err) }()

	var (
		profile   *core.Profile
		candidate *core.Candidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.Profiles.GetProfile(gctx, profileID)
		return err
	})
	g.Go(func() error {
		var err error
		candidate, err = s.Candidates.GetCandidate(gctx, candidateID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.Scorer.Scorer().Explain(profile, candidate, s.clock().UTC()), nil
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	kind := ErrorKind(err)
	if kind == KindInternal {
		s.logger.Error("request failed", "operation", operation, "err", err)
	}
	if s.observer != nil {
		s.observer.ObserveRequestError(operation, kind)
	}
}

// Error kinds reported to observers and used by transports.
const (
	KindInvalidArgument = "invalid_argument"
	KindNotFound        = "not_found"
	KindUnavailable     = "unavailable"
	KindInternal        = "internal"
)

// ErrorKind classifies an error returned by the service.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, pagination.ErrInvalidCursor), errors.Is(err, pagination.ErrInvalidLimit):
		return KindInvalidArgument
	case errors.Is(err, storage.ErrNotFound):
		return KindNotFound
	case errors.Is(err, retrieval.ErrRetrievalUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}
