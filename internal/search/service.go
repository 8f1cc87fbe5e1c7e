// Package search implements geo-proximity search across every content kind
// of the marketplace. Candidates are fetched per kind, placed on the map
// (explicit coordinates, else a city named in their location text), filtered
// by radius and merged into one nearest-first list.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"marketplace/internal/geo"
	"marketplace/internal/models"
)

const (
	// MaxResults caps the number of results returned.
	MaxResults = 50

	// UnresolvedDistanceMiles is assigned to candidates that cannot be placed
	// on the map, so they appear only in searches of at least this radius.
	UnresolvedDistanceMiles = 25.0

	DefaultFetchLimit  = 100
	DefaultConcurrency = 4
	DefaultRadiusMiles = 10
	MaxRadiusMiles     = 500
)

// Service handles proximity search business logic
type Service struct {
	source        CandidateSource
	resolver      *geo.Resolver
	fetchLimit    int
	concurrency   int
	defaultRadius int
	maxRadius     int
	throttle      *rate.Limiter
	onKindFailure func(kind models.Kind, err error)
}

// Option configures a Service.
type Option func(*Service)

// WithResolver replaces the built-in city table.
func WithResolver(r *geo.Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithFetchLimit sets how many candidates are read per kind.
func WithFetchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchLimit = n
		}
	}
}

// WithConcurrency bounds the number of kinds fetched at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRadius sets the radius used when a request has none, and the ceiling
// requests are clamped to.
func WithRadius(defaultRadius, maxRadius int) Option {
	return func(s *Service) {
		if defaultRadius > 0 {
			s.defaultRadius = defaultRadius
		}
		if maxRadius > 0 {
			s.maxRadius = maxRadius
		}
	}
}

// WithFetchLimiter makes every data store fetch wait on l first.
func WithFetchLimiter(l *rate.Limiter) Option {
	return func(s *Service) { s.throttle = l }
}

// WithKindFailureHook registers fn to observe per-kind fetch failures.
func WithKindFailureHook(fn func(kind models.Kind, err error)) Option {
	return func(s *Service) { s.onKindFailure = fn }
}

// NewService creates a new search service reading from source
func NewService(source CandidateSource, opts ...Option) *Service {
	s := &Service{
		source:        source,
		resolver:      geo.DefaultResolver(),
		fetchLimit:    DefaultFetchLimit,
		concurrency:   DefaultConcurrency,
		defaultRadius: DefaultRadiusMiles,
		maxRadius:     MaxRadiusMiles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfigOptions translates search configuration into service options.
func ConfigOptions(cfg models.SearchConfig) []Option {
	opts := []Option{
		WithRadius(cfg.DefaultRadius, cfg.MaxRadius),
		WithFetchLimit(cfg.FetchLimit),
		WithConcurrency(cfg.Concurrency),
	}
	if cfg.BackendQPS > 0 {
		burst := cfg.BackendBurst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, WithFetchLimiter(rate.NewLimiter(rate.Limit(cfg.BackendQPS), burst)))
	}
	return opts
}

// Search validates and normalizes req, fans out one fetch per enabled kind
// and merges the survivors nearest first. A kind whose fetch fails
// contributes nothing; the search fails only when every kind fails.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	if req == nil {
		return nil, NewInvalidRequestError("request is required", nil)
	}
	if err := req.Validate(); err != nil {
		if errors.Is(err, models.ErrMissingCoordinates) {
			return nil, NewValidationError(err.Error(), err)
		}
		return nil, NewInvalidRequestError("Invalid search type", err)
	}
	req.Normalize(s.defaultRadius, s.maxRadius)

	kinds := req.Kind.Expand()
	batches, err := s.fetchAll(ctx, kinds, req.Query)
	if err != nil {
		return nil, err
	}

	center := geo.Point{Lat: req.Center.Lat, Lng: req.Center.Lng}
	radius := float64(req.RadiusMiles)

	type scored struct {
		listing  *models.Listing
		distance float64
	}
	var survivors []scored
	for _, batch := range batches {
		for _, l := range batch {
			d := s.distanceTo(center, l)
			if d <= radius {
				survivors = append(survivors, scored{listing: l, distance: d})
			}
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].distance < survivors[j].distance
	})

	total := len(survivors)
	if len(survivors) > MaxResults {
		survivors = survivors[:MaxResults]
	}

	results := make([]models.SearchResult, len(survivors))
	for i, sc := range survivors {
		results[i] = models.NewSearchResult(sc.listing, roundMiles(sc.distance))
	}

	return &models.SearchResponse{
		Results: results,
		Total:   total,
		Center:  req.Center,
		Radius:  req.RadiusMiles,
	}, nil
}

// fetchAll reads candidates for every kind concurrently. The returned
// batches are indexed like kinds so the merge order never depends on
// goroutine scheduling.
func (s *Service) fetchAll(ctx context.Context, kinds []models.Kind, query string) ([][]*models.Listing, error) {
	batches := make([][]*models.Listing, len(kinds))
	errs := make([]error, len(kinds))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, kind := range kinds {
		g.Go(func() error {
			batches[i], errs[i] = s.fetch(ctx, kind, query)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		slog.Warn("Search candidates fetch failed", "kind", kinds[i], "error", err)
		if s.onKindFailure != nil {
			s.onKindFailure(kinds[i], err)
		}
	}

	if failed == len(kinds) {
		return nil, NewInternalError("Search failed", errors.Join(errs...))
	}
	return batches, nil
}

func (s *Service) fetch(ctx context.Context, kind models.Kind, query string) ([]*models.Listing, error) {
	if s.throttle != nil {
		if err := s.throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch throttle: %w", err)
		}
	}

	listings, err := s.source.Candidates(ctx, kind, query, s.fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candidates: %w", kind, err)
	}
	return listings, nil
}

// distanceTo places l on the map using, in order, its explicit coordinates,
// its location text and its city.
func (s *Service) distanceTo(center geo.Point, l *models.Listing) float64 {
	if c, ok := l.Coordinates(); ok {
		return geo.Distance(center, geo.Point{Lat: c.Lat, Lng: c.Lng})
	}
	if p, ok := s.resolver.ResolveAny(l.Location, l.City); ok {
		return geo.Distance(center, p)
	}
	return UnresolvedDistanceMiles
}

func roundMiles(d float64) float64 {
	return math.Round(d*10) / 10
}
