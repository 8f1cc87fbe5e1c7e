package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/models"
	"marketplace/internal/storage"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

var _ storage.Storage = (*InstrumentedStorage)(nil)

// NewInstrumentedStorage creates a storage wrapper that records a span, a
// latency sample and, on failure, an error count for every call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	meter := otel.Meter(instrumentationName + "/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   otel.Tracer(instrumentationName + "/storage"),
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (s *InstrumentedStorage) Candidates(ctx context.Context, kind models.Kind, query string, limit int) ([]*models.Listing, error) {
	ctx, span := s.startSpan(ctx, "Candidates",
		attribute.String("kind", string(kind)),
		attribute.Int("limit", limit),
	)
	start := time.Now()
	result, err := s.inner.Candidates(ctx, kind, query, limit)
	span.SetAttributes(attribute.Int("candidates", len(result)))
	s.record(ctx, span, "Candidates", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	ctx, span := s.startSpan(ctx, "GetListing", attribute.String("listing_id", id))
	start := time.Now()
	result, err := s.inner.GetListing(ctx, id)
	s.record(ctx, span, "GetListing", start, err)
	return result, err
}

func (s *InstrumentedStorage) SaveListing(ctx context.Context, listing *models.Listing) error {
	ctx, span := s.startSpan(ctx, "SaveListing", attribute.String("listing_id", listing.ID))
	start := time.Now()
	err := s.inner.SaveListing(ctx, listing)
	s.record(ctx, span, "SaveListing", start, err)
	return err
}

func (s *InstrumentedStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, span := s.startSpan(ctx, "GetUser", attribute.String("user_id", id))
	start := time.Now()
	result, err := s.inner.GetUser(ctx, id)
	s.record(ctx, span, "GetUser", start, err)
	return result, err
}

func (s *InstrumentedStorage) SaveUser(ctx context.Context, user *models.User) error {
	ctx, span := s.startSpan(ctx, "SaveUser", attribute.String("user_id", user.ID))
	start := time.Now()
	err := s.inner.SaveUser(ctx, user)
	s.record(ctx, span, "SaveUser", start, err)
	return err
}

// GetSessionByHash never puts the hash on the span.
func (s *InstrumentedStorage) GetSessionByHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	ctx, span := s.startSpan(ctx, "GetSessionByHash")
	start := time.Now()
	result, err := s.inner.GetSessionByHash(ctx, tokenHash)
	s.record(ctx, span, "GetSessionByHash", start, err)
	return result, err
}

func (s *InstrumentedStorage) SaveSession(ctx context.Context, session *models.Session) error {
	ctx, span := s.startSpan(ctx, "SaveSession", attribute.String("user_id", session.UserID))
	start := time.Now()
	err := s.inner.SaveSession(ctx, session)
	s.record(ctx, span, "SaveSession", start, err)
	return err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
