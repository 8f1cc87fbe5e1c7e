package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/admission"
	"marketplace/internal/models"
	"marketplace/internal/ratelimit"
	"marketplace/internal/search"
)

// InstrumentedSearch wraps the search service with a span, a latency
// histogram and a result-count histogram.
type InstrumentedSearch struct {
	inner    search.ServiceInterface
	tracer   trace.Tracer
	duration metric.Float64Histogram
	results  metric.Int64Histogram
}

var _ search.ServiceInterface = (*InstrumentedSearch)(nil)

func NewInstrumentedSearch(inner search.ServiceInterface) (*InstrumentedSearch, error) {
	meter := otel.Meter(instrumentationName + "/search")

	duration, err := meter.Float64Histogram(
		"search.duration",
		metric.WithDescription("Duration of proximity searches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	results, err := meter.Int64Histogram(
		"search.results",
		metric.WithDescription("Listings within radius before truncation"),
		metric.WithUnit("{listing}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedSearch{
		inner:    inner,
		tracer:   otel.Tracer(instrumentationName + "/search"),
		duration: duration,
		results:  results,
	}, nil
}

func (s *InstrumentedSearch) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	var kind string
	if req != nil {
		kind = string(req.Kind)
	}

	ctx, span := s.tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.String("search.kind", kind),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.inner.Search(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("search.radius", resp.Radius),
			attribute.Int("search.total", resp.Total),
		)
		s.results.Record(ctx, int64(resp.Total))
	}

	s.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
	return resp, err
}

// KindFailureCounter returns a hook for search.WithKindFailureHook that
// counts failed fetches per kind.
func KindFailureCounter() (func(kind models.Kind, err error), error) {
	counter, err := otel.Meter(instrumentationName+"/search").Int64Counter(
		"search.kind.failures",
		metric.WithDescription("Candidate fetches that failed, by kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return func(kind models.Kind, _ error) {
		counter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("kind", string(kind))))
	}, nil
}

// DecisionRecorder counts rate limit decisions per route.
type DecisionRecorder struct {
	decisions metric.Int64Counter
}

var _ ratelimit.Recorder = (*DecisionRecorder)(nil)

func NewDecisionRecorder() (*DecisionRecorder, error) {
	decisions, err := otel.Meter(instrumentationName+"/ratelimit").Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Rate limit decisions by route and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &DecisionRecorder{decisions: decisions}, nil
}

func (r *DecisionRecorder) Record(ctx context.Context, ev ratelimit.Event) error {
	r.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", ev.Route),
		attribute.Bool("allowed", ev.Allowed),
	))
	return nil
}

// AdmissionObserver returns an observer for admission.WithObserver that
// counts decisions by kind.
func AdmissionObserver() (func(admission.Decision), error) {
	counter, err := otel.Meter(instrumentationName+"/admission").Int64Counter(
		"admission.decisions",
		metric.WithDescription("Admin area admission decisions by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return func(d admission.Decision) {
		counter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("decision", d.Kind.String())))
	}, nil
}
