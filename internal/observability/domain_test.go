package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/admission"
	"marketplace/internal/models"
	"marketplace/internal/ratelimit"
	"marketplace/internal/search"
	"marketplace/internal/storage"
	"marketplace/internal/version"
)

func version0() version.Info {
	return version.Info{Version: "test", InstanceID: "instance-1"}
}

func ratelimitEvent(route string, allowed bool) ratelimit.Event {
	return ratelimit.Event{Route: route, Key: "203.0.113.1", Allowed: allowed}
}

type stubSearch struct {
	resp *models.SearchResponse
	err  error
}

func (s stubSearch) Search(context.Context, *models.SearchRequest) (*models.SearchResponse, error) {
	return s.resp, s.err
}

func TestInstrumentedSearch(t *testing.T) {
	setupTestProvider(t)

	ok, err := NewInstrumentedSearch(stubSearch{resp: &models.SearchResponse{Total: 3, Radius: 10}})
	require.NoError(t, err)
	resp, err := ok.Search(context.Background(), &models.SearchRequest{Kind: models.KindAll})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)

	failing, err := NewInstrumentedSearch(stubSearch{err: search.NewInternalError("Search failed", errors.New("down"))})
	require.NoError(t, err)
	_, err = failing.Search(context.Background(), nil)
	var svcErr *search.ServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestInstrumentedSearch_WrapsRealService(t *testing.T) {
	setupTestProvider(t)

	inner, err := storage.NewMemoryStorage(storage.Config{})
	require.NoError(t, err)

	hook, err := KindFailureCounter()
	require.NoError(t, err)

	svc, err := NewInstrumentedSearch(search.NewService(inner, search.WithKindFailureHook(hook)))
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), &models.SearchRequest{
		Center: models.Coordinates{Lat: 29.76, Lng: -95.37},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestDecisionRecorder(t *testing.T) {
	setupTestProvider(t)

	rec, err := NewDecisionRecorder()
	require.NoError(t, err)
	assert.NoError(t, rec.Record(context.Background(), ratelimitEvent("public", true)))
}

func TestAdmissionObserver(t *testing.T) {
	setupTestProvider(t)

	observe, err := AdmissionObserver()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		observe(admission.Decision{Kind: admission.RedirectToLogin})
	})
}
