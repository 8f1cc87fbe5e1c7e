package search

import (
	"context"

	"marketplace/internal/models"
)

// ServiceInterface defines the interface for search service operations
type ServiceInterface interface {
	// Search returns listings of every enabled kind within the request radius,
	// nearest first
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}

// CandidateSource is the part of storage.Storage the service reads.
type CandidateSource interface {
	Candidates(ctx context.Context, kind models.Kind, query string, limit int) ([]*models.Listing, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
