package report

import (
	"context"

	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
)

// Repository is the storage contract for report lifecycle operations.
type Repository interface {
	Insert(ctx context.Context, a *domalert.Alert) error
	Get(ctx context.Context, id string) (domalert.Alert, error)
	Update(ctx context.Context, a *domalert.Alert) error
	List(ctx context.Context, species string, skip, limit int) ([]domalert.Alert, error)
}

// PhotoFetcher downloads report photo bytes for ingestion-time embedding.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
