package nearby

import (
	"context"

	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	"github.com/pawtrace/pawtrace/internal/domain/geo"
)

// Repository is the storage contract for proximity search.
type Repository interface {
	FindNear(ctx context.Context, p geo.Point, radiusM float64, skip, limit int) ([]domalert.Alert, error)
}
