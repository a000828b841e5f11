package rank

import (
	"context"

	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
)

// CandidateSource retrieves the alerts eligible for similarity scoring:
// active missing-type alerts carrying at least one embedding. Order is
// not assumed; the engine imposes its own.
type CandidateSource interface {
	FindCandidates(ctx context.Context) ([]domalert.Alert, error)
}
