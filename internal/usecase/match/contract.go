package match

import (
	"context"

	dommatch "github.com/pawtrace/pawtrace/internal/domain/match"
	"github.com/pawtrace/pawtrace/internal/usecase/rank"
)

// PhotoFetcher downloads query photo bytes.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Ranker scores and ranks the candidate set against query vectors.
type Ranker interface {
	Rank(ctx context.Context, q rank.Query) ([]dommatch.Match, error)
}
