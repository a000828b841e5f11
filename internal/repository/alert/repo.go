// Package alert implements the alert repository over the db facade:
// hash storage plus an FT index combining tag predicates with a 3D
// location vector for nearest-first proximity search.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pawtrace/pawtrace/internal/db"
	"github.com/pawtrace/pawtrace/internal/domain"
	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	"github.com/pawtrace/pawtrace/internal/domain/geo"
)

const (
	keyPrefix = domain.KeyPrefix + "alert:"
	indexName = keyPrefix + "idx"

	// candidatePageSize bounds a single FT.SEARCH page when streaming
	// the candidate set for similarity ranking.
	candidatePageSize = 256

	// maxNearWindow caps skip+limit for proximity KNN requests.
	maxNearWindow = 1000
)

// Tag predicates shared by proximity and similarity retrieval. Only
// open missing-pet reports are ever matched.
const (
	filterOpenMissing  = "@alert_type:{missing} @is_active:{1}"
	filterAnyEmbedding = "(@has_image:{1} | @has_text:{1})"
	filterCandidates   = filterOpenMissing + " " + filterAnyEmbedding
)

// store is the consumer interface for alerts (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo implements the alert storage contracts of the usecase layer.
type Repo struct {
	store store
}

// New creates an alert repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the alert FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := db.NewIndex(indexName).
		Prefix(keyPrefix).
		Tag("alert_type").
		Tag("is_active").
		Tag("has_image").
		Tag("has_text").
		Tag("species").
		NumericSortable("created_at").
		Vector("loc", geo.VectorDim, db.DistanceL2).
		MustBuild()

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Insert persists a new alert, assigning its identifier.
func (r *Repo) Insert(ctx context.Context, a *domalert.Alert) error {
	a.SetID(uuid.NewString())
	if err := r.store.HSet(ctx, keyPrefix+a.ID(), buildHashFields(a)); err != nil {
		return fmt.Errorf("insert alert %s: %w: %w", a.ID(), domain.ErrQuery, err)
	}
	return nil
}

// Update persists an existing alert.
func (r *Repo) Update(ctx context.Context, a *domalert.Alert) error {
	if a.ID() == "" {
		return fmt.Errorf("update alert: missing id")
	}
	key := keyPrefix + a.ID()

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check alert %s: %w: %w", a.ID(), domain.ErrQuery, err)
	}
	if !exists {
		return domain.ErrAlertNotFound
	}

	if err := r.store.HSet(ctx, key, buildHashFields(a)); err != nil {
		return fmt.Errorf("update alert %s: %w: %w", a.ID(), domain.ErrQuery, err)
	}
	return nil
}

// Get returns an alert by ID.
func (r *Repo) Get(ctx context.Context, id string) (domalert.Alert, error) {
	m, err := r.store.HGetAll(ctx, keyPrefix+id)
	if err != nil {
		return domalert.Alert{}, fmt.Errorf("get alert %s: %w: %w", id, domain.ErrQuery, err)
	}
	if len(m) == 0 {
		return domalert.Alert{}, domain.ErrAlertNotFound
	}
	return parseHashFields(id, m), nil
}

// FindNear returns active missing-type alerts within radiusM meters of
// p, nearest first, windowed by (skip, limit). Runs a KNN over the
// unit-sphere location vectors; the L2 ordering from the index is the
// great-circle ordering, and the radius cut uses exact Haversine on the
// stored coordinates.
func (r *Repo) FindNear(
	ctx context.Context, p geo.Point, radiusM float64, skip, limit int,
) ([]domalert.Alert, error) {
	window := skip + limit
	if window > maxNearWindow {
		window = maxNearWindow
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:   indexName,
		VectorField: "loc",
		Filter:      filterOpenMissing,
		Vector:      p.ToVector(),
		K:           window,
	})
	if err != nil {
		return nil, fmt.Errorf("find near (%.4f, %.4f): %w: %w", p.Lat, p.Lon, domain.ErrQuery, err)
	}

	within := make([]domalert.Alert, 0, len(res.Entries))
	for _, entry := range res.Entries {
		a := parseHashFields(alertID(entry.Key), entry.Fields)
		loc := a.Location()
		if loc == nil {
			continue
		}
		if geo.Haversine(p, *loc) <= radiusM {
			within = append(within, a)
		}
	}

	if skip >= len(within) {
		return nil, nil
	}
	return within[skip:], nil
}

// FindCandidates returns every active missing-type alert carrying at
// least one embedding. The predicate runs store-side; pages are
// streamed until exhausted. Order is not meaningful here -- the ranking
// engine imposes its own.
func (r *Repo) FindCandidates(ctx context.Context) ([]domalert.Alert, error) {
	var out []domalert.Alert

	for offset := 0; ; offset += candidatePageSize {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName: indexName,
			Query:     filterCandidates,
			Offset:    offset,
			Limit:     candidatePageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("find candidates: %w: %w", domain.ErrQuery, err)
		}
		if res == nil || len(res.Entries) == 0 {
			break
		}

		for _, entry := range res.Entries {
			out = append(out, parseHashFields(alertID(entry.Key), entry.Fields))
		}

		if offset+len(res.Entries) >= res.Total {
			break
		}
	}

	return out, nil
}

// List returns open missing-type alerts newest first, optionally
// filtered by species, windowed by (skip, limit). Resolved reports drop
// out of listings but stay retrievable by id.
func (r *Repo) List(ctx context.Context, species string, skip, limit int) ([]domalert.Alert, error) {
	query := filterOpenMissing
	if species != "" {
		query += " @species:{" + escapeTag(species) + "}"
	}

	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: indexName,
		Query:     query,
		Offset:    skip,
		Limit:     limit,
		SortBy:    "created_at",
		SortDesc:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w: %w", domain.ErrQuery, err)
	}

	out := make([]domalert.Alert, 0, len(res.Entries))
	for _, entry := range res.Entries {
		out = append(out, parseHashFields(alertID(entry.Key), entry.Fields))
	}
	return out, nil
}

// escapeTag escapes RediSearch TAG query metacharacters in a
// user-supplied value.
func escapeTag(v string) string {
	var sb strings.Builder
	for _, r := range v {
		switch r {
		case ',', '.', '<', '>', '{', '}', '[', ']', '"', '\'', ':', ';',
			'!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '-', '+',
			'=', '~', '|', ' ', '\\', '/':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func alertID(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}
