package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pawtrace/pawtrace/internal/db"
	"github.com/pawtrace/pawtrace/internal/domain"
	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	"github.com/pawtrace/pawtrace/internal/domain/geo"
)

// storeMock implements the store interface with overridable behavior.
type storeMock struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hgetallFn     func(ctx context.Context, key string) (map[string]string, error)
	existsFn      func(ctx context.Context, key string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

func (m *storeMock) HSet(ctx context.Context, key string, fields map[string]string) error {
	return m.hsetFn(ctx, key, fields)
}

func (m *storeMock) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return m.hgetallFn(ctx, key)
}

func (m *storeMock) Exists(ctx context.Context, key string) (bool, error) {
	return m.existsFn(ctx, key)
}

func (m *storeMock) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	return m.createIndexFn(ctx, def)
}

func (m *storeMock) IndexExists(ctx context.Context, name string) (bool, error) {
	return m.indexExistsFn(ctx, name)
}

func (m *storeMock) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	return m.searchKNNFn(ctx, q)
}

func (m *storeMock) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	return m.searchListFn(ctx, q)
}

var testCreatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testAlert(t *testing.T, title string, loc *geo.Point) domalert.Alert {
	t.Helper()
	a, err := domalert.New(
		"pet-1", domalert.TypeMissing, title, "tabby, green collar", "cat",
		"ana@example.com", []string{"https://img.example.com/1.jpg"}, loc,
		"user-1", testCreatedAt,
	)
	if err != nil {
		t.Fatalf("build alert: %v", err)
	}
	return a
}

func TestEnsureIndex_CreatesWhenAbsent(t *testing.T) {
	var created *db.IndexDefinition
	s := &storeMock{
		indexExistsFn: func(_ context.Context, name string) (bool, error) {
			if name != "pawtrace:alert:idx" {
				t.Errorf("index name = %q", name)
			}
			return false, nil
		},
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}

	if err := New(s).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("CreateIndex never called")
	}
	if created.Prefixes[0] != "pawtrace:alert:" {
		t.Errorf("prefix = %q", created.Prefixes[0])
	}

	var locField *db.IndexField
	for i := range created.Fields {
		if created.Fields[i].Name == "loc" {
			locField = &created.Fields[i]
		}
	}
	if locField == nil {
		t.Fatal("loc vector field missing from schema")
	}
	if locField.VectorDim != geo.VectorDim || locField.VectorDistance != db.DistanceL2 {
		t.Errorf("loc field = %+v", *locField)
	}
}

func TestEnsureIndex_SkipsWhenPresent(t *testing.T) {
	s := &storeMock{
		indexExistsFn: func(context.Context, string) (bool, error) { return true, nil },
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			t.Fatal("CreateIndex must not be called")
			return nil
		},
	}
	if err := New(s).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_ToleratesConcurrentCreate(t *testing.T) {
	s := &storeMock{
		indexExistsFn: func(context.Context, string) (bool, error) { return false, nil },
		createIndexFn: func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists },
	}
	if err := New(s).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInsert_AssignsIDAndWrites(t *testing.T) {
	var gotKey string
	var gotFields map[string]string
	s := &storeMock{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey, gotFields = key, fields
			return nil
		},
	}

	a := testAlert(t, "Missing cat: Luna", &geo.Point{Lat: 40.4168, Lon: -3.7038})
	if err := New(s).Insert(context.Background(), &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID() == "" {
		t.Fatal("insert must assign an id")
	}
	if gotKey != "pawtrace:alert:"+a.ID() {
		t.Errorf("key = %q", gotKey)
	}
	if gotFields[fieldIsActive] != "1" {
		t.Errorf("is_active = %q, want 1", gotFields[fieldIsActive])
	}
	if gotFields[fieldHasImage] != "0" || gotFields[fieldHasText] != "0" {
		t.Error("embedding flags must start at 0")
	}
	if len(gotFields[fieldLoc]) != geo.VectorDim*4 {
		t.Errorf("loc blob length = %d, want %d", len(gotFields[fieldLoc]), geo.VectorDim*4)
	}
}

func TestInsert_StoreError(t *testing.T) {
	s := &storeMock{
		hsetFn: func(context.Context, string, map[string]string) error {
			return errors.New("connection reset")
		},
	}

	a := testAlert(t, "Missing cat: Luna", nil)
	err := New(s).Insert(context.Background(), &a)
	if !errors.Is(err, domain.ErrQuery) {
		t.Fatalf("error = %v, want ErrQuery", err)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	want := testAlert(t, "Missing cat: Luna", &geo.Point{Lat: 40.4168, Lon: -3.7038})
	want.SetID("a1")
	want.SetImageEmbedding([]float64{0.1, -0.2, 0.3})

	s := &storeMock{
		hgetallFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != "pawtrace:alert:a1" {
				t.Errorf("key = %q", key)
			}
			return buildHashFields(&want), nil
		},
	}

	got, err := New(s).Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID() != "a1" || got.Title() != want.Title() || got.Species() != want.Species() {
		t.Errorf("got = %+v", got)
	}
	if !got.CreatedAt().Equal(testCreatedAt) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt(), testCreatedAt)
	}
	if got.Location() == nil || got.Location().Lat != 40.4168 {
		t.Errorf("location = %+v", got.Location())
	}
	if len(got.ImageEmbedding()) != 3 || got.ImageEmbedding()[1] != -0.2 {
		t.Errorf("image embedding = %v", got.ImageEmbedding())
	}
	if len(got.TextEmbedding()) != 0 {
		t.Errorf("text embedding = %v, want empty", got.TextEmbedding())
	}
}

func TestGet_NotFound(t *testing.T) {
	s := &storeMock{
		hgetallFn: func(context.Context, string) (map[string]string, error) {
			return map[string]string{}, nil
		},
	}

	_, err := New(s).Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrAlertNotFound) {
		t.Fatalf("error = %v, want ErrAlertNotFound", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s := &storeMock{
		existsFn: func(context.Context, string) (bool, error) { return false, nil },
	}

	a := testAlert(t, "Missing cat: Luna", nil)
	a.SetID("gone")
	err := New(s).Update(context.Background(), &a)
	if !errors.Is(err, domain.ErrAlertNotFound) {
		t.Fatalf("error = %v, want ErrAlertNotFound", err)
	}
}

func TestUpdate_RequiresID(t *testing.T) {
	a := testAlert(t, "Missing cat: Luna", nil)
	if err := New(&storeMock{}).Update(context.Background(), &a); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestFindNear_FiltersByRadiusAndWindows(t *testing.T) {
	center := geo.Point{Lat: 40.0, Lon: -3.0}

	// 0.005 deg of latitude is ~555 m, 0.02 deg is ~2224 m.
	near1 := testAlert(t, "near one", &geo.Point{Lat: 40.002, Lon: -3.0})
	near2 := testAlert(t, "near two", &geo.Point{Lat: 40.005, Lon: -3.0})
	far := testAlert(t, "far", &geo.Point{Lat: 40.02, Lon: -3.0})

	entries := make([]db.SearchEntry, 0, 3)
	for i, a := range []domalert.Alert{near1, near2, far} {
		a.SetID(string(rune('a' + i)))
		entries = append(entries, db.SearchEntry{
			Key:    keyPrefix + a.ID(),
			Fields: buildHashFields(&a),
		})
	}

	var gotQuery *db.KNNQuery
	s := &storeMock{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			gotQuery = q
			return &db.SearchResult{Total: len(entries), Entries: entries}, nil
		},
	}

	got, err := New(s).FindNear(context.Background(), center, 1000, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.Filter != filterOpenMissing || gotQuery.VectorField != "loc" || gotQuery.K != 10 {
		t.Errorf("query = %+v", gotQuery)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2 (far alert outside radius)", len(got))
	}
	if got[0].Title() != "near one" || got[1].Title() != "near two" {
		t.Errorf("order = [%s, %s]", got[0].Title(), got[1].Title())
	}

	// skip past the first in-radius hit
	got, err = New(s).FindNear(context.Background(), center, 1000, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Title() != "near two" {
		t.Errorf("skip window wrong: %v", got)
	}

	// skip beyond the result set
	got, err = New(s).FindNear(context.Background(), center, 1000, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("results = %d, want 0", len(got))
	}
}

func TestFindNear_CapsWindow(t *testing.T) {
	s := &storeMock{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.K != maxNearWindow {
				t.Errorf("k = %d, want %d", q.K, maxNearWindow)
			}
			return &db.SearchResult{}, nil
		},
	}
	if _, err := New(s).FindNear(context.Background(), geo.Point{}, 5000, 990, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindNear_StoreError(t *testing.T) {
	s := &storeMock{
		searchKNNFn: func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
			return nil, errors.New("index loading")
		},
	}
	_, err := New(s).FindNear(context.Background(), geo.Point{Lat: 40, Lon: -3}, 5000, 0, 10)
	if !errors.Is(err, domain.ErrQuery) {
		t.Fatalf("error = %v, want ErrQuery", err)
	}
}

func TestFindCandidates_Pages(t *testing.T) {
	a1 := testAlert(t, "page one", nil)
	a1.SetID("a1")
	a2 := testAlert(t, "page two", nil)
	a2.SetID("a2")

	var offsets []int
	s := &storeMock{
		searchListFn: func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
			if q.Query != filterCandidates {
				t.Errorf("query = %q", q.Query)
			}
			offsets = append(offsets, q.Offset)
			switch q.Offset {
			case 0:
				return &db.SearchResult{Total: 300, Entries: []db.SearchEntry{
					{Key: keyPrefix + "a1", Fields: buildHashFields(&a1)},
				}}, nil
			default:
				return &db.SearchResult{Total: 300, Entries: []db.SearchEntry{
					{Key: keyPrefix + "a2", Fields: buildHashFields(&a2)},
				}}, nil
			}
		},
	}

	got, err := New(s).FindCandidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offsets) < 2 || offsets[0] != 0 || offsets[1] != candidatePageSize {
		t.Errorf("offsets = %v", offsets)
	}
	if len(got) < 2 || got[0].ID() != "a1" || got[1].ID() != "a2" {
		t.Errorf("candidates = %d", len(got))
	}
}

func TestFindCandidates_StopsWhenExhausted(t *testing.T) {
	a1 := testAlert(t, "only", nil)
	a1.SetID("a1")

	calls := 0
	s := &storeMock{
		searchListFn: func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
			calls++
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
				{Key: keyPrefix + "a1", Fields: buildHashFields(&a1)},
			}}, nil
		},
	}

	got, err := New(s).FindCandidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(got) != 1 {
		t.Errorf("candidates = %d, want 1", len(got))
	}
}

func TestList_SpeciesFilterAndSort(t *testing.T) {
	s := &storeMock{
		searchListFn: func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
			if !strings.Contains(q.Query, "@species:{dog}") {
				t.Errorf("query = %q, want species predicate", q.Query)
			}
			if !strings.Contains(q.Query, "@is_active:{1}") {
				t.Errorf("query = %q, want active predicate", q.Query)
			}
			if q.SortBy != "created_at" || !q.SortDesc {
				t.Errorf("sort = %q desc=%v", q.SortBy, q.SortDesc)
			}
			if q.Offset != 10 || q.Limit != 5 {
				t.Errorf("window = (%d, %d)", q.Offset, q.Limit)
			}
			return &db.SearchResult{}, nil
		},
	}
	if _, err := New(s).List(context.Background(), "dog", 10, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestList_ExcludesResolved(t *testing.T) {
	s := &storeMock{
		searchListFn: func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
			want := "@alert_type:{missing} @is_active:{1}"
			if q.Query != want {
				t.Errorf("query = %q, want %q", q.Query, want)
			}
			return &db.SearchResult{}, nil
		},
	}
	if _, err := New(s).List(context.Background(), "", 0, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEscapeTag(t *testing.T) {
	if got := escapeTag("guinea pig"); got != `guinea\ pig` {
		t.Errorf("escapeTag = %q", got)
	}
	if got := escapeTag("dog"); got != "dog" {
		t.Errorf("escapeTag = %q", got)
	}
}
