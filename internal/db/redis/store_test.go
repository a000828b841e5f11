package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/pawtrace/pawtrace/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- hash.go tests ---

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "pawtrace:alert:a1"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "pawtrace:alert:a1", map[string]string{"title": "Missing dog"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGetAll_WrapsOpError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "k")).
		Return(mock.ErrorResult(errors.New("boom")))

	s := NewStoreForTest(c)
	_, err := s.HGetAll(context.Background(), "k")

	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected *db.Error, got %v", err)
	}
	if dbErr.Op != db.OpHGetAll {
		t.Errorf("op = %q, want %q", dbErr.Op, db.OpHGetAll)
	}
}

// --- kv.go tests ---

func TestGet_NilIsKeyNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func alertIndexDef(t *testing.T) *db.IndexDefinition {
	t.Helper()
	return db.NewIndex("pawtrace:alert:idx").
		Prefix("pawtrace:alert:").
		Tag("alert_type").
		Tag("is_active").
		Numeric("created_at").
		Vector("loc", 3, db.DistanceL2).
		MustBuild()
}

func TestCreateIndex_ArgsAndSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "FT.CREATE" || cmd[1] != "pawtrace:alert:idx" {
				return false
			}
			// ON HASH PREFIX 1 pawtrace:alert: SCHEMA ...
			return cmd[2] == "ON" && cmd[3] == "HASH" && cmd[4] == "PREFIX" && cmd[5] == "1"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.CreateIndex(context.Background(), alertIndexDef(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), alertIndexDef(t))
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "nope")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected exists=false")
	}
}

// --- search.go tests ---

func TestSearchKNN_BuildsSortedQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "FT.SEARCH" || cmd[1] != "pawtrace:alert:idx" {
				return false
			}
			if cmd[2] != "(@alert_type:{missing} @is_active:{1})=>[KNN 5 @loc $BLOB AS __loc_score]" {
				return false
			}
			for i, a := range cmd {
				if a == "SORTBY" && cmd[i+1] == "__loc_score" && cmd[i+2] == "ASC" {
					return true
				}
			}
			return false
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("pawtrace:alert:a1"),
			mock.RedisArray(
				mock.RedisString("__loc_score"),
				mock.RedisString("0.000123"),
				mock.RedisString("lat"),
				mock.RedisString("40.7"),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "pawtrace:alert:idx",
		VectorField:  "loc",
		Filter:       "@alert_type:{missing} @is_active:{1}",
		Vector:       []float32{1, 0, 0},
		K:            5,
		ReturnFields: []string{"lat", "lon"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("total = %d, entries = %d, want 1/1", res.Total, len(res.Entries))
	}
	e := res.Entries[0]
	if e.Key != "pawtrace:alert:a1" {
		t.Errorf("key = %q", e.Key)
	}
	if e.Score != 0.000123 {
		t.Errorf("score = %g, want raw distance 0.000123", e.Score)
	}
	if _, ok := e.Fields["__loc_score"]; ok {
		t.Error("score field must be stripped from entry fields")
	}
	if e.Fields["lat"] != "40.7" {
		t.Errorf("lat = %q", e.Fields["lat"])
	}
}

func TestSearchKNN_EmptyResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx", VectorField: "loc", Vector: []float32{1}, K: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestSearchKNN_InputValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	s := NewStoreForTest(c)

	queries := []*db.KNNQuery{
		{VectorField: "loc", Vector: []float32{1}, K: 1},
		{IndexName: "idx", Vector: []float32{1}, K: 1},
		{IndexName: "idx", VectorField: "loc", K: 1},
		{IndexName: "idx", VectorField: "loc", Vector: []float32{1}},
	}
	for i, q := range queries {
		if _, err := s.SearchKNN(context.Background(), q); err == nil {
			t.Errorf("query %d: expected validation error", i)
		}
	}
}

func TestSearchList_Pagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "@is_active:{1}" &&
				cmd[3] == "SORTBY" && cmd[4] == "created_at" && cmd[5] == "DESC" &&
				cmd[6] == "LIMIT" && cmd[7] == "20" && cmd[8] == "10"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("pawtrace:alert:a1"),
			mock.RedisArray(mock.RedisString("title"), mock.RedisString("x")),
			mock.RedisString("pawtrace:alert:a2"),
			mock.RedisArray(mock.RedisString("title"), mock.RedisString("y")),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchList(context.Background(), &db.ListQuery{
		IndexName: "idx",
		Query:     "@is_active:{1}",
		Offset:    20,
		Limit:     10,
		SortBy:    "created_at",
		SortDesc:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}
}

func TestSearchCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "*", "LIMIT", "0", "0", "DIALECT", "2")).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(42))))

	s := NewStoreForTest(c)
	n, err := s.SearchCount(context.Background(), "idx", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("count = %d, want 42", n)
	}
}
