package alert

import (
	"testing"
	"time"

	"github.com/pawtrace/pawtrace/internal/domain/geo"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestAlert(t *testing.T) Alert {
	t.Helper()
	a, err := New(
		"pet-1", TypeMissing, "Missing dog: Buddy", "Golden retriever, white chest patch",
		"dog", "555-123-4567", []string{"http://img/1.jpg"},
		&geo.Point{Lat: 40.7, Lon: -74.0}, "user-1", testTime,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNew_Valid(t *testing.T) {
	a := newTestAlert(t)
	if !a.IsActive() {
		t.Error("new alert must be active")
	}
	if a.ID() != "" {
		t.Errorf("ID must be empty before insert, got %q", a.ID())
	}
	if a.HasAnyEmbedding() {
		t.Error("new alert must have no embeddings")
	}
	if a.Type() != TypeMissing {
		t.Errorf("type = %q, want missing", a.Type())
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func() (Alert, error)
		wantErr bool
	}{
		{
			name: "unknown type",
			mutate: func() (Alert, error) {
				return New("p", "stolen", "t", "", "", "c", nil, nil, "u", testTime)
			},
			wantErr: true,
		},
		{
			name: "missing title",
			mutate: func() (Alert, error) {
				return New("p", TypeMissing, "", "", "", "c", nil, nil, "u", testTime)
			},
			wantErr: true,
		},
		{
			name: "missing contact",
			mutate: func() (Alert, error) {
				return New("p", TypeMissing, "t", "", "", "", nil, nil, "u", testTime)
			},
			wantErr: true,
		},
		{
			name: "out of range location",
			mutate: func() (Alert, error) {
				return New("p", TypeMissing, "t", "", "", "c", nil, &geo.Point{Lat: 91}, "u", testTime)
			},
			wantErr: true,
		},
		{
			name: "nil location is fine",
			mutate: func() (Alert, error) {
				return New("p", TypeFound, "t", "", "", "c", nil, nil, "u", testTime)
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.mutate()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasAnyEmbedding(t *testing.T) {
	a := newTestAlert(t)
	a.SetTextEmbedding([]float64{0.1, 0.2})
	if !a.HasAnyEmbedding() {
		t.Error("expected HasAnyEmbedding after SetTextEmbedding")
	}
	if a.ImageEmbedding() != nil {
		t.Error("image embedding must stay nil")
	}
}

func TestResolved(t *testing.T) {
	a := newTestAlert(t)
	a.SetImageEmbedding([]float64{0.5})

	resolvedAt := testTime.Add(48 * time.Hour)
	r := a.Resolved(resolvedAt)

	if r.IsActive() {
		t.Error("resolved alert must be inactive")
	}
	if !r.UpdatedAt().Equal(resolvedAt) {
		t.Errorf("updatedAt = %v, want %v", r.UpdatedAt(), resolvedAt)
	}
	if len(r.ImageEmbedding()) != 1 {
		t.Error("resolving must not touch embeddings")
	}
	if !a.IsActive() {
		t.Error("original must be unchanged")
	}
}

func TestTypeIsValid(t *testing.T) {
	for _, typ := range []Type{TypeMissing, TypeFound, TypeSighting} {
		if !typ.IsValid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	if Type("adopted").IsValid() {
		t.Error("unknown type should be invalid")
	}
}
