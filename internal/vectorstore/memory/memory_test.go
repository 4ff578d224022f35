package memory

import (
	"context"
	"errors"
	"testing"

	"policyqa/internal/domain"
	"policyqa/internal/vectorstore"
)

func meta(n int, source string) []domain.Metadata {
	out := make([]domain.Metadata, n)
	for i := range out {
		out[i] = domain.Metadata{Source: source}
	}
	return out
}

func newStore(t *testing.T, dim int) *Storage {
	t.Helper()
	s := NewStorage()
	if err := s.Init(context.Background(), dim); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStorage_AddQuery(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 3)
	err := s.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float64{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}},
		[]string{"A", "B", "C"},
		meta(3, "p.txt"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count() != 3 {
		t.Fatalf("Count = %d", s.Count())
	}
	matches, err := s.Query(ctx, []float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" || matches[1].ID != "b" {
		t.Errorf("unexpected order %+v", matches)
	}
	if matches[0].Score < matches[1].Score {
		t.Errorf("scores not descending: %+v", matches)
	}
}

func TestStorage_CosineIgnoresMagnitude(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 2)
	_ = s.Add(ctx, []string{"long", "aligned"}, [][]float64{{10, 10}, {0.1, 0}}, []string{"", ""}, meta(2, "x"))
	matches, err := s.Query(ctx, []float64{3, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if matches[0].ID != "aligned" {
		t.Errorf("expected direction to win over magnitude, got %s", matches[0].ID)
	}
	if matches[0].Score < 0.999 {
		t.Errorf("expected cosine ~1, got %f", matches[0].Score)
	}
}

func TestStorage_FewerThanKAndEmpty(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 2)
	matches, err := s.Query(ctx, []float64{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches on empty store, got %d", len(matches))
	}
	_ = s.Add(ctx, []string{"only"}, [][]float64{{1, 0}}, []string{"x"}, meta(1, "x"))
	matches, _ = s.Query(ctx, []float64{0, 1}, 3)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestStorage_Duplicates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 2)
	err := s.Add(ctx, []string{"x", "x"}, [][]float64{{1, 0}, {0, 1}}, []string{"", ""}, meta(2, "s"))
	if !errors.Is(err, vectorstore.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if s.Count() != 0 {
		t.Fatalf("rejected batch must not be stored, count = %d", s.Count())
	}
	if err := s.Add(ctx, []string{"x"}, [][]float64{{1, 0}}, []string{"first"}, meta(1, "s")); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, []string{"x"}, [][]float64{{0, 1}}, []string{"second"}, meta(1, "s")); err != nil {
		t.Fatalf("duplicate across calls must not fail: %v", err)
	}
	if s.Count() != 1 {
		t.Errorf("count = %d, want 1", s.Count())
	}
	doc, _, ok := s.Document("x")
	if !ok || doc != "first" {
		t.Errorf("expected first write to win, got %q", doc)
	}
}

func TestStorage_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 2)
	err := s.Add(ctx, []string{"x"}, [][]float64{{1, 0, 0}}, []string{""}, meta(1, "s"))
	if !errors.Is(err, vectorstore.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	_ = s.Add(ctx, []string{"y"}, [][]float64{{1, 0}}, []string{""}, meta(1, "s"))
	if _, err := s.Query(ctx, []float64{1}, 1); !errors.Is(err, vectorstore.ErrDimensionMismatch) {
		t.Fatalf("expected query dimension error, got %v", err)
	}
}

func TestStorage_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 2)
	_ = s.Add(ctx, []string{"p_0", "p_1", "p_2"}, [][]float64{{1, 0}, {1, 0}, {1, 0}}, []string{"", "", ""}, meta(3, "p"))
	matches, _ := s.Query(ctx, []float64{0, 0}, 3)
	for i, want := range []string{"p_0", "p_1", "p_2"} {
		if matches[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, matches[i].ID, want)
		}
	}
}

func TestStorage_Clear(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 2)
	_ = s.Add(ctx, []string{"x"}, [][]float64{{1, 0}}, []string{""}, meta(1, "s"))
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 0 {
		t.Errorf("count after clear = %d", s.Count())
	}
}
