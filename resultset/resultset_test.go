package resultset

import (
	"context"
	"testing"

	"github.com/z2folio/gateway/backend"
	"github.com/z2folio/gateway/diag"
)

func makeInstances(n int, from int) []backend.Instance {
	out := make([]backend.Instance, n)
	for i := range out {
		out[i] = backend.Instance{"hrid": from + i}
	}
	return out
}

func TestEnsureFetchedFetchesExactlyOneChunk(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, offset, limit int) (*backend.SearchResult, error) {
		calls++
		if offset != 5 || limit != 5 {
			t.Fatalf("got offset=%d limit=%d, want offset=5 limit=5", offset, limit)
		}
		return &backend.SearchResult{TotalRecords: 20, Instances: makeInstances(5, 6)}, nil
	}

	set := New("s1", "title=cat", 5, fetch)
	inst, err := set.EnsureFetched(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst["hrid"] != 7 {
		t.Errorf("got %v, want hrid=7", inst)
	}
	if calls != 1 {
		t.Errorf("got %d back-end calls, want 1", calls)
	}

	// A second fetch of an already-cached ordinal must not call fetch again.
	if _, err := set.EnsureFetched(context.Background(), 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("got %d back-end calls after cached fetch, want 1", calls)
	}
}

func TestSetTotalConflictIsDiagnostic1(t *testing.T) {
	set := New("s1", "title=cat", 5, nil)
	if err := set.SetTotal(20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := set.SetTotal(21)
	if err == nil {
		t.Fatal("expected error on conflicting total")
	}
	d, ok := err.(*diag.Diagnostic)
	if !ok || d.Code != diag.PermanentSystemError {
		t.Errorf("got %v, want a diagnostic 1", err)
	}
}

func TestSetTotalSameValueIsIdempotent(t *testing.T) {
	set := New("s1", "title=cat", 5, nil)
	if err := set.SetTotal(20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := set.SetTotal(20); err != nil {
		t.Errorf("repeating the same total should be a no-op, got: %v", err)
	}
}

func TestEnsureFetchedStillMissingIsDiagnostic1(t *testing.T) {
	fetch := func(ctx context.Context, offset, limit int) (*backend.SearchResult, error) {
		return &backend.SearchResult{TotalRecords: 20, Instances: nil}, nil
	}
	set := New("s1", "title=cat", 5, fetch)

	_, err := set.EnsureFetched(context.Background(), 7)
	if err == nil {
		t.Fatal("expected error")
	}
	d, ok := err.(*diag.Diagnostic)
	if !ok || d.Code != diag.PermanentSystemError {
		t.Errorf("got %v, want a diagnostic 1", err)
	}
}

func TestInvariantOrdinalsWithinTotal(t *testing.T) {
	set := New("s1", "title=cat", 5, nil)
	set.SetTotal(3)
	set.Insert(0, makeInstances(3, 1))

	for i := 1; i <= 3; i++ {
		if _, ok := set.Get(i); !ok {
			t.Errorf("expected ordinal %d to be present", i)
		}
	}
	if _, ok := set.Get(4); ok {
		t.Errorf("ordinal 4 should not be present (total=3)")
	}
}
