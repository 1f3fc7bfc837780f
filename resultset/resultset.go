// Package resultset implements the per-search, named result-set container:
// its CQL text, total count, and the sparse set of records fetched so far.
package resultset

import (
	"context"
	"fmt"

	"github.com/z2folio/gateway/backend"
	"github.com/z2folio/gateway/diag"
)

// ErrMissingRecord is returned by EnsureFetched when a record still isn't
// present after the one allowed chunk fetch: a permanent system error
// (diagnostic 1), since the back end promised a total that its own chunk
// didn't back up.
var ErrMissingRecord = diag.New(diag.PermanentSystemError, "record not present after chunk fetch")

// Fetcher performs one back-end search call. It is satisfied by
// backend.Client.Search with its baseURL/tenant/token arguments bound.
type Fetcher func(ctx context.Context, offset, limit int) (*backend.SearchResult, error)

// Set is one named result set: its originating CQL, the total hit count
// (known only after the first chunk is fetched), and the records fetched
// so far, keyed by their 1-based ordinal.
type Set struct {
	Name    string
	CQL     string
	total   *int
	records map[int]backend.Instance
	chunk   int
	fetch   Fetcher
}

// New allocates an empty result set bound to a chunk-fill policy: chunkSize
// records are requested per back-end search, via fetch.
func New(name, cql string, chunkSize int, fetch Fetcher) *Set {
	return &Set{
		Name:    name,
		CQL:     cql,
		records: make(map[int]backend.Instance),
		chunk:   chunkSize,
		fetch:   fetch,
	}
}

// Total returns the known total record count, or -1 if not yet set.
func (s *Set) Total() int {
	if s.total == nil {
		return -1
	}
	return *s.total
}

// SetTotal records the total hit count. Calling it again with the same
// value is a no-op; calling it with a different value is surfaced as
// diagnostic 1 (the back end changed its mind about a completed search).
func (s *Set) SetTotal(n int) error {
	if s.total != nil && *s.total != n {
		return diag.New(diag.PermanentSystemError, fmt.Sprintf("result set %q: conflicting total count %d != %d", s.Name, *s.total, n))
	}
	s.total = &n
	return nil
}

// Insert stores instances starting at ordinal offset+1 (offset is 0-based,
// matching the back end's search offset parameter).
func (s *Set) Insert(offset int, instances []backend.Instance) {
	for i, inst := range instances {
		ord := offset + i + 1
		s.records[ord] = inst
	}
}

// Get returns the instance at a 1-based ordinal, if materialized.
func (s *Set) Get(ordinal int) (backend.Instance, bool) {
	inst, ok := s.records[ordinal]
	return inst, ok
}

// EnsureFetched guarantees that Get(ordinal) will succeed, fetching at most
// one further chunk from the back end if the ordinal isn't cached yet.
func (s *Set) EnsureFetched(ctx context.Context, ordinal int) (backend.Instance, error) {
	if inst, ok := s.Get(ordinal); ok {
		return inst, nil
	}

	chunkIndex := (ordinal - 1) / s.chunk
	offset := chunkIndex * s.chunk

	result, err := s.fetch(ctx, offset, s.chunk)
	if err != nil {
		return nil, err
	}
	if err := s.SetTotal(result.TotalRecords); err != nil {
		return nil, err
	}
	s.Insert(offset, result.Instances)

	inst, ok := s.Get(ordinal)
	if !ok {
		return nil, ErrMissingRecord
	}
	return inst, nil
}
