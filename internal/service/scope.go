package service

import (
	"context"
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rx-safety-engine/internal/domain"
)

const scopeCacheSize = 128

type lookupResult struct {
	record *domain.DrugRecord
	err    error
}

// lookupScope memoises drug lookups for a single evaluation so that a drug
// reached through several passes is fetched once. A scope is created per call
// and never shared, so nothing is cached across evaluations.
type lookupScope struct {
	store domain.KnowledgeStore
	drugs *lru.Cache[string, lookupResult]
}

func newLookupScope(store domain.KnowledgeStore) *lookupScope {
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, lookupResult](scopeCacheSize)
	return &lookupScope{store: store, drugs: cache}
}

// Lookup returns the store result for name. Found records and ErrNotFound are
// memoised; other errors are not, so a later pass may retry.
func (s *lookupScope) Lookup(ctx context.Context, name string) (*domain.DrugRecord, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if hit, ok := s.drugs.Get(key); ok {
		return hit.record, hit.err
	}

	record, err := s.store.Lookup(ctx, name)
	if err == nil && record == nil {
		err = domain.ErrNotFound
	}
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		s.drugs.Add(key, lookupResult{record: record, err: err})
	}
	return record, err
}
