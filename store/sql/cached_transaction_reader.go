package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhook-ingest/core"
)

const transactionCacheKeyPrefix = "go-webhook-ingest::transaction::v1"

// CachedTransactionReader serves transaction reads through a cache. Committed
// transactions are immutable, so entries are never invalidated; failed
// lookups are not cached.
type CachedTransactionReader struct {
	base  core.TransactionReader
	cache repositorycache.CacheService
}

func NewCachedTransactionReader(
	base core.TransactionReader,
	cacheService repositorycache.CacheService,
) (*CachedTransactionReader, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base transaction reader is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: transaction cache service is required")
	}
	return &CachedTransactionReader{base: base, cache: cacheService}, nil
}

// TransactionCacheKey returns
// go-webhook-ingest::transaction::v1::<lookup>::<value> with the value
// URL-path escaped.
func TransactionCacheKey(lookup string, value string) (string, error) {
	lookup = strings.TrimSpace(lookup)
	value = strings.TrimSpace(value)
	if lookup == "" || value == "" {
		return "", fmt.Errorf("sqlstore: transaction cache key requires lookup and value")
	}
	return strings.Join([]string{transactionCacheKeyPrefix, lookup, url.PathEscape(value)}, "::"), nil
}

func (r *CachedTransactionReader) GetByEventID(ctx context.Context, eventID string) (core.Transaction, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: cached transaction reader is not configured")
	}
	return r.fetch(ctx, "event", eventID, r.base.GetByEventID)
}

func (r *CachedTransactionReader) GetByTransactionID(ctx context.Context, transactionID string) (core.Transaction, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: cached transaction reader is not configured")
	}
	return r.fetch(ctx, "transaction", transactionID, r.base.GetByTransactionID)
}

func (r *CachedTransactionReader) fetch(
	ctx context.Context,
	lookup string,
	value string,
	load func(context.Context, string) (core.Transaction, error),
) (core.Transaction, error) {
	key, err := TransactionCacheKey(lookup, value)
	if err != nil {
		return core.Transaction{}, core.BadInputError(err.Error())
	}
	trimmed := strings.TrimSpace(value)
	return repositorycache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) (core.Transaction, error) {
		return load(ctx, trimmed)
	})
}
