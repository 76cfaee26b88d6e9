// Package market is the read-through layer between the HTTP surface and the
// upstream client: it caches quotes and history for short TTLs and fans batch
// requests out per symbol.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockdash/internal/cache"
	"stockdash/internal/upstream/yahoo"
)

// ErrNoSymbols rejects a batch request without any symbols, before any fetch
// is launched.
var ErrNoSymbols = errors.New("symbols must be a non-empty array")

// Quoter is the upstream fetch contract the service wraps.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (*yahoo.Quote, error)
	History(ctx context.Context, symbol, rng string) ([]yahoo.HistoryPoint, error)
}

// Service serves quotes and history through a TTL cache.
type Service struct {
	source     Quoter
	cache      *cache.Cache
	quoteTTL   time.Duration
	historyTTL time.Duration
	log        *zap.Logger
}

func NewService(source Quoter, c *cache.Cache, quoteTTL, historyTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		source:     source,
		cache:      c,
		quoteTTL:   quoteTTL,
		historyTTL: historyTTL,
		log:        log,
	}
}

// Quote returns the cached quote for symbol, fetching and caching on miss.
func (s *Service) Quote(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	if v, ok := s.cache.Get(symbol); ok {
		return v.(*yahoo.Quote), nil
	}
	q, err := s.source.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s.cache.Set(symbol, q, s.quoteTTL)
	return q, nil
}

// History returns the cached series for symbol+rng, fetching and caching on
// miss.
func (s *Service) History(ctx context.Context, symbol, rng string) ([]yahoo.HistoryPoint, error) {
	key := fmt.Sprintf("history:%s:%s", symbol, rng)
	if v, ok := s.cache.Get(key); ok {
		return v.([]yahoo.HistoryPoint), nil
	}
	points, err := s.source.History(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, points, s.historyTTL)
	return points, nil
}

// BatchResult is the outcome for one symbol of a batch: a quote or an error,
// never both.
type BatchResult struct {
	Quote *yahoo.Quote
	Err   error
}

// Batch fetches symbols concurrently through the cached quote path. Each
// symbol resolves independently; a failure becomes that symbol's result and
// never aborts its siblings. Batch returns after every symbol has resolved.
func (s *Service) Batch(ctx context.Context, symbols []string) (map[string]BatchResult, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	results := make(map[string]BatchResult, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			q, err := s.Quote(ctx, sym)
			if err != nil {
				s.log.Warn("batch symbol failed", zap.String("symbol", sym), zap.Error(err))
			}
			mu.Lock()
			results[sym] = BatchResult{Quote: q, Err: err}
			mu.Unlock()
		}(sym)
	}
	wg.Wait()
	return results, nil
}
