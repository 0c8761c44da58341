package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

// SearchWindowMonths bounds the forward title search.
const SearchWindowMonths = 3

// Resolver turns an event ID or title into an event ID.
type Resolver struct {
	backend Backend
	caches  func(calendarID string) *EventCache
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// NewResolver creates a resolver over backend that reads and fills cache
// whatever calendar it is asked about.
func NewResolver(backend Backend, cache *EventCache, logger *slog.Logger) *Resolver {
	return newResolver(backend, func(string) *EventCache { return cache }, logger)
}

// newResolver creates a resolver that keeps one cache per calendar.
func newResolver(backend Backend, caches func(calendarID string) *EventCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		backend: backend,
		caches:  caches,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve returns the ID of the event identified by identifier.
//
// The cache is consulted first by ID and then by lowercased title. On a miss
// the identifier is fetched as an event ID; a not-found response moves on,
// any other failure is returned. Finally events between now and three months
// ahead are searched for a case-insensitive title match, earliest first.
// Errors from that search are logged and treated as no match.
//
// When nothing matches the error matches ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, calendarID, identifier string) (string, error) {
	cache := r.caches(calendarID)

	if ev, ok := cache.ByID(identifier); ok {
		r.metrics.RecordCacheLookup(ctx, instrumentation.CacheKeyID, instrumentation.CacheResultHit)
		return ev.ID, nil
	}
	r.metrics.RecordCacheLookup(ctx, instrumentation.CacheKeyID, instrumentation.CacheResultMiss)

	if ev, ok := cache.ByTitle(identifier); ok {
		r.metrics.RecordCacheLookup(ctx, instrumentation.CacheKeyTitle, instrumentation.CacheResultHit)
		return ev.ID, nil
	}
	r.metrics.RecordCacheLookup(ctx, instrumentation.CacheKeyTitle, instrumentation.CacheResultMiss)

	ev, err := r.backend.GetEvent(ctx, calendarID, identifier)
	switch {
	case err == nil:
		cache.Put(*ev)
		return ev.ID, nil
	case !errors.Is(err, ErrNotFound):
		return "", err
	}

	now := r.now().UTC()
	events, err := r.backend.ListEvents(ctx, calendarID, ListQuery{
		TimeMin: now,
		TimeMax: now.AddDate(0, SearchWindowMonths, 0),
	})
	if err != nil {
		r.logger.Warn("event title search failed",
			logging.Calendar(calendarID),
			logging.Err(err))
		return "", fmt.Errorf("%w: %s", ErrNotFound, identifier)
	}

	sortByStart(events)
	for _, candidate := range events {
		if strings.EqualFold(candidate.Summary, identifier) {
			cache.Put(candidate)
			r.logger.Debug("resolved event by title",
				logging.Calendar(calendarID),
				logging.EventID(candidate.ID))
			return candidate.ID, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, identifier)
}
