package weather

import (
	"context"
	"log"
	"time"
)

// DefaultTTL keeps upstream calls under the free tier's monthly quota.
const DefaultTTL = 1800 * time.Second

// Fetcher is the upstream forecast source.
type Fetcher interface {
	Fetch(ctx context.Context, anchor int64) (*RawForecast, error)
}

// CacheObserver receives cache outcomes for telemetry.
type CacheObserver interface {
	CacheLookup(hit bool, reason string)
	CacheWriteFailed(err error)
}

// Cache serves a day's forecast from a Store, refreshing it from a Fetcher when stale.
//
// Only the "currently" reading is refreshed on a miss. The hourly series is fetched
// anchored at start of day and is not re-validated while the entry is live, so revisions
// to the day's hourly data can be up to one TTL late.
type Cache struct {
	fetcher  Fetcher
	store    Store
	ttl      time.Duration
	observer CacheObserver
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

func WithObserver(observer CacheObserver) CacheOption {
	return func(c *Cache) {
		c.observer = observer
	}
}

func NewCache(fetcher Fetcher, store Store, opts ...CacheOption) *Cache {
	if fetcher == nil {
		panic("fetcher is required")
	}
	if store == nil {
		panic("store is required")
	}
	c := &Cache{
		fetcher: fetcher,
		store:   store,
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns today's forecast as seen at now.
func (c *Cache) GetOrFetch(ctx context.Context, now time.Time) (Forecast, error) {
	sod := StartOfDay(now).Unix()

	reason := "no cached data"
	cached, err := c.store.Load(ctx)
	if err != nil {
		log.Printf("weather cache load failed: %v", err)
		reason = "load failed"
	} else if cached != nil {
		switch {
		case cached.StartOfDay != sod:
			reason = "different day"
		case cached.Expiry < now.Unix():
			reason = "expired"
		default:
			log.Println("weather cache hit")
			c.trackLookup(true, "fresh")
			return cached.Weather, nil
		}
	}
	log.Printf("weather cache miss: %s", reason)
	c.trackLookup(false, reason)

	raw, err := c.fetcher.Fetch(ctx, sod)
	if err != nil {
		return Forecast{}, err
	}

	current, err := c.fetcher.Fetch(ctx, now.Unix())
	if err != nil {
		return Forecast{}, err
	}
	raw.Currently = current.Currently

	forecast, err := Summarize(raw, sod)
	if err != nil {
		return Forecast{}, err
	}

	entry := CachedForecast{
		Weather:    forecast,
		Expiry:     now.Unix() + int64(c.ttl/time.Second),
		StartOfDay: sod,
	}
	log.Printf("caching weather data: expiry=%d start_of_day=%d", entry.Expiry, entry.StartOfDay)
	if err := c.store.Save(ctx, entry); err != nil {
		log.Printf("weather cache write failed: %v", err)
		if c.observer != nil {
			c.observer.CacheWriteFailed(err)
		}
	}

	return forecast, nil
}

func (c *Cache) trackLookup(hit bool, reason string) {
	if c.observer != nil {
		c.observer.CacheLookup(hit, reason)
	}
}
