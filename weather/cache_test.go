package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	anchors []int64
	sod     int64
	temps   []float64
	current float64
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, anchor int64) (*RawForecast, error) {
	f.anchors = append(f.anchors, anchor)
	if f.err != nil {
		return nil, f.err
	}
	precips := make([]float64, len(f.temps))
	raw := hourlyRaw(f.sod, f.temps, precips)
	// the "currently" block differs per anchor so the splice is observable
	raw.Currently = DataPoint{Time: anchor, Temperature: f.current + float64(anchor-f.sod)/3600}
	return raw, nil
}

type recordingObserver struct {
	lookups     []bool
	reasons     []string
	writeErrors []error
}

func (o *recordingObserver) CacheLookup(hit bool, reason string) {
	o.lookups = append(o.lookups, hit)
	o.reasons = append(o.reasons, reason)
}

func (o *recordingObserver) CacheWriteFailed(err error) {
	o.writeErrors = append(o.writeErrors, err)
}

type failingStore struct{ MemoryStore }

func (s *failingStore) Save(context.Context, CachedForecast) error {
	return errors.New("disk full")
}

var testNow = time.Date(2024, 7, 12, 16, 7, 0, 0, time.UTC)

func TestGetOrFetchHitMakesNoCalls(t *testing.T) {
	store := NewMemoryStore()
	cached := Forecast{Temp: 70, High: 80, Low: 60, HourlyPrecip: []float64{0.5}}
	require.NoError(t, store.Save(context.Background(), CachedForecast{
		Weather:    cached,
		Expiry:     testNow.Unix() + 1,
		StartOfDay: StartOfDay(testNow).Unix(),
	}))
	fetcher := &fakeFetcher{}
	obs := &recordingObserver{}

	got, err := NewCache(fetcher, store, WithObserver(obs)).GetOrFetch(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, cached, got)
	assert.Empty(t, fetcher.anchors)
	assert.Equal(t, []bool{true}, obs.lookups)
}

func TestGetOrFetchHitAtExactExpiry(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), CachedForecast{
		Weather:    Forecast{Temp: 1, HourlyPrecip: []float64{}},
		Expiry:     testNow.Unix(),
		StartOfDay: StartOfDay(testNow).Unix(),
	}))
	fetcher := &fakeFetcher{}

	_, err := NewCache(fetcher, store).GetOrFetch(context.Background(), testNow)
	require.NoError(t, err)
	assert.Empty(t, fetcher.anchors)
}

func TestGetOrFetchMissOnDifferentDayOverwrites(t *testing.T) {
	sod := StartOfDay(testNow).Unix()
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), CachedForecast{
		Weather:    Forecast{Temp: 1},
		Expiry:     testNow.Unix() + 1000,
		StartOfDay: sod - 86400,
	}))
	fetcher := &fakeFetcher{sod: sod, temps: []float64{50, 70, 60}, current: 10}
	obs := &recordingObserver{}

	got, err := NewCache(fetcher, store, WithObserver(obs)).GetOrFetch(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, []int64{sod, testNow.Unix()}, fetcher.anchors)
	assert.Equal(t, []string{"different day"}, obs.reasons)
	// currently comes from the second, now-anchored fetch
	assert.InDelta(t, 10+float64(testNow.Unix()-sod)/3600, got.Temp, 1e-9)
	assert.Equal(t, 70.0, got.High)
	assert.Equal(t, 50.0, got.Low)

	entry, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, sod, entry.StartOfDay)
	assert.Equal(t, testNow.Unix()+1800, entry.Expiry)
	assert.Equal(t, got, entry.Weather)
}

func TestGetOrFetchMissWhenExpired(t *testing.T) {
	sod := StartOfDay(testNow).Unix()
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), CachedForecast{
		Expiry:     testNow.Unix() - 1,
		StartOfDay: sod,
	}))
	fetcher := &fakeFetcher{sod: sod, temps: []float64{1}}
	obs := &recordingObserver{}

	_, err := NewCache(fetcher, store, WithObserver(obs)).GetOrFetch(context.Background(), testNow)
	require.NoError(t, err)
	assert.Len(t, fetcher.anchors, 2)
	assert.Equal(t, []string{"expired"}, obs.reasons)
}

func TestGetOrFetchWriteFailureIsSwallowed(t *testing.T) {
	sod := StartOfDay(testNow).Unix()
	fetcher := &fakeFetcher{sod: sod, temps: []float64{40, 41}}
	obs := &recordingObserver{}
	store := &failingStore{MemoryStore: *NewMemoryStore()}

	got, err := NewCache(fetcher, store, WithObserver(obs)).GetOrFetch(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 41.0, got.High)
	require.Len(t, obs.writeErrors, 1)
	assert.EqualError(t, obs.writeErrors[0], "disk full")
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	store := NewMemoryStore()

	_, err := NewCache(fetcher, store).GetOrFetch(context.Background(), testNow)
	assert.EqualError(t, err, "boom")

	entry, _ := store.Load(context.Background())
	assert.Nil(t, entry, "nothing is cached when the fetch fails")
}
