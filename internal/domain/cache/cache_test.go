package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/etaflow/internal/domain/cache"
	"github.com/okian/etaflow/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with a controllable clock", t, func() {
		clock := &fakeClock{now: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)}
		store := cache.NewMemoryStore(
			cache.WithClock(clock.Now),
			cache.WithStaleRetention(time.Hour),
			cache.WithShardCount(4),
		)
		key := cache.Key(model.SourceWeather, "d1", "l1")
		store.Put(ctx, key, model.RawData{"temp": 70.0}, time.Minute)

		Convey("When reading before the TTL elapses", func() {
			clock.Advance(59 * time.Second)
			e, ok := store.Get(ctx, key, false)

			Convey("Then the entry is fresh", func() {
				So(ok, ShouldBeTrue)
				So(e.Data["temp"], ShouldEqual, 70.0)
				So(e.TTL, ShouldEqual, time.Minute)
			})
		})

		Convey("When reading after the TTL elapsed", func() {
			clock.Advance(2 * time.Minute)

			Convey("Then a strict read misses", func() {
				_, ok := store.Get(ctx, key, false)
				So(ok, ShouldBeFalse)
			})

			Convey("Then a stale read still serves it", func() {
				e, ok := store.Get(ctx, key, true)
				So(ok, ShouldBeTrue)
				So(e.Expired(clock.Now()), ShouldBeTrue)
			})
		})

		Convey("When sweeping past the stale retention window", func() {
			clock.Advance(time.Minute + time.Hour)
			removed := store.Sweep(ctx)

			Convey("Then the entry is gone", func() {
				So(removed, ShouldEqual, 1)
				So(store.Len(), ShouldEqual, 0)
				_, ok := store.Get(ctx, key, true)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When sweeping inside the retention window", func() {
			clock.Advance(30 * time.Minute)
			So(store.Sweep(ctx), ShouldEqual, 0)
			So(store.Len(), ShouldEqual, 1)
		})

		Convey("When the same key is written twice", func() {
			clock.Advance(5 * time.Minute)
			store.Put(ctx, key, model.RawData{"temp": 71.0}, time.Minute)

			Convey("Then the newer payload replaces the older one", func() {
				e, ok := store.Get(ctx, key, false)
				So(ok, ShouldBeTrue)
				So(e.Data["temp"], ShouldEqual, 71.0)
				So(store.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a zero TTL is stored", func() {
			k := cache.Key(model.SourceTrafficIncidents, "d1", "l1")
			store.Put(ctx, k, model.RawData{}, 0)

			Convey("Then it is never fresh but can be served stale", func() {
				_, fresh := store.Get(ctx, k, false)
				_, stale := store.Get(ctx, k, true)
				So(fresh, ShouldBeFalse)
				So(stale, ShouldBeTrue)
			})
		})
	})

	Convey("Given a bounded single-shard store", t, func() {
		clock := &fakeClock{now: time.Unix(0, 0)}
		store := cache.NewMemoryStore(cache.WithShardCount(1), cache.WithMaxEntries(2), cache.WithClock(clock.Now))

		store.Put(ctx, "a", model.RawData{}, time.Hour)
		clock.Advance(time.Second)
		store.Put(ctx, "b", model.RawData{}, time.Hour)
		clock.Advance(time.Second)
		store.Put(ctx, "c", model.RawData{}, time.Hour)

		Convey("Then the oldest entry is evicted", func() {
			So(store.Len(), ShouldEqual, 2)
			_, ok := store.Get(ctx, "a", true)
			So(ok, ShouldBeFalse)
			_, ok = store.Get(ctx, "c", true)
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given concurrent writers", t, func() {
		store := cache.NewMemoryStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := cache.Key(model.SourceVehicleLocation, fmt.Sprintf("d%d", i), "l")
				store.Put(ctx, key, model.RawData{"i": i}, time.Minute)
				_, _ = store.Get(ctx, key, false)
			}(i)
		}
		wg.Wait()

		Convey("Then every entry is stored", func() {
			So(store.Len(), ShouldEqual, 50)
		})
	})
}
