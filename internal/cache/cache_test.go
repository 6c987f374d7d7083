package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now)), clock
}

func TestFresh_PositionsExpireAfterFiveMinutes(t *testing.T) {
	s, clock := newTestStore()
	s.Put(PositionsKey, []string{"AAPL"})

	clock.Advance(4 * time.Minute)
	v, ok := s.Fresh(PositionsKey)
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL"}, v)

	clock.Advance(2 * time.Minute)
	_, ok = s.Fresh(PositionsKey)
	assert.False(t, ok)

	// stale value is still visible through Get
	v, age, ok := s.Get(PositionsKey)
	require.True(t, ok)
	assert.Equal(t, 6*time.Minute, age)
	assert.Equal(t, []string{"AAPL"}, v)

	s.Put(PositionsKey, []string{"MSFT"})
	v, ok = s.Fresh(PositionsKey)
	require.True(t, ok)
	assert.Equal(t, []string{"MSFT"}, v)
}

func TestFresh_BarsLastSevenDays(t *testing.T) {
	s, clock := newTestStore()
	key := BarsKey("spy", clock.Now().Add(-72*time.Hour), clock.Now())
	s.Put(key, 1)

	clock.Advance(6 * 24 * time.Hour)
	_, ok := s.Fresh(key)
	assert.True(t, ok)

	clock.Advance(24 * time.Hour)
	_, ok = s.Fresh(key)
	assert.False(t, ok)
}

func TestClassOf(t *testing.T) {
	tests := map[string]KeyClass{
		AccountKey:                        ClassAccount,
		PositionsKey:                      ClassPositions,
		OrdersKey:                         ClassOrders,
		HistoryKey:                        ClassHistory,
		"bars:AAPL:2024-10-01:2024-10-09": ClassBars,
		"something-else":                  ClassUnknown,
	}
	for key, want := range tests {
		assert.Equal(t, want, ClassOf(key), key)
	}
}

func TestBarsKey_UsesCalendarDates(t *testing.T) {
	a := BarsKey("aapl", time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 10, 9, 1, 0, 0, 0, time.UTC))
	b := BarsKey("AAPL", time.Date(2024, 10, 1, 22, 0, 0, 0, time.UTC), time.Date(2024, 10, 9, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "bars:AAPL:2024-10-01:2024-10-09", a)
	assert.Equal(t, a, b)
}

func TestLookup_TypeMismatch(t *testing.T) {
	s, _ := newTestStore()
	s.Put(AccountKey, "not a number")

	_, ok := Lookup[int](s, AccountKey)
	assert.False(t, ok)

	got, ok := Lookup[string](s, AccountKey)
	assert.True(t, ok)
	assert.Equal(t, "not a number", got)
}

func TestWithThresholds(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := New(WithClock(clock.Now), WithThresholds(map[KeyClass]time.Duration{ClassAccount: time.Minute}))
	s.Put(AccountKey, 1)

	clock.Advance(90 * time.Second)
	_, ok := s.Fresh(AccountKey)
	assert.False(t, ok)
	assert.Equal(t, DefaultTTL, s.Threshold(ClassOrders))
}

func TestSummary(t *testing.T) {
	s, clock := newTestStore()
	s.Put(OrdersKey, 1)
	clock.Advance(10 * time.Minute)
	s.Put(AccountKey, 2)

	sum := s.Summary()
	require.Len(t, sum, 2)
	assert.Equal(t, AccountKey, sum[0].Key)
	assert.True(t, sum[0].Valid)
	assert.Equal(t, OrdersKey, sum[1].Key)
	assert.False(t, sum[1].Valid)
	assert.Equal(t, 10*time.Minute, sum[1].Age)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Put(BarsKey("SYM", time.Unix(int64(i)*86400, 0), time.Unix(int64(i)*86400, 0)), i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Summary(), 20)
}
