package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

func TestCacheRoundtripAndExpiry(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	c := NewCache(time.Minute)
	c.now = func() time.Time { return clock }

	key := cacheKey("acc-1", 90, 30, base)
	resp := &models.ForecastResponse{AccountID: "acc-1"}
	c.Put(key, resp)

	clock = base.Add(30 * time.Second)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Same(t, resp, got)

	clock = base.Add(2 * time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache(0)
	key := cacheKey("acc-1", 90, 30, time.Now())
	c.Put(key, &models.ForecastResponse{AccountID: "acc-1"})

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheInvalidateByAccount(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)

	keyShort := cacheKey("acc-1", 90, 30, asOf)
	keyOther := cacheKey("acc-1", 30, 14, asOf)
	// acc-10 shares acc-1 as a string prefix but must survive.
	keySimilar := cacheKey("acc-10", 90, 30, asOf)

	c.Put(keyShort, &models.ForecastResponse{AccountID: "acc-1"})
	c.Put(keyOther, &models.ForecastResponse{AccountID: "acc-1"})
	c.Put(keySimilar, &models.ForecastResponse{AccountID: "acc-10"})

	c.Invalidate("acc-1")

	_, ok := c.Get(keyShort)
	assert.False(t, ok)
	_, ok = c.Get(keyOther)
	assert.False(t, ok)
	_, ok = c.Get(keySimilar)
	assert.True(t, ok)
}
