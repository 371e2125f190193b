package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsedex-labs/pqs/domain/cache"
)

func TestCache_SetGet(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		value      interface{}
		expiration time.Duration
		sleep      time.Duration

		wantFound bool
	}{
		{
			name:       "live entry",
			key:        "k",
			value:      42,
			expiration: time.Minute,
			wantFound:  true,
		},
		{
			name:       "expired entry",
			key:        "k",
			value:      42,
			expiration: 5 * time.Millisecond,
			sleep:      20 * time.Millisecond,
			wantFound:  false,
		},
		{
			name:       "nil value is a valid negative entry",
			key:        "k",
			value:      nil,
			expiration: time.Minute,
			wantFound:  true,
		},
		{
			name:       "no expiration",
			key:        "k",
			value:      "v",
			expiration: cache.NoExpiration,
			sleep:      10 * time.Millisecond,
			wantFound:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cache.New()
			c.Set(tt.key, tt.value, tt.expiration)

			if tt.sleep > 0 {
				time.Sleep(tt.sleep)
			}

			value, found := c.Get(tt.key)
			require.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				require.Equal(t, tt.value, value)
			}
		})
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New()
	c.Set("k", 1, cache.NoExpiration)
	c.Delete("k")

	_, found := c.Get("k")
	require.False(t, found)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := cache.New()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%8)
			c.Set(key, i, time.Minute)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 8, c.Len())
}
