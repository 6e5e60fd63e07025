package server

import (
	"testing"
	"time"

	"github.com/MeKo-Tech/docflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a limiter whose clock is advanced by the returned func.
func fakeClock(rl *RateLimiter, start time.Time) func(time.Duration) {
	now := start
	rl.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

var noon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRateLimiter_NoLimits(t *testing.T) {
	rl := NewRateLimiter(Limits{})
	for range 100 {
		require.NoError(t, rl.Allow("client", 1<<20))
	}
	assert.Equal(t, 100, rl.Usage("client").RequestsToday)
	assert.Equal(t, int64(100<<20), rl.Usage("client").BytesToday)
}

func TestRateLimiter_Limits(t *testing.T) {
	tests := []struct {
		name    string
		limits  Limits
		size    int64
		allowed int
		wantErr error
		errType string
	}{
		{"per minute", Limits{PerMinute: 2}, 0, 2, &RateLimitError{}, "minute"},
		{"per hour", Limits{PerHour: 3}, 0, 3, &RateLimitError{}, "hour"},
		{"per day", Limits{PerDay: 4}, 0, 4, &QuotaExceededError{}, "requests"},
		{"bytes per day", Limits{BytesPerDay: 1000}, 400, 2, &QuotaExceededError{}, "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.limits)
			fakeClock(rl, noon)

			for i := range tt.allowed {
				require.NoError(t, rl.Allow("client", tt.size), "request %d", i)
			}
			err := rl.Allow("client", tt.size)
			require.Error(t, err)

			switch want := tt.wantErr.(type) {
			case *RateLimitError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, tt.errType, want.Type)
				assert.Positive(t, want.RetryAfter)
			case *QuotaExceededError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, tt.errType, want.Type)
				assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), want.Resets)
			}

			// Rejected requests are not counted.
			assert.Equal(t, tt.allowed, rl.Usage("client").RequestsToday)
		})
	}
}

func TestRateLimiter_WindowsRoll(t *testing.T) {
	rl := NewRateLimiter(Limits{PerMinute: 1, PerHour: 2})
	advance := fakeClock(rl, noon)

	require.NoError(t, rl.Allow("client", 0))
	var limitErr *RateLimitError
	require.ErrorAs(t, rl.Allow("client", 0), &limitErr)
	assert.Equal(t, "minute", limitErr.Type)
	assert.Equal(t, time.Minute, limitErr.RetryAfter)

	advance(time.Minute)
	require.NoError(t, rl.Allow("client", 0))

	advance(time.Minute)
	require.ErrorAs(t, rl.Allow("client", 0), &limitErr)
	assert.Equal(t, "hour", limitErr.Type)
	assert.Equal(t, 58*time.Minute, limitErr.RetryAfter)

	advance(58 * time.Minute)
	require.NoError(t, rl.Allow("client", 0))
}

func TestRateLimiter_DailyQuotaResetsAtMidnight(t *testing.T) {
	rl := NewRateLimiter(Limits{PerDay: 1, BytesPerDay: 10})
	advance := fakeClock(rl, time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC))

	require.NoError(t, rl.Allow("client", 10))
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, rl.Allow("client", 0), &quotaErr)
	assert.Equal(t, "requests", quotaErr.Type)

	advance(2 * time.Minute)
	require.NoError(t, rl.Allow("client", 10))
	assert.Equal(t, int64(10), rl.Usage("client").BytesToday)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(Limits{PerMinute: 1})
	fakeClock(rl, noon)

	require.NoError(t, rl.Allow("a", 0))
	require.NoError(t, rl.Allow("b", 0))
	require.Error(t, rl.Allow("a", 0))
	assert.Equal(t, 1, rl.Usage("b").RequestsLastMinute)
	assert.Equal(t, Usage{}, rl.Usage("unknown"))
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(Limits{})
	advance := fakeClock(rl, noon)

	require.NoError(t, rl.Allow("old", 0))
	advance(23 * time.Hour)
	require.NoError(t, rl.Allow("recent", 0))
	advance(2 * time.Hour)

	assert.Equal(t, 1, rl.Prune())
	assert.Equal(t, Usage{}, rl.Usage("old"))
	assert.Equal(t, 1, rl.Usage("recent").RequestsLastHour)
}

func TestNewRateLimiterFromConfig(t *testing.T) {
	assert.Nil(t, NewRateLimiterFromConfig(config.RateLimitConfig{RequestsPerMinute: 5}))

	rl := NewRateLimiterFromConfig(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 5,
		RequestsPerHour:   50,
		MaxRequestsPerDay: 500,
		MaxDataPerDayMB:   2,
	})
	require.NotNil(t, rl)
	assert.Equal(t, Limits{PerMinute: 5, PerHour: 50, PerDay: 500, BytesPerDay: 2 * 1024 * 1024}, rl.limits)
}

func TestRateLimitErrors_Message(t *testing.T) {
	err := error(&RateLimitError{Type: "minute", Limit: 10, RetryAfter: 30 * time.Second})
	assert.Equal(t, "rate limit exceeded for minute (limit: 10, retry after: 30s)", err.Error())

	err = &QuotaExceededError{Type: "data", Limit: 1000, Used: 1200, Resets: noon}
	assert.Equal(t, "quota exceeded for data (used: 1200, limit: 1000, resets: 2024-03-01T12:00:00Z)", err.Error())
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(Limits{PerMinute: 100, PerHour: 1000, PerDay: 10000, BytesPerDay: 1 << 20})
	for range b.N {
		_ = rl.Allow("bench", 1)
	}
}
