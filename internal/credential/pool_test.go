package credential

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewPoolMergesAndDedupes(t *testing.T) {
	p := NewPool("news", "key-a", []string{"key-b", "key-a"}, []string{"key-c", "key-b"}, time.Minute)

	require.Equal(t, 3, p.Size())
	st := p.Status()
	assert.Equal(t, OriginOverride, st.Credentials[0].Origin)
	assert.Equal(t, OriginPrimary, st.Credentials[1].Origin)
	assert.Equal(t, OriginSecondary, st.Credentials[2].Origin)
}

func TestAcquireLeastUsedFairness(t *testing.T) {
	p := NewPool("news", "", []string{"key-a", "key-b", "key-c"}, nil, time.Minute)

	for i := 0; i < 10; i++ {
		cred, err := p.Acquire()
		require.NoError(t, err)
		p.Report(cred, Success)
	}

	st := p.Status()
	min, max := st.Credentials[0].TotalUses, st.Credentials[0].TotalUses
	for _, c := range st.Credentials[1:] {
		if c.TotalUses < min {
			min = c.TotalUses
		}
		if c.TotalUses > max {
			max = c.TotalUses
		}
	}
	assert.LessOrEqual(t, max-min, 1, "use counts must stay within one of each other")
}

func TestAcquireTieBreaksByPoolOrder(t *testing.T) {
	p := NewPool("news", "", []string{"key-a", "key-b"}, nil, time.Minute)

	cred, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "news-1", cred.ID)
}

func TestRateLimitedCredentialSkippedUntilCooldownExpires(t *testing.T) {
	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	p := NewPool("news", "", []string{"key-a", "key-b"}, nil, time.Minute).WithNow(fixedClock(t0))

	a, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "news-1", a.ID)
	p.Report(a, RateLimited)

	// The cooled credential is passed over even though it has fewer uses
	// after b accumulates some.
	for i := 0; i < 3; i++ {
		c, err := p.Acquire()
		require.NoError(t, err)
		assert.Equal(t, "news-2", c.ID)
		p.Report(c, Success)
	}

	// After the service cooldown expires the credential comes back, and its
	// lower use count makes it the immediate choice.
	p.WithNow(fixedClock(t0.Add(time.Minute + time.Second)))
	c, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "news-1", c.ID)
}

func TestQuotaExceededParksForADay(t *testing.T) {
	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	p := NewPool("video", "", []string{"key-a"}, nil, time.Minute).WithNow(fixedClock(t0))

	c, err := p.Acquire()
	require.NoError(t, err)
	p.Report(c, QuotaExceeded)

	_, err = p.Acquire()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnavailable))

	p.WithNow(fixedClock(t0.Add(23 * time.Hour)))
	_, err = p.Acquire()
	require.Error(t, err, "still parked before the day is up")

	p.WithNow(fixedClock(t0.Add(24*time.Hour + time.Second)))
	c, err = p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "video-1", c.ID)
}

func TestTransientErrorsTripBackoffAfterThree(t *testing.T) {
	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	p := NewPool("web", "", []string{"key-a"}, nil, time.Minute).WithNow(fixedClock(t0))

	for i := 0; i < 2; i++ {
		c, err := p.Acquire()
		require.NoError(t, err)
		p.Report(c, TransientError)
	}
	// Two failures: still usable.
	c, err := p.Acquire()
	require.NoError(t, err)
	p.Report(c, TransientError)

	// Third consecutive failure trips the backoff.
	_, err = p.Acquire()
	require.Error(t, err)

	p.WithNow(fixedClock(t0.Add(5*time.Minute + time.Second)))
	_, err = p.Acquire()
	require.NoError(t, err)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	p := NewPool("web", "", []string{"key-a"}, nil, time.Minute)

	for i := 0; i < 2; i++ {
		c, err := p.Acquire()
		require.NoError(t, err)
		p.Report(c, TransientError)
	}
	c, err := p.Acquire()
	require.NoError(t, err)
	p.Report(c, Success)

	st := p.Status()
	assert.Zero(t, st.Credentials[0].ConsecutiveFailures)

	// The streak starts over; a single new failure does not trip the backoff.
	c, err = p.Acquire()
	require.NoError(t, err)
	p.Report(c, TransientError)
	_, err = p.Acquire()
	require.NoError(t, err)
}

func TestAcquireEmptyPool(t *testing.T) {
	p := NewPool("news", "", nil, nil, time.Minute)
	require.Zero(t, p.Size())

	_, err := p.Acquire()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnavailable))
}

func TestManagerRoutesByService(t *testing.T) {
	m := NewManager([]PoolSpec{
		{Service: "news", Primary: []string{"key-n"}, Cooldown: time.Minute},
		{Service: "video", Primary: []string{"key-v"}, Cooldown: time.Minute},
		{Service: "empty"},
	})

	cred, err := m.Acquire("news")
	require.NoError(t, err)
	assert.Equal(t, "news", cred.Service)

	_, err = m.Acquire("empty")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnavailable))

	_, err = m.Acquire("unknown")
	require.Error(t, err)

	m.Report(cred, Success)
	m.Report(nil, Success)

	status := m.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "news", status[0].Service)
	assert.Equal(t, "video", status[1].Service)
}
