package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamguard/pkg/logger"
)

func newTestCallStore(kv KeyValueStore) (*CallContextStore, *fakeClock, *StateWriter) {
	clock := newFakeClock()
	w := NewStateWriter(kv, 64, time.Second, nil, logger.NewNop())
	s := NewCallContextStore(DefaultCorrelationWindow, w, logger.NewNop())
	s.SetClock(clock.Now)
	return s, clock, w
}

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+91 98765 43210", "9876543210"},
		{"09876543210", "9876543210"},
		{"9876543210", "9876543210"},
		{"  ", ""},
		{"vm-sbiinb", "VM-SBIINB"},
		{"12345", "12345"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeNumber(tt.in), tt.in)
	}
}

func TestCallContextWindow(t *testing.T) {
	s, clock, _ := newTestCallStore(nil)

	s.RecordSuspiciousCall("+91 98765 43210")
	assert.True(t, s.IsRecentlySuspicious("9876543210"))

	clock.Advance(4*time.Minute + 59*time.Second)
	assert.True(t, s.IsRecentlySuspicious("09876543210"))

	clock.Advance(time.Second)
	assert.False(t, s.IsRecentlySuspicious("9876543210"), "exactly the window is expired")

	assert.False(t, s.IsRecentlySuspicious("9123456780"))
	assert.False(t, s.IsRecentlySuspicious(""))
}

func TestCallContextExpiresAfterWindowPlusOneMilli(t *testing.T) {
	s, clock, _ := newTestCallStore(nil)

	s.RecordSuspiciousCall("9876543210")
	clock.Advance(5*time.Minute + time.Millisecond)
	assert.False(t, s.IsRecentlySuspicious("9876543210"))
}

func TestCallContextPrunesOnInsert(t *testing.T) {
	kv := newMemKV()
	s, clock, w := newTestCallStore(kv)

	s.RecordSuspiciousCall("9876543210")
	clock.Advance(6 * time.Minute)
	s.RecordSuspiciousCall("9123456780")
	require.NoError(t, w.Flush(context.Background()))

	assert.Equal(t, 1, s.Len())
	_, ok := s.Record("9876543210")
	assert.False(t, ok)

	stored, err := kv.HGetAll(context.Background(), KeyCallRecords)
	require.NoError(t, err)
	assert.Equal(t, []string{"9123456780"}, keys(stored))
}

func TestCallContextIgnoresEmptyNumber(t *testing.T) {
	s, _, _ := newTestCallStore(nil)
	s.RecordSuspiciousCall("   ")
	assert.Zero(t, s.Len())
}

func TestCallContextLoad(t *testing.T) {
	kv := newMemKV()
	s, clock, _ := newTestCallStore(kv)
	now := clock.Now()

	require.NoError(t, kv.HSet(context.Background(), KeyCallRecords,
		"9876543210", strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10),
		"9123456780", strconv.FormatInt(now.Add(-10*time.Minute).UnixMilli(), 10),
		"9000000000", "garbage",
	))

	require.NoError(t, s.Load(context.Background(), kv))
	assert.True(t, s.IsRecentlySuspicious("9876543210"))
	assert.False(t, s.IsRecentlySuspicious("9123456780"))
	assert.Equal(t, 1, s.Len())
}

func TestCallContextLoadStoreDown(t *testing.T) {
	kv := newMemKV()
	kv.fail = errStoreDown
	s, _, _ := newTestCallStore(kv)

	err := s.Load(context.Background(), kv)
	require.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestCallContextConcurrent(t *testing.T) {
	s, _, w := newTestCallStore(newMemKV())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := fmt.Sprintf("98765%05d", i)
			s.RecordSuspiciousCall(n)
			assert.True(t, s.IsRecentlySuspicious(n))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
	require.NoError(t, w.Flush(context.Background()))
}

func TestCallOTPCorrelator(t *testing.T) {
	s, clock, _ := newTestCallStore(nil)
	c := NewCallOTPCorrelator(s)

	assert.False(t, c.HasCorrelation("9876543210", "Your OTP is 4821"), "no call recorded")

	s.RecordSuspiciousCall("9876543210")
	assert.True(t, c.HasCorrelation("+919876543210", "Your OTP is 4821"))
	assert.False(t, c.HasCorrelation("9876543210", "call me back"), "no code")
	assert.False(t, c.HasCorrelation("9876543210", "ref 1234567"), "seven digits is not an OTP")
	assert.False(t, c.HasCorrelation("9123456780", "Your OTP is 4821"), "different number")

	clock.Advance(5*time.Minute + time.Millisecond)
	assert.False(t, c.HasCorrelation("9876543210", "Your OTP is 4821"))
}

func TestSuspiciousCallDetector(t *testing.T) {
	trusted := NewTrustedSenderRegistry(nil, newMemContacts(), logger.NewNop())
	_, err := trusted.AddContact(context.Background(), contact("+91 98765 43210", "Mom"))
	require.NoError(t, err)

	d := NewSuspiciousCallDetector(trusted)
	assert.True(t, d.IsSuspicious(""))
	assert.False(t, d.IsSuspicious("9876543210"))
	assert.True(t, d.IsSuspicious("9123456780"))
}

func TestStateWriter(t *testing.T) {
	t.Run("flush applies queued writes", func(t *testing.T) {
		kv := newMemKV()
		w := NewStateWriter(kv, 4, time.Second, nil, logger.NewNop())
		assert.True(t, w.Enqueue("op", func(ctx context.Context, kv KeyValueStore) error {
			return kv.SAdd(ctx, "k", "v")
		}))
		assert.Equal(t, 1, w.Pending())
		require.NoError(t, w.Flush(context.Background()))
		assert.Zero(t, w.Pending())
		members, _ := kv.SMembers(context.Background(), "k")
		assert.Equal(t, []string{"v"}, members)
	})

	t.Run("full queue drops", func(t *testing.T) {
		w := NewStateWriter(newMemKV(), 1, time.Second, nil, logger.NewNop())
		noop := func(context.Context, KeyValueStore) error { return nil }
		assert.True(t, w.Enqueue("a", noop))
		assert.False(t, w.Enqueue("b", noop))
		assert.Equal(t, int64(1), w.Dropped())
	})

	t.Run("store errors are counted not returned", func(t *testing.T) {
		kv := newMemKV()
		kv.fail = errStoreDown
		w := NewStateWriter(kv, 4, time.Second, nil, logger.NewNop())
		w.Enqueue("op", func(ctx context.Context, kv KeyValueStore) error { return kv.SAdd(ctx, "k", "v") })
		require.NoError(t, w.Flush(context.Background()))
		assert.Equal(t, int64(1), w.Failed())
	})

	t.Run("nil store is a no-op", func(t *testing.T) {
		w := NewStateWriter(nil, 4, time.Second, nil, logger.NewNop())
		assert.False(t, w.Enabled())
		assert.False(t, w.Enqueue("op", func(context.Context, KeyValueStore) error { return nil }))
		require.NoError(t, w.Flush(context.Background()))
	})

	t.Run("run drains until cancelled", func(t *testing.T) {
		kv := newMemKV()
		w := NewStateWriter(kv, 4, time.Second, nil, logger.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()
		w.Enqueue("op", func(ctx context.Context, kv KeyValueStore) error { return kv.SAdd(ctx, "k", "v") })
		assert.Eventually(t, func() bool {
			members, _ := kv.SMembers(context.Background(), "k")
			return len(members) == 1
		}, time.Second, 5*time.Millisecond)
		cancel()
		<-done
	})
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
