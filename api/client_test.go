package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewardPollerTracksChanges(t *testing.T) {
	var reward atomic.Int64

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"address":"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","reward":%d}`, reward.Load())
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	poller := NewRewardPoller(client, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	var changes int64
	poller.OnRewardChange(func(oldReward, newReward int64) {
		atomic.AddInt64(&changes, 1)
	})

	poller.PollOnce()
	require.Equal(t, int64(0), poller.LastReward())
	require.Equal(t, int64(0), atomic.LoadInt64(&changes))

	reward.Store(4166)
	poller.PollOnce()
	require.Equal(t, int64(4166), poller.LastReward())
	require.Equal(t, int64(1), atomic.LoadInt64(&changes))

	// unchanged value fires no callback
	poller.PollOnce()
	require.Equal(t, int64(1), atomic.LoadInt64(&changes))
}

func TestRewardPollerConcurrentReads(t *testing.T) {
	var reward atomic.Int64

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"reward":%d}`, reward.Load())
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	poller := NewRewardPoller(client, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = poller.LastReward()
			}
		}()
	}

	for i := 0; i < 20; i++ {
		reward.Store(int64(i))
		poller.PollOnce()
	}
	wg.Wait()

	require.Equal(t, int64(19), poller.LastReward())
}
