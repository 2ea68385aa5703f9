package state

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func TestStateRecord(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clk := clocktesting.NewFakePassiveClock(start)
	s := New(clk)

	snap := s.Snapshot()
	assert.Equal(t, start, snap.LastEvent)
	assert.Equal(t, int64(0), snap.HandledCount)

	clk.SetTime(start.Add(time.Minute))
	assert.Equal(t, start.Add(time.Minute), s.RecordEvent())
	assert.Equal(t, int64(1), s.RecordHandled())

	// a clock going backward does not move the timestamp
	clk.SetTime(start)
	assert.Equal(t, start.Add(time.Minute), s.RecordEvent())

	snap = s.Snapshot()
	assert.Equal(t, start.Add(time.Minute), snap.LastEvent)
	assert.Equal(t, int64(1), snap.HandledCount)
}

func TestSnapshotJSON(t *testing.T) {
	clk := clocktesting.NewFakePassiveClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	s := New(clk)
	s.RecordHandled()
	s.RecordHandled()

	bs, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_event":"2024-05-01T10:00:00Z","handled_count":2}`, string(bs))
}

func TestStateConcurrent(t *testing.T) {
	s := New(nil)
	const writers, perWriter = 8, 200

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			var prev Snapshot
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				assert.GreaterOrEqual(t, snap.HandledCount, prev.HandledCount)
				assert.False(t, snap.LastEvent.Before(prev.LastEvent))
				prev = snap
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				s.RecordEvent()
				s.RecordHandled()
			}
		}()
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	assert.Equal(t, int64(writers*perWriter), s.Snapshot().HandledCount)
}
