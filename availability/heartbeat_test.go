package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeHeartbeatDriverStore struct {
	ids      []string
	statuses map[string]string
	logged   []string
}

func (f *fakeHeartbeatDriverStore) DriverIDsInPartition(ctx context.Context, workerID, totalWorkers, batchSize, offset int) ([]string, error) {
	if offset >= len(f.ids) {
		return nil, nil
	}
	end := offset + batchSize
	if end > len(f.ids) {
		end = len(f.ids)
	}
	return f.ids[offset:end], nil
}

func (f *fakeHeartbeatDriverStore) LatestStatus(ctx context.Context, driverID string) (string, error) {
	return f.statuses[driverID], nil
}

func (f *fakeHeartbeatDriverStore) AppendStatusLog(ctx context.Context, driverID, status, reason string) error {
	f.logged = append(f.logged, driverID+":"+status+":"+reason)
	f.statuses[driverID] = status
	return nil
}

type fakeHeartbeatCache struct {
	present map[string]bool
}

func (f *fakeHeartbeatCache) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if f.present[k] {
			n++
		}
	}
	return n, nil
}

func TestHeartbeatMonitor_ForcesInactiveWhenHeartbeatMissing(t *testing.T) {
	store := &fakeHeartbeatDriverStore{
		ids:      []string{"d1", "d2"},
		statuses: map[string]string{"d1": "ACTIVE", "d2": "IN_WORK"},
	}
	cache := &fakeHeartbeatCache{present: map[string]bool{"driver:heartbeat:d2": true}}

	m := NewHeartbeatMonitor(store, cache, nil, time.Minute, 200, "driver:heartbeat:")
	m.sweep(context.Background())

	require.Equal(t, "INACTIVE", store.statuses["d1"])
	require.Equal(t, "IN_WORK", store.statuses["d2"])
	require.Len(t, store.logged, 1)
	require.Equal(t, "d1:INACTIVE:inactivity_timeout", store.logged[0])
}

func TestHeartbeatMonitor_SkipsAlreadyInactive(t *testing.T) {
	store := &fakeHeartbeatDriverStore{
		ids:      []string{"d1"},
		statuses: map[string]string{"d1": "INACTIVE"},
	}
	cache := &fakeHeartbeatCache{present: map[string]bool{}}

	m := NewHeartbeatMonitor(store, cache, nil, time.Minute, 200, "driver:heartbeat:")
	m.sweep(context.Background())

	require.Empty(t, store.logged)
}
