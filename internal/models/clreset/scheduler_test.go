package clreset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	calls   atomic.Int32
	archive atomic.Bool
	block   chan struct{}
	err     error
}

func (f *fakeStore) Reset(ctx context.Context, archive bool) (int64, error) {
	f.calls.Add(1)
	f.archive.Store(archive)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func TestNewValidates(t *testing.T) {
	_, err := New(&fakeStore{}, "not a spec", "UTC", false)
	assert.Error(t, err)

	_, err = New(&fakeStore{}, "0 0 * * *", "Mars/Olympus", false)
	assert.Error(t, err)

	_, err = New(&fakeStore{}, "0 0 * * *", "Local", false)
	assert.NoError(t, err)
}

func TestRunNow(t *testing.T) {
	store := &fakeStore{}
	s, err := New(store, "0 0 * * *", "UTC", true)
	require.NoError(t, err)

	deleted, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.EqualValues(t, 1, store.calls.Load())
	assert.True(t, store.archive.Load())

	last, lastErr := s.LastRun()
	assert.False(t, last.IsZero())
	assert.NoError(t, lastErr)
}

func TestRunFailureIsRecorded(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	s, err := New(store, "0 0 * * *", "UTC", false)
	require.NoError(t, err)

	_, err = s.RunNow(context.Background())
	assert.Error(t, err)

	// l'échec d'une exécution planifiée ne panique pas
	s.scheduledRun()
	assert.EqualValues(t, 2, store.calls.Load())
	_, lastErr := s.LastRun()
	assert.EqualError(t, lastErr, "disk full")
}

func TestNextIsMidnight(t *testing.T) {
	s, err := New(&fakeStore{}, "0 0 * * *", "UTC", false)
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.Next().UTC()
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Sub(time.Now()) <= 24*time.Hour)
}

func TestStartIsIdempotentAndStopDeregisters(t *testing.T) {
	s, err := New(&fakeStore{}, "0 0 * * *", "UTC", false)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)

	s.Stop()
	assert.Len(t, s.cron.Entries(), 0)
	assert.True(t, s.Next().IsZero())

	// un second Stop ne bloque pas
	s.Stop()
}

func TestScheduledRunFires(t *testing.T) {
	store := &fakeStore{}
	s, err := New(store, "@every 1s", "UTC", false)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return store.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduledRunSkipsWhileRunning(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	s, err := New(store, "0 0 * * *", "UTC", false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunNow(context.Background())
	}()

	require.Eventually(t, func() bool {
		return store.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// une exécution planifiée pendant la remise à zéro manuelle est ignorée
	s.scheduledRun()
	assert.EqualValues(t, 1, store.calls.Load())

	close(store.block)
	wg.Wait()
}
