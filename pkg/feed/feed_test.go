package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer scripts List/MarkRead/MarkAllRead responses. onList lets a
// test interleave work between the fetch and the merge that follows it.
type fakeServer struct {
	mu          sync.Mutex
	list        []Notification
	listErr     error
	markErr     error
	markAllErr  error
	markedRead  []string
	onList      func()
	listCalls   int
	markAllRuns int
}

func (s *fakeServer) List(ctx context.Context) ([]Notification, error) {
	s.mu.Lock()
	s.listCalls++
	cb := s.onList
	list := make([]Notification, len(s.list))
	copy(list, s.list)
	err := s.listErr
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
	return list, err
}

func (s *fakeServer) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.markedRead = append(s.markedRead, id)
	for i := range s.list {
		if s.list[i].ID == id {
			s.list[i].Read = true
		}
	}
	return nil
}

func (s *fakeServer) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markAllRuns++
	if s.markAllErr != nil {
		return s.markAllErr
	}
	for i := range s.list {
		s.list[i].Read = true
	}
	return nil
}

func TestLoadPopulatesFeed(t *testing.T) {
	base := time.Now()
	server := &fakeServer{list: []Notification{
		rec("b", false, base.Add(time.Minute)),
		rec("a", true, base),
	}}
	f := New(server)

	require.NoError(t, f.Load(context.Background()))

	snap := f.Snapshot()
	assert.Equal(t, []string{"b", "a"}, ids(snap.Notifications))
	assert.Equal(t, 1, f.UnreadCount())
}

func TestLoadErrorLeavesStateUntouched(t *testing.T) {
	f := New(&fakeServer{listErr: errors.New("boom")})
	f.OnPush(rec("a", false, time.Now()))

	require.Error(t, f.Load(context.Background()))

	snap := f.Snapshot()
	assert.Equal(t, []string{"a"}, ids(snap.Notifications))
	assert.Equal(t, 1, f.UnreadCount())
}

func TestPushDuringLoadSurvivesMerge(t *testing.T) {
	base := time.Now()
	server := &fakeServer{list: []Notification{rec("old", true, base)}}
	f := New(server)

	// The push lands after the fetch returned but before the merge.
	server.onList = func() {
		f.OnPush(rec("live", false, base.Add(time.Hour)))
	}

	require.NoError(t, f.Load(context.Background()))

	snap := f.Snapshot()
	assert.Equal(t, []string{"live", "old"}, ids(snap.Notifications))
	assert.Equal(t, 1, f.UnreadCount())
}

func TestMarkAsReadConfirmsWithServer(t *testing.T) {
	base := time.Now()
	server := &fakeServer{list: []Notification{rec("a", false, base)}}
	f := New(server)
	require.NoError(t, f.Load(context.Background()))

	require.NoError(t, f.MarkAsRead(context.Background(), "a"))

	assert.Equal(t, []string{"a"}, server.markedRead)
	assert.Equal(t, 0, f.UnreadCount())
}

func TestMarkAsReadRevertsOnServerError(t *testing.T) {
	base := time.Now()
	server := &fakeServer{
		list:    []Notification{rec("a", false, base)},
		markErr: errors.New("conflict"),
	}
	f := New(server)
	require.NoError(t, f.Load(context.Background()))

	require.Error(t, f.MarkAsRead(context.Background(), "a"))

	snap := f.Snapshot()
	require.Len(t, snap.Notifications, 1)
	assert.False(t, snap.Notifications[0].Read)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestMarkAsReadOnAlreadyReadRecordNeverReverts(t *testing.T) {
	base := time.Now()
	server := &fakeServer{
		list:    []Notification{rec("a", true, base)},
		markErr: errors.New("conflict"),
	}
	f := New(server)
	require.NoError(t, f.Load(context.Background()))
	require.Equal(t, 0, f.UnreadCount())

	// The record was adopted as read from the server; there is no flip to
	// roll back, so the failing call must leave it read.
	require.Error(t, f.MarkAsRead(context.Background(), "a"))

	snap := f.Snapshot()
	require.Len(t, snap.Notifications, 1)
	assert.True(t, snap.Notifications[0].Read)
	assert.Equal(t, 0, f.UnreadCount())
}

func TestMarkAsReadOnUnknownRecordLeavesStateAlone(t *testing.T) {
	base := time.Now()
	server := &fakeServer{
		list:    []Notification{rec("a", false, base)},
		markErr: errors.New("conflict"),
	}
	f := New(server)
	require.NoError(t, f.Load(context.Background()))

	require.Error(t, f.MarkAsRead(context.Background(), "ghost"))

	snap := f.Snapshot()
	require.Len(t, snap.Notifications, 1)
	assert.False(t, snap.Notifications[0].Read)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestRevertDoesNotClobberInterleavedPush(t *testing.T) {
	base := time.Now()
	server := &fakeServer{
		list:    []Notification{rec("a", false, base)},
		markErr: errors.New("conflict"),
	}
	f := New(server)
	require.NoError(t, f.Load(context.Background()))

	// Push a second record while the mark-read call is outstanding; the
	// failing call then reverts only its own record.
	f.OnPush(rec("b", false, base.Add(time.Minute)))
	require.Error(t, f.MarkAsRead(context.Background(), "a"))

	snap := f.Snapshot()
	assert.Equal(t, []string{"b", "a"}, ids(snap.Notifications))
	assert.Equal(t, 2, f.UnreadCount())
}

func TestMarkAllAsReadOptimisticAndConfirmed(t *testing.T) {
	base := time.Now()
	server := &fakeServer{list: []Notification{
		rec("a", false, base),
		rec("b", false, base.Add(time.Minute)),
	}}
	f := New(server)
	require.NoError(t, f.Load(context.Background()))

	require.NoError(t, f.MarkAllAsRead(context.Background()))

	assert.Equal(t, 1, server.markAllRuns)
	assert.Equal(t, 0, f.UnreadCount())
}

func TestMarkAllAsReadFailureResyncsFromServer(t *testing.T) {
	base := time.Now()
	server := &fakeServer{
		list: []Notification{
			rec("a", false, base),
			rec("b", true, base.Add(time.Minute)),
		},
		markAllErr: errors.New("unavailable"),
	}
	f := New(server)
	require.NoError(t, f.Load(context.Background()))
	listCallsBefore := server.listCalls

	require.Error(t, f.MarkAllAsRead(context.Background()))

	// The optimistic flip is undone by reloading the server's view.
	assert.Equal(t, listCallsBefore+1, server.listCalls)
	snap := f.Snapshot()
	assert.Equal(t, []string{"b", "a"}, ids(snap.Notifications))
	assert.Equal(t, 1, f.UnreadCount())
}

func TestConcurrentPushesAndReadsKeepCountConsistent(t *testing.T) {
	base := time.Now()
	server := &fakeServer{}
	f := New(server)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				f.OnPush(rec(fmt.Sprintf("n-%d-%d", i, j), false, base))
			}
		}(i)
	}
	wg.Wait()

	snap := f.Snapshot()
	want := 0
	for _, n := range snap.Notifications {
		if !n.Read {
			want++
		}
	}
	assert.Equal(t, want, f.UnreadCount())
	assert.Equal(t, want, len(snap.Notifications))
}
