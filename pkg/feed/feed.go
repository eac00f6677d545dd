package feed

import (
	"context"
	"sync"
)

// Server is the backend surface the feed reconciles against. The HTTP
// client implementing it is up to the embedding application.
type Server interface {
	List(ctx context.Context) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

// Feed is the live notification feed. Loads, pushes, optimistic flips
// and reverts are all serialized through one mutex and applied via the
// pure reducer, so concurrent event sources never interleave
// incoherently.
type Feed struct {
	server Server

	mu    sync.Mutex
	state State
}

func New(server Server) *Feed {
	return &Feed{server: server}
}

func (f *Feed) dispatch(event Event) {
	f.mu.Lock()
	f.state = Apply(f.state, event)
	f.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]Notification, len(f.state.Notifications))
	copy(list, f.state.Notifications)
	return State{Notifications: list, UnreadCount: f.state.UnreadCount}
}

// UnreadCount returns the derived unread counter.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.UnreadCount
}

// Load fetches the server list and merges it into local state. Records
// pushed while the fetch was in flight survive the merge.
func (f *Feed) Load(ctx context.Context) error {
	list, err := f.server.List(ctx)
	if err != nil {
		return err
	}
	f.dispatch(LoadMerged{ServerList: list})
	return nil
}

// OnPush feeds a live-pushed record into the state. Duplicate deliveries
// of the same record are ignored.
func (f *Feed) OnPush(record Notification) {
	f.dispatch(Pushed{Record: record})
}

// MarkAsRead flips the record to read immediately, then confirms with the
// server. The flip happens only when the record exists locally and is
// unread; a failed server call reverts only a flip that actually changed
// state, against the state as it is at revert time, leaving anything that
// arrived in between untouched. Callers wanting the flip without blocking
// on the network run this on its own goroutine.
func (f *Feed) MarkAsRead(ctx context.Context, id string) error {
	f.mu.Lock()
	flipped := false
	for _, n := range f.state.Notifications {
		if n.ID == id && !n.Read {
			flipped = true
			break
		}
	}
	if flipped {
		f.state = Apply(f.state, MarkReadOptimistic{ID: id})
	}
	f.mu.Unlock()

	if err := f.server.MarkRead(ctx, id); err != nil {
		if flipped {
			f.dispatch(MarkReadReverted{ID: id})
		}
		return err
	}
	return nil
}

// MarkAllAsRead flips everything to read immediately, then confirms with
// the server. Bulk operations revert by reload, not by inverse-apply: on
// failure the feed resynchronizes from a fresh server list.
func (f *Feed) MarkAllAsRead(ctx context.Context) error {
	f.dispatch(MarkedAllRead{})

	if err := f.server.MarkAllRead(ctx); err != nil {
		if list, loadErr := f.server.List(ctx); loadErr == nil {
			f.dispatch(LoadMerged{ServerList: list})
		}
		return err
	}
	return nil
}
