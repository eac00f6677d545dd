// Package feed implements the client-side notification feed: it merges
// server-fetched lists with live-pushed records, applies optimistic
// read-state mutations with rollback, and derives the unread counter.
//
// All state transitions are pure functions from (State, event) to State.
// The unread count is never stored or adjusted incrementally; every
// transition recomputes it from the list, so it cannot drift no matter how
// loads, pushes, and reverts interleave.
package feed

import (
	"sort"
	"time"
)

// Notification is the wire shape of a notification record as pushed and
// listed by the server.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Read      bool                   `json:"read"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
}

// State is the feed at a point in time: the list newest-first, unique by
// ID, and the unread count derived from it.
type State struct {
	Notifications []Notification
	UnreadCount   int
}

// Event is a feed state transition input.
type Event interface{ isEvent() }

// LoadMerged carries a server list response. Server records are adopted
// as-is; locally-held records absent from the response (a push that landed
// while the fetch was in flight) are preserved. This merge-not-replace
// rule is what keeps the push/fetch race from losing data.
type LoadMerged struct {
	ServerList []Notification
}

// Pushed carries a live-pushed record. A record already present is ignored
// entirely, so a duplicate delivery neither duplicates the entry nor flips
// an already-read record back to unread.
type Pushed struct {
	Record Notification
}

// MarkReadOptimistic flips one record to read before the server confirms.
type MarkReadOptimistic struct {
	ID string
}

// MarkReadReverted undoes a failed optimistic flip. It operates on the
// current list, so records added since the flip are untouched.
type MarkReadReverted struct {
	ID string
}

// MarkedAllRead optimistically flips every record to read.
type MarkedAllRead struct{}

func (LoadMerged) isEvent()         {}
func (Pushed) isEvent()             {}
func (MarkReadOptimistic) isEvent() {}
func (MarkReadReverted) isEvent()   {}
func (MarkedAllRead) isEvent()      {}

// Apply computes the next state. The input state is never mutated.
func Apply(state State, event Event) State {
	switch e := event.(type) {
	case LoadMerged:
		return finalize(merge(state.Notifications, e.ServerList))

	case Pushed:
		for _, n := range state.Notifications {
			if n.ID == e.Record.ID {
				return state
			}
		}
		record := e.Record
		// A freshly pushed notification is definitionally unread to the
		// receiving client, whatever the payload claims.
		record.Read = false
		next := make([]Notification, 0, len(state.Notifications)+1)
		next = append(next, record)
		next = append(next, state.Notifications...)
		return finalize(next)

	case MarkReadOptimistic:
		return finalize(setRead(state.Notifications, e.ID, true))

	case MarkReadReverted:
		return finalize(setRead(state.Notifications, e.ID, false))

	case MarkedAllRead:
		next := make([]Notification, len(state.Notifications))
		for i, n := range state.Notifications {
			n.Read = true
			next[i] = n
		}
		return finalize(next)
	}

	return state
}

// merge keeps every server record plus any local record the server list
// does not know about yet, newest first.
func merge(local, server []Notification) []Notification {
	inServer := make(map[string]struct{}, len(server))
	for _, n := range server {
		inServer[n.ID] = struct{}{}
	}

	merged := make([]Notification, 0, len(server)+len(local))
	merged = append(merged, server...)
	for _, n := range local {
		if _, ok := inServer[n.ID]; !ok {
			merged = append(merged, n)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID > merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

func setRead(list []Notification, id string, read bool) []Notification {
	next := make([]Notification, len(list))
	for i, n := range list {
		if n.ID == id {
			n.Read = read
		}
		next[i] = n
	}
	return next
}

// finalize recomputes the unread count from the list. Every transition
// funnels through here; the counter has no other source.
func finalize(list []Notification) State {
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return State{Notifications: list, UnreadCount: count}
}
