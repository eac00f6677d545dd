package feed

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, read bool, at time.Time) Notification {
	return Notification{ID: id, Type: "task_commented", Title: "t", Read: read, CreatedAt: at}
}

func ids(list []Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}

func TestLoadMergedAdoptsServerList(t *testing.T) {
	base := time.Now()
	state := Apply(State{}, LoadMerged{ServerList: []Notification{
		rec("b", false, base.Add(time.Minute)),
		rec("a", true, base),
	}})

	assert.Equal(t, []string{"b", "a"}, ids(state.Notifications))
	assert.Equal(t, 1, state.UnreadCount)
}

func TestLoadMergedPreservesLocalOnlyRecords(t *testing.T) {
	base := time.Now()

	// A push lands, then a list response that predates it comes back.
	state := Apply(State{}, Pushed{Record: rec("pushed", false, base.Add(time.Hour))})
	state = Apply(state, LoadMerged{ServerList: []Notification{
		rec("old-1", true, base),
		rec("old-2", false, base.Add(time.Minute)),
	}})

	assert.Equal(t, []string{"pushed", "old-2", "old-1"}, ids(state.Notifications))
	assert.Equal(t, 2, state.UnreadCount)
}

func TestLoadMergedServerWinsOnCommonRecords(t *testing.T) {
	base := time.Now()

	state := Apply(State{}, LoadMerged{ServerList: []Notification{rec("a", false, base)}})
	state = Apply(state, MarkReadOptimistic{ID: "a"})

	// Server still says unread: its view replaces the local one.
	state = Apply(state, LoadMerged{ServerList: []Notification{rec("a", false, base)}})

	require.Len(t, state.Notifications, 1)
	assert.False(t, state.Notifications[0].Read)
	assert.Equal(t, 1, state.UnreadCount)
}

func TestPushedRecordIsPrependedAndUnread(t *testing.T) {
	base := time.Now()
	state := Apply(State{}, LoadMerged{ServerList: []Notification{rec("a", true, base)}})

	// Payload claiming read does not matter; arrival makes it unread.
	state = Apply(state, Pushed{Record: rec("b", true, base.Add(time.Minute))})

	require.Equal(t, []string{"b", "a"}, ids(state.Notifications))
	assert.False(t, state.Notifications[0].Read)
	assert.Equal(t, 1, state.UnreadCount)
}

func TestDuplicatePushIsIgnored(t *testing.T) {
	base := time.Now()
	state := Apply(State{}, Pushed{Record: rec("a", false, base)})
	state = Apply(state, MarkReadOptimistic{ID: "a"})

	// Redelivery of the same record must not resurrect the unread flag.
	state = Apply(state, Pushed{Record: rec("a", false, base)})

	require.Len(t, state.Notifications, 1)
	assert.True(t, state.Notifications[0].Read)
	assert.Equal(t, 0, state.UnreadCount)
}

func TestMarkReadRoundTrip(t *testing.T) {
	base := time.Now()
	state := Apply(State{}, LoadMerged{ServerList: []Notification{
		rec("a", false, base),
		rec("b", false, base.Add(time.Minute)),
	}})

	state = Apply(state, MarkReadOptimistic{ID: "a"})
	assert.Equal(t, 1, state.UnreadCount)

	state = Apply(state, MarkReadReverted{ID: "a"})
	assert.Equal(t, 2, state.UnreadCount)
}

func TestRevertLeavesInterleavedPushAlone(t *testing.T) {
	base := time.Now()
	state := Apply(State{}, LoadMerged{ServerList: []Notification{rec("a", false, base)}})
	state = Apply(state, MarkReadOptimistic{ID: "a"})

	// A different record arrives between the flip and the revert.
	state = Apply(state, Pushed{Record: rec("b", false, base.Add(time.Minute))})
	state = Apply(state, MarkReadReverted{ID: "a"})

	require.Equal(t, []string{"b", "a"}, ids(state.Notifications))
	assert.False(t, state.Notifications[0].Read)
	assert.False(t, state.Notifications[1].Read)
	assert.Equal(t, 2, state.UnreadCount)
}

func TestMarkedAllReadFlipsEverything(t *testing.T) {
	base := time.Now()
	state := Apply(State{}, LoadMerged{ServerList: []Notification{
		rec("a", false, base),
		rec("b", true, base.Add(time.Minute)),
		rec("c", false, base.Add(2*time.Minute)),
	}})

	state = Apply(state, MarkedAllRead{})

	assert.Equal(t, 0, state.UnreadCount)
	for _, n := range state.Notifications {
		assert.True(t, n.Read, "record %s still unread", n.ID)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	base := time.Now()
	state := Apply(State{}, LoadMerged{ServerList: []Notification{rec("a", false, base)}})

	_ = Apply(state, MarkedAllRead{})

	assert.False(t, state.Notifications[0].Read)
	assert.Equal(t, 1, state.UnreadCount)
}

func TestSortIsDeterministicOnEqualTimestamps(t *testing.T) {
	at := time.Now()
	server := []Notification{
		rec("a", false, at),
		rec("c", false, at),
		rec("b", false, at),
	}

	first := Apply(State{}, LoadMerged{ServerList: server})
	second := Apply(State{}, LoadMerged{ServerList: []Notification{server[2], server[0], server[1]}})

	assert.Equal(t, ids(first.Notifications), ids(second.Notifications))
}

// TestUnreadCountNeverDrifts drives the reducer with random event
// sequences and checks after every step that the counter equals a recount
// of the list, and that the list stays unique by ID.
func TestUnreadCountNeverDrifts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := time.Now()

	for trial := 0; trial < 50; trial++ {
		state := State{}
		for step := 0; step < 200; step++ {
			state = Apply(state, randomEvent(rng, state, base))

			want := 0
			seen := map[string]struct{}{}
			for _, n := range state.Notifications {
				if !n.Read {
					want++
				}
				_, dup := seen[n.ID]
				require.False(t, dup, "trial %d step %d: duplicate id %s", trial, step, n.ID)
				seen[n.ID] = struct{}{}
			}
			require.Equal(t, want, state.UnreadCount, "trial %d step %d", trial, step)
		}
	}
}

func randomEvent(rng *rand.Rand, state State, base time.Time) Event {
	randomID := func() string {
		return fmt.Sprintf("n-%d", rng.Intn(40))
	}
	existingID := func() string {
		if len(state.Notifications) == 0 {
			return randomID()
		}
		return state.Notifications[rng.Intn(len(state.Notifications))].ID
	}

	switch rng.Intn(5) {
	case 0:
		var list []Notification
		used := map[string]struct{}{}
		for i := 0; i < rng.Intn(6); i++ {
			id := randomID()
			if _, ok := used[id]; ok {
				continue
			}
			used[id] = struct{}{}
			list = append(list, rec(id, rng.Intn(2) == 0, base.Add(time.Duration(rng.Intn(3600))*time.Second)))
		}
		return LoadMerged{ServerList: list}
	case 1:
		return Pushed{Record: rec(randomID(), rng.Intn(2) == 0, base.Add(time.Duration(rng.Intn(3600))*time.Second))}
	case 2:
		return MarkReadOptimistic{ID: existingID()}
	case 3:
		return MarkReadReverted{ID: existingID()}
	default:
		return MarkedAllRead{}
	}
}
