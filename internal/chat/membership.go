package chat

import (
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/samber/lo"
)

type JoinResult uint8

const (
	Created JoinResult = iota + 1
	AlreadyPresent
)

type LeaveResult uint8

const (
	Removed LeaveResult = iota + 1
	Absent
)

type memberSet struct {
	mu      sync.RWMutex
	members map[domain.MemberID]struct{}
	dead    bool // detached from the table; retry on a fresh set
}

// MembershipTable is the live view of who is present in which room. It is
// separate from persisted participant history.
type MembershipTable struct {
	rooms sync.Map // domain.RoomID -> *memberSet
}

func NewMembershipTable() *MembershipTable {
	return &MembershipTable{}
}

func (t *MembershipTable) Join(roomID domain.RoomID, memberID domain.MemberID) JoinResult {
	for {
		v, _ := t.rooms.LoadOrStore(roomID, &memberSet{members: make(map[domain.MemberID]struct{})})
		set := v.(*memberSet)

		set.mu.Lock()
		if set.dead {
			set.mu.Unlock()
			continue
		}
		if _, ok := set.members[memberID]; ok {
			set.mu.Unlock()
			return AlreadyPresent
		}
		set.members[memberID] = struct{}{}
		set.mu.Unlock()
		return Created
	}
}

func (t *MembershipTable) Leave(roomID domain.RoomID, memberID domain.MemberID) LeaveResult {
	v, ok := t.rooms.Load(roomID)
	if !ok {
		return Absent
	}
	set := v.(*memberSet)

	set.mu.Lock()
	defer set.mu.Unlock()
	if set.dead {
		return Absent
	}
	if _, ok := set.members[memberID]; !ok {
		return Absent
	}
	delete(set.members, memberID)
	if len(set.members) == 0 {
		set.dead = true
		t.rooms.CompareAndDelete(roomID, set)
	}
	return Removed
}

// ListMembers returns a snapshot; later joins and leaves are not reflected.
func (t *MembershipTable) ListMembers(roomID domain.RoomID) []domain.MemberID {
	v, ok := t.rooms.Load(roomID)
	if !ok {
		return nil
	}
	set := v.(*memberSet)

	set.mu.RLock()
	defer set.mu.RUnlock()
	return lo.Keys(set.members)
}

func (t *MembershipTable) Contains(roomID domain.RoomID, memberID domain.MemberID) bool {
	v, ok := t.rooms.Load(roomID)
	if !ok {
		return false
	}
	set := v.(*memberSet)

	set.mu.RLock()
	defer set.mu.RUnlock()
	_, present := set.members[memberID]
	return present && !set.dead
}

// Rooms counts rooms with at least one member present.
func (t *MembershipTable) Rooms() int {
	n := 0
	t.rooms.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
