package chat

import (
	"sync"
	"testing"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestMembershipTable_JoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	m := NewMembershipTable()

	req.Equal(Created, m.Join("R1", 1))
	req.Equal(AlreadyPresent, m.Join("R1", 1))

	req.Equal([]domain.MemberID{1}, m.ListMembers("R1"))
	req.Equal(1, m.Rooms())
}

func TestMembershipTable_LeaveRemovesEmptyRoom(t *testing.T) {
	req := require.New(t)
	m := NewMembershipTable()
	m.Join("R1", 1)
	m.Join("R1", 2)

	req.Equal(Removed, m.Leave("R1", 1))
	req.Equal(Absent, m.Leave("R1", 1))
	req.Equal(1, m.Rooms())

	req.Equal(Removed, m.Leave("R1", 2))
	req.Zero(m.Rooms())
	req.Empty(m.ListMembers("R1"))
	req.Equal(Absent, m.Leave("R9", 1))
}

func TestMembershipTable_ConcurrentJoinLeave(t *testing.T) {
	req := require.New(t)
	m := NewMembershipTable()

	// members 1..50 churn while 100 stays
	m.Join("R1", 100)
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id domain.MemberID) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				m.Join("R1", id)
				m.Leave("R1", id)
			}
			m.Join("R1", id)
		}(domain.MemberID(i))
	}
	wg.Wait()

	req.Len(m.ListMembers("R1"), 51)
	req.True(m.Contains("R1", 100))
}

func TestMembershipTable_JoinAfterRoomEmptied(t *testing.T) {
	req := require.New(t)
	m := NewMembershipTable()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Join("R1", 1)
			m.Leave("R1", 1)
		}()
		go func() {
			defer wg.Done()
			m.Join("R1", 2)
		}()
		wg.Wait()

		// member 2 must never be lost to a concurrently deleted set
		req.True(m.Contains("R1", 2))
		m.Leave("R1", 2)
	}
}
