// Package view holds the per-observer belief table. A Store is owned
// exclusively by the member observing through it; peers influence it only
// via gossip the observer chooses to apply.
package view

import (
	"sort"

	"github.com/aldermoor/swim/internal/member"
)

// Store is one member's table of beliefs about every peer. It performs no
// validation beyond storage; callers are responsible for only writing
// information that is current-or-newer.
type Store struct {
	observer member.ID
	views    map[member.ID]member.PeerView
}

// New seeds a store for observer: every peer starts Alive at incarnation 1
// with a full suspicion countdown.
func New(observer member.ID, peers []member.ID, timeout int) *Store {
	s := &Store{observer: observer, views: make(map[member.ID]member.PeerView, len(peers))}
	for _, p := range peers {
		if p == observer {
			continue
		}
		s.views[p] = member.PeerView{Incarnation: 1, State: member.Alive, Countdown: timeout}
	}
	return s
}

func (s *Store) Observer() member.ID { return s.observer }

func (s *Store) Knows(peer member.ID) bool {
	_, ok := s.views[peer]
	return ok
}

func (s *Store) Get(peer member.ID) (member.PeerView, bool) {
	v, ok := s.views[peer]
	return v, ok
}

func (s *Store) Set(peer member.ID, v member.PeerView) { s.views[peer] = v }

// Peers returns the observed peer IDs in ascending order.
func (s *Store) Peers() []member.ID {
	ids := make([]member.ID, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
