package member

import "sort"

// ID uniquely identifies a member of the ensemble. The member set is fixed
// at startup; IDs are never created or destroyed during a run.
type ID uint16

// Incarnation is a member's self-issued generation counter. Only the member
// itself ever increases it; peers use it to override stale beliefs. Nil
// marks a member as dead for the entire run.
type Incarnation uint32

// Nil is the incarnation of a member that is dead for the whole run.
const Nil Incarnation = 0

// State is a believed liveness value. The declaration order is the rank
// order used to resolve conflicts at equal incarnation: Dead outranks
// Suspect outranks Alive.
type State byte

const (
	Alive State = iota
	Suspect
	Dead
)

func (s State) String() string {
	switch s {
	case Alive:
		return "alive"
	case Suspect:
		return "suspect"
	case Dead:
		return "dead"
	}
	return "unknown"
}

// Rank orders states at equal incarnation.
func (s State) Rank() int { return int(s) }

// PeerView is one member's belief about a single peer. Countdown is the
// number of failed probes remaining before a Suspect peer is expired; it is
// reset whenever the state is freshly set.
type PeerView struct {
	Incarnation Incarnation
	State       State
	Countdown   int
}

// Behind reports whether the assertion (inc, state) carries strictly new
// information relative to the view: a higher incarnation, or a higher-ranked
// state at the same incarnation.
func (v PeerView) Behind(inc Incarnation, state State) bool {
	if inc != v.Incarnation {
		return inc > v.Incarnation
	}
	return state.Rank() > v.State.Rank()
}

// Outranks reports whether the view is strictly ahead of the assertion
// (inc, state), i.e. the assertion is stale and must be discarded.
func (v PeerView) Outranks(inc Incarnation, state State) bool {
	if inc != v.Incarnation {
		return inc < v.Incarnation
	}
	return state.Rank() < v.State.Rank()
}

// Group is the ground-truth roster of a run: every member mapped to its
// actual incarnation. Members at Nil are dead before the run begins and
// stay dead; the rest of the ensemble must detect this through the
// protocol.
type Group map[ID]Incarnation

func (g Group) IsLive(id ID) bool {
	inc, ok := g[id]
	return ok && inc != Nil
}

func (g Group) Contains(id ID) bool {
	_, ok := g[id]
	return ok
}

// Live returns the IDs of live members in ascending order.
func (g Group) Live() []ID {
	return g.where(func(inc Incarnation) bool { return inc != Nil })
}

// Dead returns the IDs of dead members in ascending order.
func (g Group) Dead() []ID {
	return g.where(func(inc Incarnation) bool { return inc == Nil })
}

// IDs returns every member ID in ascending order.
func (g Group) IDs() []ID {
	return g.where(func(Incarnation) bool { return true })
}

func (g Group) where(cond func(Incarnation) bool) []ID {
	ids := make([]ID, 0, len(g))
	for id, inc := range g {
		if cond(inc) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
