// Package gossip implements the dissemination layer: the per-member buffer
// of pending assertions, bounded piggyback selection, and the
// merge/compaction rules that resolve conflicting assertions against a
// member's current beliefs.
package gossip

import "github.com/aldermoor/swim/internal/member"

// Item is a single piggybacked assertion about one member's state. Items
// ride on probe and ack traffic; they carry no sender identity, only the
// claim itself.
type Item struct {
	Target      member.ID
	Incarnation member.Incarnation
	State       member.State
}

// Supersedes reports whether i is more authoritative than other for the
// same target: higher incarnation wins, then higher-ranked state.
func (i Item) Supersedes(other Item) bool {
	if i.Incarnation != other.Incarnation {
		return i.Incarnation > other.Incarnation
	}
	return i.State.Rank() > other.State.Rank()
}
