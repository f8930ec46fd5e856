package gossip

import (
	"github.com/cockroachdb/errors"

	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/view"
)

// Compact merges any number of item sets (incoming gossip, the receiver's
// own buffer, synthesized extras) into at most one item per target,
// discarding anything stale relative to the observer's current views. Among
// surviving items for a target the most authoritative wins. Items about the
// observer itself bypass the staleness check; the observer's own
// incarnation is authoritative and self items exist only to be
// re-disseminated (refutations).
//
// An item referencing a member outside the observer's table is an invariant
// violation, not a recoverable condition.
func Compact(views *view.Store, sets ...[]Item) ([]Item, error) {
	best := make(map[member.ID]Item)
	for _, set := range sets {
		for _, it := range set {
			if it.Target != views.Observer() {
				v, ok := views.Get(it.Target)
				if !ok {
					return nil, errors.Newf("gossip: item references unknown member %d", it.Target)
				}
				if v.Outranks(it.Incarnation, it.State) {
					continue
				}
			}
			if cur, ok := best[it.Target]; !ok || it.Supersedes(cur) {
				best[it.Target] = it
			}
		}
	}
	items := make([]Item, 0, len(best))
	for _, it := range best {
		items = append(items, it)
	}
	sortItems(items)
	return items, nil
}

// Apply overwrites the observer's views with every compacted item that
// carries strictly new information, resetting the suspicion countdown. It
// returns the number of views that changed, the effective gossip volume of
// the update set. Items about the observer itself are skipped; a member
// holds no view of itself.
func Apply(views *view.Store, items []Item, timeout int) int {
	changed := 0
	for _, it := range items {
		if it.Target == views.Observer() {
			continue
		}
		v, ok := views.Get(it.Target)
		if !ok || !v.Behind(it.Incarnation, it.State) {
			continue
		}
		views.Set(it.Target, member.PeerView{
			Incarnation: it.Incarnation,
			State:       it.State,
			Countdown:   timeout,
		})
		changed++
	}
	return changed
}
