package gossip

import (
	"sort"

	"github.com/aldermoor/swim/internal/member"
)

// Buffer holds the assertions a member still wants to piggyback onto
// outgoing messages. At most one entry is kept per target. Each entry
// counts how many messages it has been attached to; entries at the
// dissemination limit remain known but are never selected again.
type Buffer struct {
	limit   int
	entries map[member.ID]*entry
}

type entry struct {
	item  Item
	sends int
}

func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit, entries: make(map[member.ID]*entry)}
}

func (b *Buffer) Len() int { return len(b.entries) }

// Items returns every buffered item, disseminable or not, ordered by
// ascending target ID.
func (b *Buffer) Items() []Item {
	items := make([]Item, 0, len(b.entries))
	for _, e := range b.entries {
		items = append(items, e.item)
	}
	sortItems(items)
	return items
}

// Sends returns the dissemination counter for target's entry.
func (b *Buffer) Sends(target member.ID) (int, bool) {
	e, ok := b.entries[target]
	if !ok {
		return 0, false
	}
	return e.sends, true
}

// Put enqueues a locally generated assertion. A superseded entry is
// replaced and its counter restarted, since the replacement is news that
// has never been disseminated. Stale input is a no-op.
func (b *Buffer) Put(item Item) bool {
	e, ok := b.entries[item.Target]
	if ok && !item.Supersedes(e.item) {
		return false
	}
	b.entries[item.Target] = &entry{item: item}
	return true
}

// Select chooses the items to piggyback on one outgoing message. Entries at
// the dissemination limit are excluded outright. If the remaining entries
// and extra fit within capacity they are all sent; otherwise the entries
// with the smallest counters fill the room left by extra, ties broken by
// ascending target ID so runs are reproducible. Select does not mutate the
// buffer: the probe path follows it with MarkSent, the reply path accounts
// for the send during Reseed.
func (b *Buffer) Select(extra []Item, capacity int) []Item {
	candidates := make([]*entry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.sends < b.limit {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sends != candidates[j].sends {
			return candidates[i].sends < candidates[j].sends
		}
		return candidates[i].item.Target < candidates[j].item.Target
	})
	room := capacity - len(extra)
	if room < 0 {
		room = 0
	}
	if len(candidates) > room {
		candidates = candidates[:room]
	}
	out := make([]Item, 0, len(candidates)+len(extra))
	for _, e := range candidates {
		out = append(out, e.item)
	}
	return append(out, extra...)
}

// MarkSent increments the counters of buffered items that were just
// attached to an outgoing message. Items without an entry (freshly
// synthesized extras) are ignored; they begin counting when they enter a
// buffer through Reseed.
func (b *Buffer) MarkSent(items []Item) {
	for _, it := range items {
		if e, ok := b.entries[it.Target]; ok && e.item == it {
			e.sends++
		}
	}
}

// Reseed replaces the buffer contents with a compacted update set. An
// entry keeps the counter it had before the merge, or starts at zero when
// the item was newly learned, and is charged one send if it was part of
// the selection just attached to the outgoing reply.
func (b *Buffer) Reseed(compacted, sent []Item) {
	sentSet := make(map[Item]struct{}, len(sent))
	for _, it := range sent {
		sentSet[it] = struct{}{}
	}
	next := make(map[member.ID]*entry, len(compacted))
	for _, it := range compacted {
		sends := 0
		if prev, ok := b.entries[it.Target]; ok && prev.item == it {
			sends = prev.sends
		}
		if _, ok := sentSet[it]; ok {
			sends++
		}
		next[it.Target] = &entry{item: it, sends: sends}
	}
	b.entries = next
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Target < items[j].Target })
}
