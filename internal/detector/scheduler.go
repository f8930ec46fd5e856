package detector

import (
	"sort"

	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/view"
)

// scheduler holds one source's fairness accounting: the source-wide
// outstanding-request flag and the per-destination attempt counts.
// Attempt counts only ever grow, whether the probe succeeds or fails.
type scheduler struct {
	outstanding bool
	attempts    map[member.ID]int
}

func newScheduler() *scheduler {
	return &scheduler{attempts: make(map[member.ID]int)}
}

// targets returns every valid destination holding the lowest attempt count,
// in ascending ID order. A destination is valid while the source does not
// believe it dead and, if suspect, its countdown has not run out.
func (s *scheduler) targets(views *view.Store) []member.ID {
	if s.outstanding {
		return nil
	}
	var (
		best []member.ID
		min  int
	)
	for _, peer := range views.Peers() {
		v, _ := views.Get(peer)
		if v.State == member.Dead {
			continue
		}
		if v.State == member.Suspect && v.Countdown <= 0 {
			continue
		}
		n := s.attempts[peer]
		switch {
		case best == nil || n < min:
			best, min = []member.ID{peer}, n
		case n == min:
			best = append(best, peer)
		}
	}
	sort.Slice(best, func(i, j int) bool { return best[i] < best[j] })
	return best
}
