package sim

import (
	"github.com/aldermoor/swim/internal/detector"
	"github.com/aldermoor/swim/internal/member"
)

// Converged reports whether every live member's belief about every peer
// matches ground truth: live peers believed Alive, dead peers believed
// Dead.
func Converged(truth member.Group, detectors map[member.ID]*detector.Detector) bool {
	for _, id := range truth.Live() {
		det := detectors[id]
		for _, peer := range det.Views().Peers() {
			v, _ := det.Views().Get(peer)
			if truth.IsLive(peer) {
				if v.State != member.Alive {
					return false
				}
			} else if v.State != member.Dead {
				return false
			}
		}
	}
	return true
}

// Beliefs tallies the ensemble-wide belief gauges: members believed
// Suspect or Dead by at least one live observer, and the unordered
// observer/target pairs holding such a belief, each pair counted once.
func Beliefs(truth member.Group, detectors map[member.ID]*detector.Detector) (suspect, dead, pairSuspect, pairDead int) {
	var (
		suspectM = make(map[member.ID]struct{})
		deadM    = make(map[member.ID]struct{})
		pairS    = make(map[[2]member.ID]struct{})
		pairD    = make(map[[2]member.ID]struct{})
	)
	for _, id := range truth.Live() {
		det := detectors[id]
		for _, peer := range det.Views().Peers() {
			v, _ := det.Views().Get(peer)
			switch v.State {
			case member.Suspect:
				suspectM[peer] = struct{}{}
				pairS[pairKey(id, peer)] = struct{}{}
			case member.Dead:
				deadM[peer] = struct{}{}
				pairD[pairKey(id, peer)] = struct{}{}
			}
		}
	}
	return len(suspectM), len(deadM), len(pairS), len(pairD)
}

func pairKey(a, b member.ID) [2]member.ID {
	if a < b {
		return [2]member.ID{a, b}
	}
	return [2]member.ID{b, a}
}
