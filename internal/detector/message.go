package detector

import (
	"github.com/aldermoor/swim/internal/gossip"
	"github.com/aldermoor/swim/internal/member"
)

// Probe is the request payload of a single failure-detection probe. View is
// the source's current belief about the destination; the destination reads
// it to adopt a newer incarnation or refute suspicion. Round rides along
// for statistics binning only, never for protocol ordering.
type Probe struct {
	View  member.PeerView
	Round int
	Items []gossip.Item
}

// Ack is the response payload. Incarnation is the responder's own, after
// any adoption or refutation bump performed while handling the probe.
type Ack struct {
	Incarnation member.Incarnation
	Items       []gossip.Item
}
