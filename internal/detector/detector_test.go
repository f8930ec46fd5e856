package detector_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aldermoor/swim/internal/detector"
	"github.com/aldermoor/swim/internal/gossip"
	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/stats"
)

var _ = Describe("Detector", func() {
	var (
		d   *detector.Detector
		cfg detector.Config
	)

	BeforeEach(func() {
		cfg = detector.Config{SuspicionTimeout: 3, DisseminationLimit: 2, PiggybackCapacity: 2}
		d = detector.New(2, []member.ID{1, 2, 3, 4}, cfg, stats.NewCollector(nil))
	})

	Describe("BuildProbe", func() {
		It("Should carry the current view of the destination and leave views and round untouched", func() {
			p, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(p.View).To(Equal(member.PeerView{Incarnation: 1, State: member.Alive, Countdown: 3}))
			Expect(p.Round).To(Equal(0))
			Expect(d.Round()).To(Equal(0))
		})
		It("Should mark the request pending and count the attempt", func() {
			_, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(d.Outstanding()).To(BeTrue())
			Expect(d.Attempts(3)).To(Equal(1))
		})
		It("Should refuse a second probe while one is outstanding", func() {
			_, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			_, err = d.BuildProbe(4)
			Expect(err).To(HaveOccurred())
		})
		It("Should charge selected gossip with a send", func() {
			d.Buffer().Put(gossip.Item{Target: 1, Incarnation: 1, State: member.Suspect})
			p, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Items).To(HaveLen(1))
			sends, _ := d.Buffer().Sends(1)
			Expect(sends).To(Equal(1))
		})
	})

	Describe("HandleProbe", func() {
		It("Should ack with the unchanged incarnation when the report is current", func() {
			ack, err := d.HandleProbe(detector.Probe{
				View: member.PeerView{Incarnation: 1, State: member.Alive},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(ack.Incarnation).To(Equal(member.Incarnation(1)))
			Expect(d.Incarnation()).To(Equal(member.Incarnation(1)))
		})

		It("Should adopt past a carried incarnation newer than its own", func() {
			ack, err := d.HandleProbe(detector.Probe{
				View: member.PeerView{Incarnation: 5, State: member.Alive},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(ack.Incarnation).To(Equal(member.Incarnation(6)))
			Expect(d.Incarnation()).To(Equal(member.Incarnation(6)))
		})

		It("Should refute suspicion by bumping its incarnation and gossiping the refutation", func() {
			ack, err := d.HandleProbe(detector.Probe{
				View: member.PeerView{Incarnation: 1, State: member.Suspect},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(ack.Incarnation).To(Equal(member.Incarnation(2)))
			refutation := gossip.Item{Target: 2, Incarnation: 2, State: member.Alive}
			Expect(ack.Items).To(ContainElement(refutation))
			// The refutation entered the buffer charged with the send.
			sends, ok := d.Buffer().Sends(2)
			Expect(ok).To(BeTrue())
			Expect(sends).To(Equal(1))
		})

		It("Should apply carried gossip to its own views", func() {
			_, err := d.HandleProbe(detector.Probe{
				View:  member.PeerView{Incarnation: 1, State: member.Alive},
				Items: []gossip.Item{{Target: 1, Incarnation: 1, State: member.Dead}},
			})
			Expect(err).ToNot(HaveOccurred())
			v, _ := d.Views().Get(1)
			Expect(v.State).To(Equal(member.Dead))
			// The item was learned and remains disseminable.
			sends, ok := d.Buffer().Sends(1)
			Expect(ok).To(BeTrue())
			Expect(sends).To(Equal(0))
		})
	})

	Describe("HandleAck", func() {
		It("Should advance the round and release the pending request", func() {
			_, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(d.HandleAck(3, detector.Ack{Incarnation: 1})).To(Succeed())
			Expect(d.Round()).To(Equal(1))
			Expect(d.Outstanding()).To(BeFalse())
		})

		It("Should fold a newer reported incarnation in as an alive assertion", func() {
			d.Views().Set(3, member.PeerView{Incarnation: 1, State: member.Suspect, Countdown: 2})
			_, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(d.HandleAck(3, detector.Ack{Incarnation: 2})).To(Succeed())
			v, _ := d.Views().Get(3)
			Expect(v).To(Equal(member.PeerView{Incarnation: 2, State: member.Alive, Countdown: 3}))
		})
	})

	Describe("HandleFailure", func() {
		failedProbe := func() detector.Probe {
			p, err := d.BuildProbe(1)
			Expect(err).ToNot(HaveOccurred())
			return p
		}

		It("Should demote an alive belief to suspect with a full countdown", func() {
			Expect(d.HandleFailure(1, failedProbe())).To(Succeed())
			v, _ := d.Views().Get(1)
			Expect(v).To(Equal(member.PeerView{Incarnation: 1, State: member.Suspect, Countdown: 3}))
			Expect(d.Round()).To(Equal(1))
			Expect(d.Outstanding()).To(BeFalse())
			Expect(d.Buffer().Items()).To(ContainElement(gossip.Item{Target: 1, Incarnation: 1, State: member.Suspect}))
		})

		It("Should burn one countdown tick per failure while suspect", func() {
			for i := 0; i < 2; i++ {
				Expect(d.HandleFailure(1, failedProbe())).To(Succeed())
			}
			v, _ := d.Views().Get(1)
			Expect(v.Countdown).To(Equal(2))
		})

		It("Should ignore a failure whose probe carried an outdated incarnation", func() {
			p := failedProbe()
			d.Views().Set(1, member.PeerView{Incarnation: 2, State: member.Alive, Countdown: 3})
			Expect(d.HandleFailure(1, p)).To(Succeed())
			v, _ := d.Views().Get(1)
			Expect(v.State).To(Equal(member.Alive))
			Expect(d.Round()).To(Equal(1))
		})
	})

	Describe("Expire", func() {
		It("Should declare a countdown-exhausted suspect dead and gossip it", func() {
			d.Views().Set(1, member.PeerView{Incarnation: 1, State: member.Suspect, Countdown: 0})
			Expect(d.Expirable()).To(Equal([]member.ID{1}))
			Expect(d.Expire(1)).To(Succeed())
			v, _ := d.Views().Get(1)
			Expect(v.State).To(Equal(member.Dead))
			Expect(d.Buffer().Items()).To(ContainElement(gossip.Item{Target: 1, Incarnation: 1, State: member.Dead}))
		})
		It("Should refuse to expire a peer whose countdown is still running", func() {
			d.Views().Set(1, member.PeerView{Incarnation: 1, State: member.Suspect, Countdown: 1})
			Expect(d.Expire(1)).ToNot(Succeed())
		})
	})

	Describe("Targets", func() {
		It("Should offer every peer while attempt counts are level", func() {
			Expect(d.Targets(0)).To(Equal([]member.ID{1, 3, 4}))
		})
		It("Should prefer the least-attempted valid targets", func() {
			_, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(d.HandleAck(3, detector.Ack{Incarnation: 1})).To(Succeed())
			Expect(d.Targets(1)).To(Equal([]member.ID{1, 4}))
		})
		It("Should offer nothing while a request is outstanding", func() {
			_, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(d.Targets(0)).To(BeEmpty())
		})
		It("Should offer nothing while the source is ahead of the ensemble", func() {
			_, err := d.BuildProbe(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(d.HandleAck(3, detector.Ack{Incarnation: 1})).To(Succeed())
			Expect(d.Targets(0)).To(BeEmpty())
		})
		It("Should exclude dead peers and suspects with an exhausted countdown", func() {
			d.Views().Set(1, member.PeerView{Incarnation: 1, State: member.Dead, Countdown: 3})
			d.Views().Set(4, member.PeerView{Incarnation: 1, State: member.Suspect, Countdown: 0})
			Expect(d.Targets(0)).To(Equal([]member.ID{3}))
		})
	})
})
