package view_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/view"
)

var _ = Describe("Store", func() {
	var s *view.Store

	BeforeEach(func() {
		s = view.New(2, []member.ID{1, 2, 3, 4}, 3)
	})

	It("Should seed every peer alive at incarnation 1 with a full countdown", func() {
		for _, peer := range []member.ID{1, 3, 4} {
			v, ok := s.Get(peer)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(member.PeerView{Incarnation: 1, State: member.Alive, Countdown: 3}))
		}
	})

	It("Should not hold a view of the observer itself", func() {
		Expect(s.Knows(2)).To(BeFalse())
		Expect(s.Peers()).To(Equal([]member.ID{1, 3, 4}))
	})

	It("Should store writes verbatim", func() {
		next := member.PeerView{Incarnation: 4, State: member.Suspect, Countdown: 1}
		s.Set(3, next)
		v, _ := s.Get(3)
		Expect(v).To(Equal(next))
	})
})
