package archive_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aldermoor/swim/internal/archive"
	"github.com/aldermoor/swim/internal/stats"
)

var _ = Describe("Archive", func() {
	var a *archive.Archive

	BeforeEach(func() {
		var err error
		a, err = archive.OpenMem()
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() { Expect(a.Close()).To(Succeed()) })

	newReport := func() *stats.Report {
		c := stats.NewCollector(nil)
		c.CountGossip(0, 2)
		c.SnapshotBeliefs(0, 1, 0, 1, 0)
		c.SnapshotBeliefs(1, 0, 1, 0, 1)
		return stats.BuildReport(c, stats.Params{Members: 5, Dead: 1, Seed: 42}, stats.Converged, 31)
	}

	It("Should round trip a rendered report", func() {
		r := newReport()
		Expect(a.Put("baseline", r)).To(Succeed())
		stored, err := a.Get("baseline")
		Expect(err).ToNot(HaveOccurred())
		Expect(string(stored)).To(Equal(r.String()))
	})

	It("Should reload the round series in round order", func() {
		Expect(a.Put("baseline", newReport())).To(Succeed())
		rounds, err := a.Rounds("baseline")
		Expect(err).ToNot(HaveOccurred())
		Expect(rounds).To(HaveLen(2))
		Expect(rounds[0].Round).To(Equal(0))
		Expect(rounds[0].Gossip).To(Equal(2))
		Expect(rounds[0].Suspect).To(Equal(1))
		Expect(rounds[1].Round).To(Equal(1))
		Expect(rounds[1].Dead).To(Equal(1))
	})

	It("Should replace a run stored under the same name", func() {
		Expect(a.Put("baseline", newReport())).To(Succeed())
		c := stats.NewCollector(nil)
		r := stats.BuildReport(c, stats.Params{Members: 3}, stats.DidNotConverge, 9)
		Expect(a.Put("baseline", r)).To(Succeed())
		stored, err := a.Get("baseline")
		Expect(err).ToNot(HaveOccurred())
		Expect(string(stored)).To(ContainSubstring("did_not_converge"))
	})

	It("Should keep runs under distinct names apart", func() {
		Expect(a.Put("a", newReport())).To(Succeed())
		Expect(a.Put("b", newReport())).To(Succeed())
		_, err := a.Get("a")
		Expect(err).ToNot(HaveOccurred())
		rounds, err := a.Rounds("b")
		Expect(err).ToNot(HaveOccurred())
		Expect(rounds).To(HaveLen(2))
	})
})
