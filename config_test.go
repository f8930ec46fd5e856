package swim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/aldermoor/swim"
)

var _ = Describe("Config", func() {
	valid := func() swim.Config {
		return swim.Config{
			Members:            5,
			Dead:               1,
			SuspicionTimeout:   3,
			DisseminationLimit: 2,
			PiggybackCapacity:  2,
			MaxSteps:           1000,
		}
	}

	Describe("Validate", func() {
		It("Should accept a complete configuration", func() {
			Expect(valid().Validate()).To(Succeed())
		})
		It("Should reject an ensemble of fewer than two members", func() {
			cfg := valid()
			cfg.Members = 1
			Expect(cfg.Validate()).ToNot(Succeed())
		})
		It("Should reject a run with no live members", func() {
			cfg := valid()
			cfg.Dead = cfg.Members
			Expect(cfg.Validate()).ToNot(Succeed())
		})
		It("Should reject a negative dead count", func() {
			cfg := valid()
			cfg.Dead = -1
			Expect(cfg.Validate()).ToNot(Succeed())
		})
		It("Should reject non-positive protocol parameters", func() {
			for _, mutate := range []func(*swim.Config){
				func(c *swim.Config) { c.SuspicionTimeout = 0 },
				func(c *swim.Config) { c.DisseminationLimit = 0 },
				func(c *swim.Config) { c.PiggybackCapacity = -1 },
				func(c *swim.Config) { c.MaxSteps = 0 },
			} {
				cfg := valid()
				mutate(&cfg)
				Expect(cfg.Validate()).ToNot(Succeed())
			}
		})
	})

	Describe("Merge", func() {
		It("Should fill unset run parameters from the default configuration", func() {
			cfg := swim.Config{Members: 5}.Merge(swim.DefaultConfig())
			Expect(cfg.Members).To(Equal(5))
			Expect(cfg.MaxSteps).To(Equal(250_000))
			Expect(cfg.Seed).To(Equal(int64(1)))
			Expect(cfg.Logger).ToNot(BeNil())
			Expect(cfg.ArchiveKey).To(Equal("run"))
		})
		It("Should keep parameters the caller set", func() {
			cfg := swim.Config{Seed: 9, Logger: zap.NewNop(), ArchiveKey: "baseline"}
			merged := cfg.Merge(swim.DefaultConfig())
			Expect(merged.Seed).To(Equal(int64(9)))
			Expect(merged.ArchiveKey).To(Equal("baseline"))
		})
	})
})
