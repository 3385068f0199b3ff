package catalog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/catalog"
)

var _ = Describe("Catalog", func() {
	Describe("All", func() {
		It("lists every model in display order", func() {
			ids := []string{}
			for _, m := range catalog.All() {
				ids = append(ids, m.ID)
			}
			Expect(ids).To(Equal([]string{
				"claude-haiku-4-5",
				"claude-sonnet-4",
				"claude-opus-4",
				"gpt-4o",
				"gpt-4o-mini",
				"gemini-2.5-pro",
			}))
		})

		It("returns a copy", func() {
			all := catalog.All()
			all[0].Name = "changed"
			Expect(catalog.All()[0].Name).To(Equal("Claude Haiku 4.5"))
		})
	})

	Describe("ByID", func() {
		It("finds a known model", func() {
			m, ok := catalog.ByID("claude-opus-4")
			Expect(ok).To(BeTrue())
			Expect(m.Provider).To(Equal(catalog.ProviderAnthropic))
			Expect(m.SupportsThinking).To(BeTrue())
			Expect(m.ContextWindow).To(Equal(200_000))
		})

		It("misses an unknown model", func() {
			_, ok := catalog.ByID("llama-3")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Free and Premium", func() {
		It("partitions the catalog", func() {
			free := catalog.Free()
			premium := catalog.Premium()
			Expect(len(free) + len(premium)).To(Equal(len(catalog.All())))

			for _, m := range free {
				Expect(m.IsPremium).To(BeFalse())
			}
			for _, m := range premium {
				Expect(m.IsPremium).To(BeTrue())
			}
			Expect(free).To(HaveLen(2))
		})
	})

	Describe("Resolve", func() {
		It("keeps a valid id", func() {
			Expect(catalog.Resolve("gpt-4o").ID).To(Equal("gpt-4o"))
		})

		It("falls back to the default for unknown ids", func() {
			Expect(catalog.Resolve("not-a-model").ID).To(Equal(catalog.DefaultModelID))
		})

		It("falls back to the default for empty ids", func() {
			Expect(catalog.Resolve("").ID).To(Equal("claude-haiku-4-5"))
		})
	})

	Describe("IsValid", func() {
		It("validates ids", func() {
			Expect(catalog.IsValid("gemini-2.5-pro")).To(BeTrue())
			Expect(catalog.IsValid("gemini")).To(BeFalse())
		})
	})

	Describe("thinking support", func() {
		It("is limited to the larger Claude models", func() {
			thinking := []string{}
			for _, m := range catalog.All() {
				if m.SupportsThinking {
					thinking = append(thinking, m.ID)
				}
			}
			Expect(thinking).To(ConsistOf("claude-sonnet-4", "claude-opus-4"))
		})
	})

	Describe("UpstreamID", func() {
		It("maps every model onto OpenRouter", func() {
			for _, m := range catalog.All() {
				id, ok := m.UpstreamID(catalog.RouteOpenRouter)
				Expect(ok).To(BeTrue(), m.ID)
				Expect(id).To(ContainSubstring("/"))
			}
		})

		It("only maps Anthropic models onto the Anthropic route", func() {
			_, ok := catalog.Resolve("gpt-4o").UpstreamID(catalog.RouteAnthropic)
			Expect(ok).To(BeFalse())

			id, ok := catalog.Resolve("claude-sonnet-4").UpstreamID(catalog.RouteAnthropic)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal("claude-sonnet-4-0"))
		})
	})
})

var _ = Describe("Pricing", func() {
	It("calculates input and output costs", func() {
		m, _ := catalog.ByID("claude-sonnet-4")
		in, out, total := catalog.Cost(m, 1_000_000, 500_000)
		Expect(in).To(BeNumerically("~", 3.00, 0.001))
		Expect(out).To(BeNumerically("~", 7.50, 0.001))
		Expect(total).To(BeNumerically("~", 10.50, 0.001))
	})

	It("returns zero costs for zero tokens", func() {
		_, _, total := catalog.Cost(catalog.Default(), 0, 0)
		Expect(total).To(Equal(0.0))
	})

	DescribeTable("Lookup resolves upstream model names",
		func(name, want string) {
			m, ok := catalog.Lookup(name)
			Expect(ok).To(BeTrue())
			Expect(m.ID).To(Equal(want))
		},
		Entry("catalog id", "gpt-4o-mini", "gpt-4o-mini"),
		Entry("openrouter id", "anthropic/claude-opus-4", "claude-opus-4"),
		Entry("anthropic dated id", "claude-sonnet-4-20250514", "claude-sonnet-4"),
		Entry("anthropic alias", "claude-sonnet-4-0", "claude-sonnet-4"),
		Entry("dotted version", "claude-haiku-4.5", "claude-haiku-4-5"),
		Entry("openai dated id", "gpt-4o-2024-08-06", "gpt-4o"),
	)

	It("misses unknown names", func() {
		_, ok := catalog.Lookup("mistral-large")
		Expect(ok).To(BeFalse())
	})
})
