package modelscmder

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/catalog"
)

var _ = Describe("models", func() {
	It("lists every catalog model and marks the default", func() {
		var out bytes.Buffer
		Expect(run(&out, "")).To(Succeed())

		for _, m := range catalog.All() {
			Expect(out.String()).To(ContainSubstring(m.ID))
		}
		Expect(out.String()).To(ContainSubstring(catalog.DefaultModelID + " *"))
	})

	It("filters premium models", func() {
		var out bytes.Buffer
		Expect(run(&out, "premium")).To(Succeed())

		for _, m := range catalog.Free() {
			Expect(out.String()).NotTo(ContainSubstring(m.ID + " "))
		}
	})

	It("rejects unknown tiers", func() {
		Expect(run(&bytes.Buffer{}, "gold")).To(HaveOccurred())
	})
})
