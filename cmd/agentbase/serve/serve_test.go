package servecmder

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/config"
	"github.com/papercomputeco/agentbase/pkg/eventstream/nop"
	"github.com/papercomputeco/agentbase/pkg/logger"
)

var _ = Describe("NewServeCmd", func() {
	It("registers every serve flag", func() {
		cmd := NewServeCmd()
		for _, key := range serveFlagKeys {
			name := config.ServeFlags[key].Name
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("defaults the listen address from config", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(config.NewDefaultConfig().Server.Listen))
	})

	It("resolves flags over config values", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Set("listen", ":9999")).To(Succeed())
		Expect(cmd.Flags().Set("storage", "memory")).To(Succeed())

		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)

		cfg := config.FromViper(v)
		Expect(cfg.Server.Listen).To(Equal(":9999"))
		Expect(cfg.Storage.Driver).To(Equal("memory"))
		Expect(cfg.Chat.Workers).To(Equal(config.NewDefaultConfig().Chat.Workers))
	})
})

var _ = Describe("chatConfig", func() {
	It("maps upstream settings to chat routes", func() {
		cfg := config.NewDefaultConfig()
		cfg.Upstream.OpenRouterAPIKey = "sk-or"
		cfg.Upstream.AnthropicAPIKey = "sk-ant"
		cfg.Auth.SiteURL = "https://agentbase.example.com"

		cc := chatConfig(cfg, nop.NewPublisher(), logger.Nop())
		Expect(cc.Upstreams[catalog.RouteOpenRouter].APIKey).To(Equal("sk-or"))
		Expect(cc.Upstreams[catalog.RouteAnthropic].BaseURL).To(Equal(cfg.Upstream.AnthropicURL))
		Expect(cc.ThinkingBudget).To(Equal(int(cfg.Chat.ThinkingBudget)))
		Expect(cc.SiteURL).To(Equal("https://agentbase.example.com"))
		Expect(cc.Workers).To(Equal(cfg.Chat.Workers))
	})
})
