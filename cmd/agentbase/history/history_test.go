package historycmder_test

import (
	"bytes"
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	historycmder "github.com/papercomputeco/agentbase/cmd/agentbase/history"
	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/storage/sqlite"
)

var _ = Describe("history", func() {
	var (
		dbPath string
		conv   *storage.Conversation
		out    *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := historycmder.NewHistoryCmd()
		cmd.Flags().String("config-dir", "", "")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--storage", "sqlite", "--sqlite", dbPath))
		return cmd.Execute()
	}

	BeforeEach(func() {
		ctx := context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "agentbase.sqlite")
		out = &bytes.Buffer{}

		driver, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		conv, err = driver.CreateConversation(ctx, "alice", "Lisbon trip")
		Expect(err).NotTo(HaveOccurred())
		for _, m := range []*storage.Message{
			{ConversationID: conv.ID, UserID: "alice", Role: storage.RoleUser, Content: "Where should I eat?"},
			{ConversationID: conv.ID, UserID: "alice", Role: storage.RoleAssistant, Content: "Try Time Out Market.", ModelUsed: "claude-haiku-4-5"},
		} {
			_, err := driver.CreateMessage(ctx, m)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("prints a conversation transcript", func() {
		Expect(run(conv.ID, "--raw")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("# Lisbon trip"))
		Expect(out.String()).To(ContainSubstring("## Assistant (claude-haiku-4-5)"))
		Expect(out.String()).To(ContainSubstring("Try Time Out Market."))
	})

	It("lists a user's conversations", func() {
		Expect(run("--user", "alice")).To(Succeed())
		Expect(out.String()).To(ContainSubstring(conv.ID))
	})

	It("refuses another user's conversation", func() {
		Expect(run(conv.ID, "--user", "bob")).To(HaveOccurred())
	})

	It("requires an id or a user", func() {
		Expect(run()).To(HaveOccurred())
	})
})

var _ = Describe("Markdown", func() {
	It("orders messages as given and labels roles", func() {
		md := historycmder.Markdown(
			&storage.Conversation{Title: "T"},
			[]*storage.Message{
				{Role: storage.RoleUser, Content: "q"},
				{Role: storage.RoleAssistant, Content: "a"},
			},
		)
		Expect(md).To(ContainSubstring("## You\n\nq\n\n## Assistant\n\na"))
	})
})
