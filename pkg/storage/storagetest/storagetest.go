// Package storagetest holds the behavioral suite every storage.Driver must pass.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/storage"
)

// DescribeDriver registers the driver conformance specs. newDriver is called
// before each spec and the driver is closed after it.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	userMessage := func(convID, userID, content string) *storage.Message {
		return &storage.Message{
			ConversationID: convID,
			UserID:         userID,
			Role:           storage.RoleUser,
			Content:        content,
		}
	}

	Describe("CreateConversation", func() {
		It("defaults the title", func() {
			conv, err := driver.CreateConversation(ctx, "user-1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(conv.ID).NotTo(BeEmpty())
			Expect(conv.UserID).To(Equal("user-1"))
			Expect(conv.Title).To(Equal(storage.DefaultTitle))
			Expect(conv.IsFavorite).To(BeFalse())
			Expect(conv.CreatedAt).To(Equal(conv.UpdatedAt))
		})

		It("trims a given title", func() {
			conv, err := driver.CreateConversation(ctx, "user-1", "  Trip planning ")
			Expect(err).NotTo(HaveOccurred())
			Expect(conv.Title).To(Equal("Trip planning"))
		})

		It("rejects a whitespace title", func() {
			_, err := driver.CreateConversation(ctx, "user-1", "   ")
			Expect(err).To(MatchError(storage.ErrEmptyTitle))
		})
	})

	Describe("GetConversation", func() {
		It("round-trips a conversation", func() {
			created, err := driver.CreateConversation(ctx, "user-1", "Hello")
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.GetConversation(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(created.ID))
			Expect(got.UserID).To(Equal("user-1"))
			Expect(got.Title).To(Equal("Hello"))
			Expect(got.CreatedAt.Equal(created.CreatedAt)).To(BeTrue())
		})

		It("returns NotFoundError for an unknown id", func() {
			_, err := driver.GetConversation(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("ListConversations", func() {
		It("lists only the user's conversations, most recently updated first", func() {
			first, err := driver.CreateConversation(ctx, "user-1", "first")
			Expect(err).NotTo(HaveOccurred())
			time.Sleep(2 * time.Millisecond)
			second, err := driver.CreateConversation(ctx, "user-1", "second")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.CreateConversation(ctx, "user-2", "other")
			Expect(err).NotTo(HaveOccurred())

			convs, err := driver.ListConversations(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(convs).To(HaveLen(2))
			Expect(convs[0].ID).To(Equal(second.ID))
			Expect(convs[1].ID).To(Equal(first.ID))

			time.Sleep(2 * time.Millisecond)
			_, err = driver.CreateMessage(ctx, userMessage(first.ID, "user-1", "bump"))
			Expect(err).NotTo(HaveOccurred())

			convs, err = driver.ListConversations(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(convs[0].ID).To(Equal(first.ID))
		})

		It("returns an empty list for a user with no conversations", func() {
			convs, err := driver.ListConversations(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(convs).NotTo(BeNil())
			Expect(convs).To(BeEmpty())
		})
	})

	Describe("UpdateConversation", func() {
		It("renames and favorites", func() {
			conv, err := driver.CreateConversation(ctx, "user-1", "")
			Expect(err).NotTo(HaveOccurred())

			title := "  Renamed  "
			fav := true
			updated, err := driver.UpdateConversation(ctx, conv.ID, storage.ConversationPatch{Title: &title, IsFavorite: &fav})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Title).To(Equal("Renamed"))
			Expect(updated.IsFavorite).To(BeTrue())
			Expect(updated.UpdatedAt.Before(conv.UpdatedAt)).To(BeFalse())
		})

		It("leaves unset fields alone", func() {
			conv, err := driver.CreateConversation(ctx, "user-1", "Keep me")
			Expect(err).NotTo(HaveOccurred())

			fav := true
			updated, err := driver.UpdateConversation(ctx, conv.ID, storage.ConversationPatch{IsFavorite: &fav})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Title).To(Equal("Keep me"))
		})

		It("rejects a blank title", func() {
			conv, err := driver.CreateConversation(ctx, "user-1", "")
			Expect(err).NotTo(HaveOccurred())

			blank := " "
			_, err = driver.UpdateConversation(ctx, conv.ID, storage.ConversationPatch{Title: &blank})
			Expect(err).To(MatchError(storage.ErrEmptyTitle))
		})

		It("returns NotFoundError for an unknown id", func() {
			fav := false
			_, err := driver.UpdateConversation(ctx, "missing", storage.ConversationPatch{IsFavorite: &fav})
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("DeleteConversation", func() {
		It("deletes the conversation and its messages", func() {
			conv, err := driver.CreateConversation(ctx, "user-1", "")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.CreateMessage(ctx, userMessage(conv.ID, "user-1", "hi"))
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.DeleteConversation(ctx, conv.ID)).To(Succeed())

			_, err = driver.GetConversation(ctx, conv.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())

			n, err := driver.CountMessages(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(0))
		})

		It("returns NotFoundError for an unknown id", func() {
			err := driver.DeleteConversation(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("DeleteConversations", func() {
		It("deletes only the user's conversations", func() {
			a, err := driver.CreateConversation(ctx, "user-1", "a")
			Expect(err).NotTo(HaveOccurred())
			b, err := driver.CreateConversation(ctx, "user-1", "b")
			Expect(err).NotTo(HaveOccurred())
			other, err := driver.CreateConversation(ctx, "user-2", "other")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.CreateMessage(ctx, userMessage(a.ID, "user-1", "hi"))
			Expect(err).NotTo(HaveOccurred())

			n, err := driver.DeleteConversations(ctx, "user-1", []string{a.ID, b.ID, other.ID, "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			_, err = driver.GetConversation(ctx, other.ID)
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.CountMessages(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(0))
		})

		It("treats an empty id list as a no-op", func() {
			n, err := driver.DeleteConversations(ctx, "user-1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(0))
		})
	})

	Describe("Messages", func() {
		var conv *storage.Conversation

		BeforeEach(func() {
			var err error
			conv, err = driver.CreateConversation(ctx, "user-1", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("stores and lists messages in order", func() {
			_, err := driver.CreateMessage(ctx, userMessage(conv.ID, "user-1", "question"))
			Expect(err).NotTo(HaveOccurred())

			reply, err := driver.CreateMessage(ctx, &storage.Message{
				ConversationID: conv.ID,
				UserID:         "user-1",
				Role:           storage.RoleAssistant,
				Content:        "answer",
				ModelUsed:      "claude-haiku-4-5",
				TokensInput:    12,
				TokensOutput:   34,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.ID).NotTo(BeEmpty())
			Expect(reply.Timestamp.IsZero()).To(BeFalse())

			msgs, err := driver.ListMessages(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(storage.RoleUser))
			Expect(msgs[0].Content).To(Equal("question"))
			Expect(msgs[0].ModelUsed).To(BeEmpty())
			Expect(msgs[1].Role).To(Equal(storage.RoleAssistant))
			Expect(msgs[1].ModelUsed).To(Equal("claude-haiku-4-5"))
			Expect(msgs[1].TokensInput).To(Equal(12))
			Expect(msgs[1].TokensOutput).To(Equal(34))

			n, err := driver.CountMessages(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})

		It("keeps insertion order when timestamps tie", func() {
			ts := storage.Now()
			for _, content := range []string{"one", "two", "three"} {
				m := userMessage(conv.ID, "user-1", content)
				m.Timestamp = ts
				_, err := driver.CreateMessage(ctx, m)
				Expect(err).NotTo(HaveOccurred())
			}

			msgs, err := driver.ListMessages(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[0].Content).To(Equal("one"))
			Expect(msgs[1].Content).To(Equal("two"))
			Expect(msgs[2].Content).To(Equal("three"))
		})

		It("rejects an unknown role", func() {
			m := userMessage(conv.ID, "user-1", "x")
			m.Role = "tool"
			_, err := driver.CreateMessage(ctx, m)
			Expect(err).To(MatchError(storage.InvalidRoleError{Role: "tool"}))
		})

		It("rejects a nil message", func() {
			_, err := driver.CreateMessage(ctx, nil)
			Expect(err).To(MatchError(storage.ErrNilMessage))
		})

		It("returns NotFoundError for an unknown conversation", func() {
			_, err := driver.CreateMessage(ctx, userMessage("missing", "user-1", "x"))
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("lists nothing for an unknown conversation", func() {
			msgs, err := driver.ListMessages(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})
	})
}
