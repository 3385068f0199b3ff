package backend_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/cmd/agentbase/backend"
	"github.com/papercomputeco/agentbase/pkg/auth"
	"github.com/papercomputeco/agentbase/pkg/config"
	"github.com/papercomputeco/agentbase/pkg/eventstream/kafka"
	"github.com/papercomputeco/agentbase/pkg/eventstream/nop"
	"github.com/papercomputeco/agentbase/pkg/logger"
	"github.com/papercomputeco/agentbase/pkg/storage/inmemory"
	"github.com/papercomputeco/agentbase/pkg/storage/sqlite"
)

var _ = Describe("OpenStorage", func() {
	ctx := context.Background()

	It("opens the in-memory driver", func() {
		driver, err := backend.OpenStorage(ctx, config.StorageConfig{Driver: backend.DriverMemory}, "", logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		Expect(driver.Close()).To(Succeed())
	})

	It("opens a SQLite file and creates the schema", func() {
		path := filepath.Join(GinkgoT().TempDir(), "chat.sqlite")

		driver, err := backend.OpenStorage(ctx, config.StorageConfig{Driver: backend.DriverSQLite, SQLitePath: path}, "", logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)
		Expect(driver).To(BeAssignableToTypeOf(&sqlite.Driver{}))

		conv, err := driver.CreateConversation(ctx, "u1", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(conv.ID).NotTo(BeEmpty())
		Expect(path).To(BeAnExistingFile())
	})

	It("requires a DSN for postgres", func() {
		_, err := backend.OpenStorage(ctx, config.StorageConfig{Driver: backend.DriverPostgres}, "", logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("postgres_dsn")))
	})

	It("rejects unknown drivers", func() {
		_, err := backend.OpenStorage(ctx, config.StorageConfig{Driver: "mongo"}, "", logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown storage driver")))
	})
})

var _ = Describe("NewPublisher", func() {
	It("defaults to the nop publisher", func() {
		pub, err := backend.NewPublisher(config.EventsConfig{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher", func() {
		pub, err := backend.NewPublisher(config.EventsConfig{
			Provider: "kafka",
			Brokers:  "localhost:9092, localhost:9093",
			Topic:    "agentbase.turns",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := backend.NewPublisher(config.EventsConfig{Provider: "sqs"}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewVerifier", func() {
	It("prefers local JWT verification", func() {
		v, err := backend.NewVerifier(config.AuthConfig{URL: "https://auth.example.com", JWTSecret: "s3cret"})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeAssignableToTypeOf(&auth.JWTVerifier{}))
	})

	It("falls back to the auth service", func() {
		v, err := backend.NewVerifier(config.AuthConfig{URL: "https://auth.example.com", AnonKey: "anon"})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeAssignableToTypeOf(&auth.GoTrueClient{}))
	})

	It("requires one of them", func() {
		_, err := backend.NewVerifier(config.AuthConfig{})
		Expect(err).To(HaveOccurred())
	})
})
