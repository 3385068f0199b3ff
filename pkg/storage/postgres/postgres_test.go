package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/storage/postgres"
	"github.com/papercomputeco/agentbase/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("AGENTBASE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("AGENTBASE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ storage.Driver = (*postgres.Driver)(nil)

var _ = Describe("Driver", func() {
	It("fails fast on an unreachable server", func() {
		_, err := postgres.NewDriver(context.Background(), "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
		Expect(err).To(HaveOccurred())
	})

	Describe("conformance", func() {
		storagetest.DescribeDriver(func() storage.Driver {
			ctx := context.Background()
			d, err := postgres.NewDriver(ctx, connStr())
			Expect(err).NotTo(HaveOccurred())
			_, err = d.Driver.DB().ExecContext(ctx, "TRUNCATE messages, conversations")
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})
})
