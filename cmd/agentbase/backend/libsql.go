//go:build libsql

package backend

import (
	"context"

	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/storage/libsql"
)

func init() {
	openLibSQL = func(ctx context.Context, url, replica string) (storage.Driver, error) {
		return libsql.NewDriver(ctx, url, replica)
	}
}
