//go:build libsql

// Package libsql provides a libSQL (Turso) backed storage driver. It links a
// bundled SQLite of its own, so it is only compiled with the "libsql" build
// tag to keep it apart from github.com/mattn/go-sqlite3.
package libsql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/tursodatabase/go-libsql"

	entdriver "github.com/papercomputeco/agentbase/pkg/storage/ent/driver"
)

// Driver implements storage.Driver against a libSQL database.
type Driver struct {
	*entdriver.EntDriver

	connector *libsql.Connector
}

// NewDriver opens a libSQL database. A remote URL such as
// "libsql://db.turso.io?authToken=..." is used as the primary of an embedded
// replica stored at replicaPath when replicaPath is set. A "file:" URL opens a
// local database directly.
func NewDriver(ctx context.Context, dbURL, replicaPath string) (*Driver, error) {
	var (
		db        *sql.DB
		connector *libsql.Connector
		err       error
	)

	if replicaPath != "" {
		primary, token, perr := splitAuthToken(dbURL)
		if perr != nil {
			return nil, perr
		}

		connector, err = libsql.NewEmbeddedReplicaConnector(replicaPath, primary, libsql.WithAuthToken(token))
		if err != nil {
			return nil, fmt.Errorf("failed to create replica connector: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open("libsql", dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		closeAll(db, connector)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// libSQL speaks the SQLite dialect
	ed, err := entdriver.New(ctx, entsql.OpenDB(dialect.SQLite, db))
	if err != nil {
		closeAll(db, connector)
		return nil, err
	}

	return &Driver{EntDriver: ed, connector: connector}, nil
}

// Sync pulls the latest frames from the primary into the embedded replica.
// It is a no-op for direct connections.
func (d *Driver) Sync() error {
	if d.connector == nil {
		return nil
	}
	_, err := d.connector.Sync()
	return err
}

// Close closes the database and the replica connector.
func (d *Driver) Close() error {
	err := d.EntDriver.Close()
	if d.connector != nil {
		if cerr := d.connector.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func closeAll(db *sql.DB, connector *libsql.Connector) {
	db.Close()
	if connector != nil {
		connector.Close()
	}
}

// splitAuthToken moves the authToken query parameter out of a libSQL URL.
func splitAuthToken(dbURL string) (string, string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid libsql url: %w", err)
	}

	q := u.Query()
	token := q.Get("authToken")
	q.Del("authToken")
	u.RawQuery = q.Encode()

	return u.String(), token, nil
}
