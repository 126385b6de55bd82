package tests

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db/schema"
)

const defaultTimeOut = 40 * time.Second

// NewTestStorage creates a throwaway database on the postgres server pointed
// to by databaseURL, migrates it and returns a storage connected to it.
func NewTestStorage(databaseURL string) (*db.Storage, func(), error) {
	noopTeardown := func() {}
	if databaseURL == "" {
		return nil, noopTeardown, errors.New("testdb: no connection string")
	}

	tempDBName := "verifier_agent_test_" + time.Now().UTC().Format("20060102150405.999999999")
	tempURL, err := url.Parse(databaseURL + "/" + tempDBName + "?sslmode=disable")
	if err != nil {
		return nil, noopTeardown, fmt.Errorf("connection string is invalid: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeOut)
	defer cancel()

	storage, err := db.NewStorage(databaseURL)
	if err != nil {
		return nil, noopTeardown, fmt.Errorf("can't connect to database: %v", err)
	}

	if _, err = storage.Pgx.Exec(ctx, fmt.Sprintf(`create database "%s";`, tempDBName)); err != nil {
		return nil, noopTeardown, fmt.Errorf("failed to create database (%s): %v", tempDBName, err)
	}

	if err := schema.Migrate(tempURL.String()); err != nil {
		return nil, noopTeardown, fmt.Errorf("can't migrate database %v", err)
	}

	_ = storage.Close()

	storage, err = db.NewStorage(tempURL.String())
	if err != nil {
		return nil, noopTeardown, fmt.Errorf("can't connect to database: %v", err)
	}

	teardown := func() {
		_ = storage.Close()
	}

	return storage, teardown, nil
}
