//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jonathan/hiring-engine/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// getTestDB connects to TEST_DATABASE_URL, applies migrations and empties the
// records table. Skipped when the variable is unset or the database is down.
func getTestDB(t *testing.T) *DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	_, err = db.Migrate(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Truncate(ctx))
	return db
}

func TestRecordStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := getTestDB(t)
	defer db.Close()

	storetest.Run(t, db)
}

func TestMigrateIsIdempotent_Integration(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	applied, err := db.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, applied)
}
