// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"os"
	"strconv"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/plugin"
	"github.com/blinklabs-io/elections/database/types"
)

// TestTable is a simple table for testing concurrent transactions
type TestTable struct {
	gorm.Model
}

// testConnSettings returns the plugin settings overlaid with the POSTGRES_*
// environment variables, and whether enough is set to reach a server
func testConnSettings() (connSettings, string, bool) {
	cmdlineOptionsMutex.RLock()
	conn := cmdlineOptions.conn
	dsn := cmdlineOptions.dsn
	cmdlineOptionsMutex.RUnlock()

	if conn.password == "" && dsn == "" {
		if v := os.Getenv("POSTGRES_HOST"); v != "" {
			conn.host = v
		}
		if v := os.Getenv("POSTGRES_PORT"); v != "" {
			if port, err := strconv.ParseUint(v, 10, 16); err == nil {
				conn.port = port
			}
		}
		if v := os.Getenv("POSTGRES_USER"); v != "" {
			conn.user = v
		}
		conn.password = os.Getenv("POSTGRES_PASSWORD")
		conn.database = "elections_test"
		if v := os.Getenv("POSTGRES_DATABASE"); v != "" {
			conn.database = v
		}
		if v := os.Getenv("POSTGRES_SSLMODE"); v != "" {
			conn.sslMode = v
		}
		dsn = os.Getenv("POSTGRES_DSN")
	}
	return conn, dsn, conn.password != "" || dsn != ""
}

func skipUnlessConfigured(t *testing.T) (connSettings, string) {
	t.Helper()
	conn, dsn, ok := testConnSettings()
	if !ok {
		t.Skip(
			"Skipping postgres integration test: set POSTGRES_PASSWORD or POSTGRES_DSN",
		)
	}
	return conn, dsn
}

func newTestPostgresStore(t *testing.T) *MetadataStorePostgres {
	t.Helper()
	conn, dsn := skipUnlessConfigured(t)
	store, err := NewWithOptions(
		WithServer(conn.host, conn.port),
		WithCredentials(conn.user, conn.password),
		WithDatabase(conn.database),
		WithSSLMode(conn.sslMode),
		WithDSN(dsn),
	)
	if err != nil {
		t.Fatalf("failed to create postgres store: %v", err)
	}
	if err := store.Start(); err != nil {
		t.Fatalf("failed to start postgres store: %v", err)
	}
	return store
}

// newTestPostgresStoreFromPlugin goes through the plugin registration path
func newTestPostgresStoreFromPlugin(t *testing.T) *MetadataStorePostgres {
	t.Helper()
	conn, dsn := skipUnlessConfigured(t)

	cmdlineOptionsMutex.Lock()
	saved := cmdlineOptions
	cmdlineOptions.conn = conn
	cmdlineOptions.dsn = dsn
	cmdlineOptionsMutex.Unlock()
	t.Cleanup(func() {
		cmdlineOptionsMutex.Lock()
		cmdlineOptions = saved
		cmdlineOptionsMutex.Unlock()
	})

	p := NewFromCmdlineOptions()
	if _, ok := p.(*plugin.ErrorPlugin); ok {
		t.Fatal("NewFromCmdlineOptions returned an error plugin")
	}
	store, ok := p.(*MetadataStorePostgres)
	if !ok {
		t.Fatalf("expected *MetadataStorePostgres, got %T", p)
	}
	if err := store.Start(); err != nil {
		t.Fatalf("failed to start postgres store: %v", err)
	}
	return store
}

// TestPostgresMultipleTransaction tests that postgres allows multiple
// concurrent transactions
func TestPostgresMultipleTransaction(t *testing.T) {
	pgStore := newTestPostgresStore(t)
	defer pgStore.Close() //nolint:errcheck

	if err := pgStore.DB().AutoMigrate(&TestTable{}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if result := pgStore.DB().Create(&TestTable{}); result.Error != nil {
		t.Fatalf("unexpected error: %s", result.Error)
	}

	doQuery := func(sleep time.Duration) error {
		txn := pgStore.DB().Begin()
		defer txn.Rollback() //nolint:errcheck
		if result := txn.First(&TestTable{}); result.Error != nil {
			return result.Error
		}
		time.Sleep(sleep)
		if result := txn.Commit(); result.Error != nil {
			return result.Error
		}
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- doQuery(5 * time.Second)
	}()
	time.Sleep(1 * time.Second)
	if err := doQuery(0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("goroutine error: %s", err)
	}
}


// TestPostgresVoteRevocation checks that a revoked ballot cannot be revoked
// twice and that voting again adds a row next to it
func TestPostgresVoteRevocation(t *testing.T) {
	pgStore := newTestPostgresStoreFromPlugin(t)
	defer pgStore.Close() //nolint:errcheck

	// Clean up any existing records from previous test runs
	pgStore.DB().Where("1 = 1").Delete(&models.Vote{})

	if err := pgStore.AddVote(&models.Vote{
		ProposalID: 1,
		TokenID:    types.Uint64(42),
		Voter:      "alice.near",
		Candidates: []string{"bob.near"},
		CastAt:     types.Uint64(100),
	}, nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	txn := pgStore.Transaction()
	if err := pgStore.RevokeVote(1, 42, 200, "admin.near", txn); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := pgStore.RevokeVote(1, 42, 300, "admin.near", nil); err != models.ErrVoteNotFound {
		t.Fatalf("expected ErrVoteNotFound, got %v", err)
	}
	if err := pgStore.AddVote(&models.Vote{
		ProposalID: 1,
		TokenID:    types.Uint64(42),
		Voter:      "alice.near",
		Candidates: []string{"alice.near"},
		CastAt:     types.Uint64(400),
	}, nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got, err := pgStore.GetVote(1, 42, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got == nil || got.Revoked() {
		t.Fatalf("expected an active ballot, got %+v", got)
	}
	votes, err := pgStore.GetVotes(1, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(votes) != 2 {
		t.Fatalf("expected 2 vote rows, got %d", len(votes))
	}
	if !votes[0].Revoked() || votes[0].RevokedBy != "admin.near" {
		t.Errorf("first row lost its revocation: %+v", votes[0])
	}
}

// TestPostgresCommitTimestamp checks the commit timestamp upsert
func TestPostgresCommitTimestamp(t *testing.T) {
	pgStore := newTestPostgresStore(t)
	defer pgStore.Close() //nolint:errcheck

	for _, ts := range []int64{10, 20} {
		if err := pgStore.SetCommitTimestamp(ts, nil); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}
	ts, err := pgStore.GetCommitTimestamp()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ts != 20 {
		t.Errorf("expected commit timestamp 20, got %d", ts)
	}
}
