// Copyright 2024 Blink Labs Software
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

package elections

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/internal/test/testutil"
	"github.com/blinklabs-io/elections/ledger"
	"github.com/blinklabs-io/elections/proposal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTestNode(t *testing.T, ctx context.Context, opts ...ConfigOptionFunc) (*Node, chan error) {
	t.Helper()
	opts = append(
		[]ConfigOptionFunc{
			WithHumanIssuer("issuer.near"),
			WithAuthorities("admin.near"),
			WithPrometheusRegistry(prometheus.NewRegistry()),
		},
		opts...,
	)
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.Run(ctx)
	}()
	select {
	case <-n.Ready():
	case err := <-errChan:
		t.Fatalf("node exited during startup: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for node startup")
	}
	return n, errChan
}

func TestNodeRunStop(t *testing.T) {
	n, errChan := runTestNode(t, context.Background())
	id, err := n.Ledger().CreateProposal(
		context.Background(),
		"admin.near",
		ledger.ProposalSpec{
			Type:       proposal.CouncilOfAdvisors,
			Start:      0,
			End:        100,
			Seats:      1,
			Candidates: []proposal.AccountId{"alice.near", "bob.near"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
	require.NoError(t, n.Stop())
	err = testutil.RequireReceive(t, errChan, 5*time.Second, "Run to return after Stop")
	require.NoError(t, err)
	// Stop is idempotent
	require.NoError(t, n.Stop())
}

func TestNodeApiStartFailureClosesDatabase(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	dataDir := t.TempDir()

	n, err := New(NewConfig(
		WithHumanIssuer("issuer.near"),
		WithAuthorities("admin.near"),
		WithPrometheusRegistry(prometheus.NewRegistry()),
		WithDataDir(dataDir),
		WithApiListenAddress(ln.Addr().String()),
	))
	require.NoError(t, err)
	err = n.Run(context.Background())
	require.ErrorContains(t, err, "failed to start API server")
	assert.Nil(t, n.db)
	assert.Nil(t, n.Ledger())
	assert.Nil(t, n.EventBus())

	// The data directory lock has been released
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, n.Stop())
}

func TestNodeRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n, errChan := runTestNode(t, ctx)
	cancel()
	err := testutil.RequireReceive(t, errChan, 5*time.Second, "Run to return after context cancel")
	require.NoError(t, err)
	require.NoError(t, n.Stop())
}

func TestNodeRunAfterStop(t *testing.T) {
	n, err := New(NewConfig(WithHumanIssuer("issuer.near")))
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	require.Error(t, n.Run(context.Background()))
}

func TestNodeDevModeIgnoresDataDir(t *testing.T) {
	dataDir := t.TempDir()
	n, _ := runTestNode(
		t,
		context.Background(),
		WithRunMode(runModeDev),
		WithDataDir(dataDir),
	)
	defer func() {
		require.NoError(t, n.Stop())
	}()
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNodeTracingStdout(t *testing.T) {
	n, _ := runTestNode(
		t,
		context.Background(),
		WithTracing(true),
		WithTracingStdout(true),
	)
	n.mu.Lock()
	assert.Len(t, n.shutdownFuncs, 1)
	n.mu.Unlock()
	require.NoError(t, n.Stop())
	assert.Empty(t, n.shutdownFuncs)
}
