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

package sqlite_test

import (
	"testing"

	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/plugin"
	"github.com/blinklabs-io/elections/database/plugin/metadata"
	"github.com/blinklabs-io/elections/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ metadata.MetadataStore = (*sqlite.MetadataStoreSqlite)(nil)

func startStore(t *testing.T, dataDir string) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New(dataDir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	return store
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	store1 := startStore(t, "")
	defer store1.Close()
	store2 := startStore(t, "")
	defer store2.Close()

	require.NoError(t, store1.SetProposal(&models.Proposal{ID: 1, Seats: 1}, nil))

	p, err := store2.GetProposal(1, nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = store1.GetProposal(1, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, uint16(1), p.Seats)
}

func TestOnDiskReopen(t *testing.T) {
	dataDir := t.TempDir()
	store := startStore(t, dataDir)
	txn := store.Transaction()
	require.NoError(t, store.AddVote(&models.Vote{
		ProposalID: 3,
		TokenID:    types.Uint64(^uint64(0)),
		Voter:      "alice.near",
		Candidates: []string{"bob.near"},
		CastAt:     types.Uint64(1234),
	}, txn))
	require.NoError(t, store.SetCommitTimestamp(99, txn))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Stop())

	store = startStore(t, dataDir)
	defer store.Close()
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(99), ts)
	vote, err := store.GetVote(3, ^uint64(0), nil)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, "alice.near", vote.Voter)
	assert.Equal(t, types.Uint64(^uint64(0)), vote.TokenID)
}

func TestCloseBeforeStart(t *testing.T) {
	store, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestNewFromRegistry(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(
		plugin.PluginTypeMetadata,
		"sqlite",
		"data-dir",
		"",
	))
	store, err := metadata.New("sqlite", nil, nil)
	require.NoError(t, err)
	defer store.Close()
	count, err := store.CountProposals(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
