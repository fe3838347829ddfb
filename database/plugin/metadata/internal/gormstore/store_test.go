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

package gormstore

import (
	"fmt"
	"testing"

	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	store := New(db, nil)
	require.NoError(t, store.Setup())
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testProposal(id uint32) *models.Proposal {
	return &models.Proposal{
		ID:                  id,
		Type:                1,
		RefLink:             "example.com/proposal",
		Start:               types.Uint64(1000),
		End:                 types.Uint64(2000),
		Cooldown:            types.Uint64(500),
		Quorum:              10,
		Seats:               2,
		Candidates:          []string{"alice.near", "bob.near"},
		MinCandidateSupport: types.Uint64(2),
		StorageKey:          types.ProposalStorageKey(id),
	}
}

func TestProposalRoundTrip(t *testing.T) {
	store := newTestStore(t)

	maxId, err := store.GetMaxProposalId(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), maxId)

	require.NoError(t, store.SetProposal(testProposal(1), nil))
	require.NoError(t, store.SetProposal(testProposal(2), nil))

	p, err := store.GetProposal(1, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []string{"alice.near", "bob.near"}, p.Candidates)
	assert.Equal(t, types.Uint64(2000), p.End)
	assert.Equal(t, types.ProposalStorageKey(1), p.StorageKey)

	missing, err := store.GetProposal(3, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	maxId, err = store.GetMaxProposalId(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), maxId)

	count, err := store.CountProposals(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Upsert replaces
	updated := testProposal(1)
	updated.RefLink = "example.com/updated"
	require.NoError(t, store.SetProposal(updated, nil))
	p, err = store.GetProposal(1, nil)
	require.NoError(t, err)
	assert.Equal(t, "example.com/updated", p.RefLink)
	count, err = store.CountProposals(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGetProposalsPaging(t *testing.T) {
	store := newTestStore(t)
	for i := uint32(1); i <= 5; i++ {
		require.NoError(t, store.SetProposal(testProposal(i), nil))
	}
	page, err := store.GetProposals(1, 2, false, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint32(2), page[0].ID)
	assert.Equal(t, uint32(3), page[1].ID)

	page, err = store.GetProposals(0, 2, true, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint32(5), page[0].ID)

	all, err := store.GetProposals(0, 0, false, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestVoteLifecycle(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetProposal(testProposal(1), nil))

	vote := &models.Vote{
		ProposalID: 1,
		TokenID:    types.Uint64(7),
		Voter:      "alice.near",
		Candidates: []string{"bob.near"},
		CastAt:     types.Uint64(1500),
	}
	require.NoError(t, store.AddVote(vote, nil))

	got, err := store.GetVote(1, 7, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice.near", got.Voter)
	assert.False(t, got.Revoked())

	require.NoError(t, store.RevokeVote(1, 7, 1600, "admin.near", nil))
	got, err = store.GetVote(1, 7, nil)
	require.NoError(t, err)
	require.True(t, got.Revoked())
	assert.Equal(t, types.Uint64(1600), *got.RevokedAt)
	assert.Equal(t, "admin.near", got.RevokedBy)

	// Already revoked
	require.ErrorIs(
		t,
		store.RevokeVote(1, 7, 1700, "admin.near", nil),
		models.ErrVoteNotFound,
	)

	// Voting again after revocation adds a row
	vote2 := &models.Vote{
		ProposalID: 1,
		TokenID:    types.Uint64(7),
		Voter:      "alice.near",
		Candidates: []string{"alice.near"},
		CastAt:     types.Uint64(1800),
	}
	require.NoError(t, store.AddVote(vote2, nil))
	got, err = store.GetVote(1, 7, nil)
	require.NoError(t, err)
	assert.False(t, got.Revoked())
	assert.Equal(t, []string{"alice.near"}, got.Candidates)
	assert.Equal(t, vote2.ID, got.ID)

	count, err := store.CountVotes(1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The revoked row keeps its audit fields
	votes, err := store.GetVotes(1, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	require.True(t, votes[0].Revoked())
	assert.Equal(t, types.Uint64(1600), *votes[0].RevokedAt)
	assert.Equal(t, "admin.near", votes[0].RevokedBy)
	assert.Equal(t, []string{"bob.near"}, votes[0].Candidates)
	assert.False(t, votes[1].Revoked())

	// Only the open row is revoked
	require.NoError(t, store.RevokeVote(1, 7, 1900, "admin.near", nil))
	votes, err = store.GetVotes(1, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Uint64(1600), *votes[0].RevokedAt)
	assert.Equal(t, types.Uint64(1900), *votes[1].RevokedAt)

	missing, err := store.GetVote(1, 8, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetVotes(t *testing.T) {
	store := newTestStore(t)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, store.AddVote(&models.Vote{
			ProposalID: 1,
			TokenID:    types.Uint64(i),
			Voter:      fmt.Sprintf("voter%d.near", i),
			CastAt:     types.Uint64(i),
		}, nil))
	}
	require.NoError(t, store.AddVote(&models.Vote{
		ProposalID: 2,
		TokenID:    types.Uint64(1),
		Voter:      "other.near",
	}, nil))
	votes, err := store.GetVotes(1, 1, 5, nil)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, types.Uint64(2), votes[0].TokenID)
	assert.Equal(t, types.Uint64(3), votes[1].TokenID)
}

func TestPolicyAcceptance(t *testing.T) {
	store := newTestStore(t)
	missing, err := store.GetPolicyAcceptance("alice.near", nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	policy := make([]byte, 32)
	policy[0] = 1
	require.NoError(t, store.SetPolicyAcceptance(&models.PolicyAcceptance{
		Account:    "alice.near",
		Policy:     policy,
		AcceptedAt: types.Uint64(10),
	}, nil))
	policy2 := make([]byte, 32)
	policy2[0] = 2
	require.NoError(t, store.SetPolicyAcceptance(&models.PolicyAcceptance{
		Account:    "alice.near",
		Policy:     policy2,
		AcceptedAt: types.Uint64(20),
	}, nil))
	got, err := store.GetPolicyAcceptance("alice.near", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, policy2, got.Policy)
	assert.Equal(t, types.Uint64(20), got.AcceptedAt)
}

func TestTransactionCommitRollback(t *testing.T) {
	store := newTestStore(t)

	txn := store.Transaction()
	require.NoError(t, store.SetProposal(testProposal(1), txn))
	require.NoError(t, txn.Rollback())
	_, err := store.ResolveDB(txn)
	require.ErrorIs(t, err, types.ErrTxnFinished)

	p, err := store.GetProposal(1, nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	txn = store.Transaction()
	require.NoError(t, store.SetProposal(testProposal(1), txn))
	require.NoError(t, store.SetCommitTimestamp(42, txn))
	require.NoError(t, txn.Commit())

	p, err = store.GetProposal(1, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts)
}

type otherTxn struct{}

func (otherTxn) Commit() error   { return nil }
func (otherTxn) Rollback() error { return nil }

func TestResolveDBWrongType(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ResolveDB(otherTxn{})
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}
