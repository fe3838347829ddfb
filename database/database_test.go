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

package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/blinklabs-io/elections/proposal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type TestTable struct {
	gorm.Model
}

var dbConfig = &database.Config{
	Logger:       nil,
	PromRegistry: nil,
	DataDir:      "",
}

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func testConfig(id uint32) proposal.Config {
	return proposal.Config{
		Type:                proposal.HouseOfMerit,
		RefLink:             "example.com/election",
		Start:               1000,
		End:                 2000,
		Cooldown:            500,
		Quorum:              1,
		Seats:               1,
		Candidates:          []proposal.AccountId{"alice.near", "bob.near"},
		MinCandidateSupport: 1,
		StorageKey:          types.ProposalStorageKey(id),
	}
}

// TestInMemorySqliteMultipleTransaction tests that overlapping transactions on the
// in-memory sqlite store wait for each other instead of failing with a lock error
func TestInMemorySqliteMultipleTransaction(t *testing.T) {
	db := newTestDatabase(t)
	doQuery := func(sleep time.Duration) error {
		txn := db.Metadata().DB().Begin()
		if result := txn.First(&TestTable{}); result.Error != nil {
			return result.Error
		}
		time.Sleep(sleep)
		if result := txn.Commit(); result.Error != nil {
			return result.Error
		}
		return nil
	}
	if err := db.Metadata().DB().AutoMigrate(&TestTable{}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if result := db.Metadata().DB().Create(&TestTable{}); result.Error != nil {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- doQuery(500 * time.Millisecond)
	}()
	if err := doQuery(0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("goroutine error: %s", err)
	}
}

func TestNewUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "missing"})
	require.Error(t, err)
}

func TestProposalHeaderNotFound(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.GetProposalHeader(1, nil)
	require.ErrorIs(t, err, models.ErrProposalNotFound)

	txn := db.Transaction(false)
	defer txn.Release()
	_, err = db.LoadProposal(1, txn)
	require.ErrorIs(t, err, models.ErrProposalNotFound)

	_, err = db.LoadProposal(1, nil)
	require.ErrorIs(t, err, types.ErrNilTxn)
}

func TestTxnDoCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t)

	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		p, err := proposal.New(testConfig(1), db.KVStore(txn))
		if err != nil {
			return err
		}
		if err := p.VoteOnVerified(
			1500,
			[]proposal.TokenId{7},
			"carol.near",
			proposal.Vote{"bob.near"},
		); err != nil {
			return err
		}
		if err := db.SaveProposal(1, p, txn); err != nil {
			return err
		}
		if err := db.SetProposal(&models.Proposal{ID: 1, Seats: 1}, txn); err != nil {
			return err
		}
		return db.AddVote(&models.Vote{
			ProposalID: 1,
			TokenID:    types.Uint64(7),
			Voter:      "carol.near",
			Candidates: []string{"bob.near"},
			CastAt:     types.Uint64(1500),
		}, txn)
	})
	require.NoError(t, err)

	txn := db.Transaction(false)
	defer txn.Release()
	p, err := db.LoadProposal(1, txn)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, p.Result())
	assert.Equal(t, uint32(1), p.VotersNum())
	indexes, found, err := p.Voted(7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []uint32{1}, indexes)

	row, err := db.GetProposal(1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), row.Seats)
	vote, err := db.GetVote(1, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, "carol.near", vote.Voter)

	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Positive(t, blobTs)
	assert.Equal(t, blobTs, metadataTs)
}

func TestTxnDoRollsBackBothStores(t *testing.T) {
	db := newTestDatabase(t)
	errTest := errors.New("test error")

	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		p, err := proposal.New(testConfig(1), db.KVStore(txn))
		if err != nil {
			return err
		}
		if err := p.VoteOnVerified(
			1500,
			[]proposal.TokenId{7},
			"carol.near",
			proposal.Vote{"alice.near"},
		); err != nil {
			return err
		}
		if err := db.SaveProposal(1, p, txn); err != nil {
			return err
		}
		if err := db.SetProposal(&models.Proposal{ID: 1}, txn); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)

	_, err = db.GetProposalHeader(1, nil)
	require.ErrorIs(t, err, models.ErrProposalNotFound)
	_, err = db.GetProposal(1, nil)
	require.ErrorIs(t, err, models.ErrProposalNotFound)

	txn := db.Transaction(false)
	defer txn.Release()
	voterKey := append(types.ProposalStorageKey(1), 'v')
	voterKey = append(voterKey, proposal.TokenKey(7)...)
	_, found, err := db.KVStore(txn).Get(voterKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(false)
	defer txn.Release()
	err := db.SetProposalHeader(1, []byte{0x80}, txn)
	require.ErrorIs(t, err, types.ErrTxnReadOnly)
}

func TestNextProposalId(t *testing.T) {
	db := newTestDatabase(t)
	id, err := db.NextProposalId(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)

	require.NoError(t, db.SetProposal(&models.Proposal{ID: 1}, nil))
	require.NoError(t, db.SetProposal(&models.Proposal{ID: 5}, nil))
	id, err = db.NextProposalId(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), id)

	count, err := db.CountProposals(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestVoteLog(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.GetVote(1, 1, nil)
	require.ErrorIs(t, err, models.ErrVoteNotFound)
	require.ErrorIs(
		t,
		db.RevokeVote(1, 1, 10, "admin.near", nil),
		models.ErrVoteNotFound,
	)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, db.AddVote(&models.Vote{
			ProposalID: 1,
			TokenID:    types.Uint64(i),
			Voter:      "voter.near",
			CastAt:     types.Uint64(i),
		}, nil))
	}
	require.NoError(t, db.RevokeVote(1, 2, 10, "admin.near", nil))
	votes, err := db.GetVotes(1, 0, 10, nil)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.True(t, votes[1].Revoked())
	count, err := db.CountVotes(1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPolicyAcceptance(t *testing.T) {
	db := newTestDatabase(t)
	got, err := db.GetPolicyAcceptance("alice.near", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, db.SetPolicyAcceptance(&models.PolicyAcceptance{
		Account:    "alice.near",
		Policy:     make([]byte, 32),
		AcceptedAt: types.Uint64(5),
	}, nil))
	got, err = db.GetPolicyAcceptance("alice.near", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.Uint64(5), got.AcceptedAt)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dataDir := t.TempDir()
	config := &database.Config{DataDir: dataDir}
	db, err := database.New(config)
	require.NoError(t, err)
	require.NoError(t, db.SetProposalHeader(1, []byte{0x80}, nil))

	// Move the blob timestamp away from the metadata one
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(config)
	require.NotNil(t, db)
	defer db.Close() //nolint:errcheck
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
	assert.False(t, tsErr.BlobAhead())
}

func TestCommitTimestampBlobAhead(t *testing.T) {
	dataDir := t.TempDir()
	config := &database.Config{DataDir: dataDir}
	db, err := database.New(config)
	require.NoError(t, err)
	require.NoError(t, db.SetProposalHeader(1, []byte{0x80}, nil))

	// Leave the metadata store behind as a failed metadata commit would
	require.NoError(t, db.Metadata().SetCommitTimestamp(1, nil))
	require.NoError(t, db.Close())

	db, err = database.New(config)
	require.NotNil(t, db)
	defer db.Close() //nolint:errcheck
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.MetadataTimestamp)
	assert.True(t, tsErr.BlobAhead())
	assert.Contains(t, tsErr.Error(), "out of sync")
}

func TestReopenKeepsData(t *testing.T) {
	dataDir := t.TempDir()
	config := &database.Config{DataDir: dataDir}
	db, err := database.New(config)
	require.NoError(t, err)
	require.NoError(t, db.SetProposalHeader(3, []byte{0x01, 0x02}, nil))
	require.NoError(t, db.Close())

	db, err = database.New(config)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	data, err := db.GetProposalHeader(3, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, data)
	assert.Equal(t, dataDir, db.DataDir())
}
