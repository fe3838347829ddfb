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

package database

import (
	"github.com/blinklabs-io/elections/database/models"
)

// AddVote appends a ballot to the vote log
func (d *Database) AddVote(vote *models.Vote, txn *Txn) error {
	return d.metadata.AddVote(vote, metadataTxn(txn))
}

// RevokeVote marks the active ballot of a token as revoked
func (d *Database) RevokeVote(
	proposalId uint32,
	tokenId uint64,
	revokedAt uint64,
	revokedBy string,
	txn *Txn,
) error {
	return d.metadata.RevokeVote(
		proposalId,
		tokenId,
		revokedAt,
		revokedBy,
		metadataTxn(txn),
	)
}

// GetVote returns the latest ballot row of a token. It returns
// models.ErrVoteNotFound if the token never voted on the proposal.
func (d *Database) GetVote(
	proposalId uint32,
	tokenId uint64,
	txn *Txn,
) (models.Vote, error) {
	ret, err := d.metadata.GetVote(proposalId, tokenId, metadataTxn(txn))
	if err != nil {
		return models.Vote{}, err
	}
	if ret == nil {
		return models.Vote{}, models.ErrVoteNotFound
	}
	return *ret, nil
}

// GetVotes returns a page of the vote log of a proposal, including revoked
// ballots
func (d *Database) GetVotes(
	proposalId uint32,
	offset int,
	limit int,
	txn *Txn,
) ([]models.Vote, error) {
	return d.metadata.GetVotes(proposalId, offset, limit, metadataTxn(txn))
}

func (d *Database) CountVotes(proposalId uint32, txn *Txn) (int64, error) {
	return d.metadata.CountVotes(proposalId, metadataTxn(txn))
}

// SetPolicyAcceptance records the policy an account has accepted
func (d *Database) SetPolicyAcceptance(
	acceptance *models.PolicyAcceptance,
	txn *Txn,
) error {
	return d.metadata.SetPolicyAcceptance(acceptance, metadataTxn(txn))
}

// GetPolicyAcceptance returns the policy accepted by an account, or nil if
// it has not accepted one
func (d *Database) GetPolicyAcceptance(
	account string,
	txn *Txn,
) (*models.PolicyAcceptance, error) {
	return d.metadata.GetPolicyAcceptance(account, metadataTxn(txn))
}
