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
	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/types"
)

// AddVote appends a ballot row. Earlier rows of the same token, revoked
// ones included, are left untouched.
func (s *Store) AddVote(vote *models.Vote, txn types.Txn) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(vote).Error
}

// RevokeVote marks the active ballot of a token as revoked. It returns
// models.ErrVoteNotFound when the token has no active ballot.
func (s *Store) RevokeVote(
	proposalId uint32,
	tokenId uint64,
	revokedAt uint64,
	revokedBy string,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Vote{}).
		Where(
			"proposal_id = ? AND token_id = ? AND revoked_at IS NULL",
			proposalId,
			types.Uint64(tokenId),
		).
		Updates(map[string]any{
			"revoked_at": types.Uint64(revokedAt),
			"revoked_by": revokedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrVoteNotFound
	}
	return nil
}

// GetVote returns the most recent ballot row of a token, or nil if there is
// none
func (s *Store) GetVote(
	proposalId uint32,
	tokenId uint64,
	txn types.Txn,
) (*models.Vote, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Vote{}
	result := db.Where(
		"proposal_id = ? AND token_id = ?",
		proposalId,
		types.Uint64(tokenId),
	).Order("id DESC").Take(ret)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetVotes returns a page of the ballot rows of a proposal, revoked ones
// included, in the order they were cast
func (s *Store) GetVotes(
	proposalId uint32,
	offset int,
	limit int,
	txn types.Txn,
) ([]models.Vote, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Where("proposal_id = ?", proposalId).Order("id ASC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ret []models.Vote
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) CountVotes(proposalId uint32, txn types.Txn) (int64, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return 0, err
	}
	var count int64
	result := db.Model(&models.Vote{}).
		Where("proposal_id = ?", proposalId).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
