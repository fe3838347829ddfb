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
	"gorm.io/gorm/clause"
)

// SetProposal inserts or replaces a proposal index row
func (s *Store) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(proposal)
	return result.Error
}

// GetProposal returns the proposal row with the given id, or nil if there is
// none
func (s *Store) GetProposal(
	id uint32,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Proposal{}
	result := db.First(ret, "id = ?", id)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetProposals returns a page of proposals ordered by id. A limit of zero
// or less returns all rows.
func (s *Store) GetProposals(
	offset int,
	limit int,
	desc bool,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, err
	}
	order := "id ASC"
	if desc {
		order = "id DESC"
	}
	query := db.Order(order)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ret []models.Proposal
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) CountProposals(txn types.Txn) (int64, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return 0, err
	}
	var count int64
	if result := db.Model(&models.Proposal{}).Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// GetMaxProposalId returns the highest proposal id in use, or 0 when there
// are no proposals
func (s *Store) GetMaxProposalId(txn types.Txn) (uint32, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return 0, err
	}
	var maxId uint32
	result := db.Model(&models.Proposal{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxId)
	if result.Error != nil {
		return 0, result.Error
	}
	return maxId, nil
}
