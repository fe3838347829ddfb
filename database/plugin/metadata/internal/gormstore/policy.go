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

func (s *Store) SetPolicyAcceptance(
	acceptance *models.PolicyAcceptance,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"policy", "accepted_at"}),
	}).Create(acceptance)
	return result.Error
}

// GetPolicyAcceptance returns the policy accepted by an account, or nil if
// it has not accepted any
func (s *Store) GetPolicyAcceptance(
	account string,
	txn types.Txn,
) (*models.PolicyAcceptance, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.PolicyAcceptance{}
	result := db.First(ret, "account = ?", account)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}
