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

package models

import (
	"errors"

	"github.com/blinklabs-io/elections/database/types"
)

var ErrVoteNotFound = errors.New("vote not found")

// Vote is the audit row of a ballot. Every cast gets its own row, so a
// token that votes again after a revocation leaves the revoked row intact.
type Vote struct {
	ID         uint          `gorm:"primarykey"`
	ProposalID uint32        `gorm:"index:idx_vote_token,priority:1;not null"`
	TokenID    types.Uint64  `gorm:"index:idx_vote_token,priority:2;size:20;not null"`
	Voter      string        `gorm:"index;size:64;not null"`
	Candidates []string      `gorm:"serializer:json"`
	CastAt     types.Uint64  `gorm:"size:20;not null"` // ms
	RevokedAt  *types.Uint64 `gorm:"size:20"`          // ms
	RevokedBy  string        `gorm:"size:64"`
}

func (Vote) TableName() string {
	return "vote"
}

// Revoked returns whether the ballot has been removed from the tally
func (v *Vote) Revoked() bool {
	return v.RevokedAt != nil
}
