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
	"time"

	"github.com/blinklabs-io/elections/database/types"
)

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal is the queryable index row of a proposal. The authoritative
// state (tally and voter maps) lives in the blob store.
type Proposal struct {
	ID                  uint32       `gorm:"primarykey;autoIncrement:false"`
	Type                uint8        `gorm:"index;not null"`
	RefLink             string       `gorm:"size:256;not null"`
	Start               types.Uint64 `gorm:"size:20;not null"`
	End                 types.Uint64 `gorm:"size:20;not null"`
	Cooldown            types.Uint64 `gorm:"size:20;not null"`
	Quorum              uint32       `gorm:"not null"`
	Seats               uint16       `gorm:"not null"`
	Candidates          []string     `gorm:"serializer:json"`
	MinCandidateSupport types.Uint64 `gorm:"size:20;not null"`
	StorageKey          []byte       `gorm:"size:16;not null"`
	CreatedAt           time.Time
}

func (Proposal) TableName() string {
	return "proposal"
}
