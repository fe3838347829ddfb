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
	"github.com/blinklabs-io/elections/database/types"
)

type PolicyAcceptance struct {
	ID         uint         `gorm:"primarykey"`
	Account    string       `gorm:"uniqueIndex;size:64;not null"`
	Policy     []byte       `gorm:"size:32;not null"`
	AcceptedAt types.Uint64 `gorm:"size:20;not null"` // ms
}

func (PolicyAcceptance) TableName() string {
	return "policy_acceptance"
}
