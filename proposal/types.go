// Copyright 2026 Blink Labs Software
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

package proposal

import (
	"fmt"
)

// TokenId identifies a soulbound token (SBT) issued to a verified human
type TokenId uint64

// AccountId identifies an account, either a voter or a candidate
type AccountId string

// Vote is a ballot: the candidates selected by a single voter
type Vote []AccountId

type ProposalType uint8

const (
	HouseOfMerit ProposalType = iota
	CouncilOfAdvisors
	TransparencyCommission
	SetupPackage
)

var proposalTypeNames = map[ProposalType]string{
	HouseOfMerit:           "HouseOfMerit",
	CouncilOfAdvisors:      "CouncilOfAdvisors",
	TransparencyCommission: "TransparencyCommission",
	SetupPackage:           "SetupPackage",
}

func (t ProposalType) String() string {
	if name, ok := proposalTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ProposalType(%d)", uint8(t))
}

// Valid returns true if the type is one of the known proposal types
func (t ProposalType) Valid() bool {
	_, ok := proposalTypeNames[t]
	return ok
}

func (t ProposalType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown proposal type: %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *ProposalType) UnmarshalText(data []byte) error {
	tmp, err := ParseProposalType(string(data))
	if err != nil {
		return err
	}
	*t = tmp
	return nil
}

// ParseProposalType returns the proposal type matching the given name
func ParseProposalType(name string) (ProposalType, error) {
	for typ, typName := range proposalTypeNames {
		if typName == name {
			return typ, nil
		}
	}
	return 0, fmt.Errorf("unknown proposal type: %q", name)
}

// Status is the lifecycle state of a proposal. It is never stored, only
// computed from the proposal timing and the current time.
type Status uint8

const (
	StatusNotStarted Status = iota
	StatusOngoing
	StatusCooldown
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NOT_STARTED"
	case StatusOngoing:
		return "ONGOING"
	case StatusCooldown:
		return "COOLDOWN"
	case StatusEnded:
		return "ENDED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(data []byte) error {
	switch string(data) {
	case "NOT_STARTED":
		*s = StatusNotStarted
	case "ONGOING":
		*s = StatusOngoing
	case "COOLDOWN":
		*s = StatusCooldown
	case "ENDED":
		*s = StatusEnded
	default:
		return fmt.Errorf("unknown proposal status: %q", string(data))
	}
	return nil
}
