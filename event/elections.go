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

package event

const (
	ProposalCreatedEventType EventType = "proposal.created"
	VoteCastEventType        EventType = "vote.cast"
	VoteRevokedEventType     EventType = "vote.revoked"
	PolicyAcceptedEventType  EventType = "policy.accepted"
)

// ProposalCreatedEvent is published after a proposal has been committed
type ProposalCreatedEvent struct {
	ProposalId uint32
	Type       string
	Start      uint64
	End        uint64
	Candidates []string
}

// VoteCastEvent is published after a ballot has been committed
type VoteCastEvent struct {
	ProposalId uint32
	TokenId    uint64
	Voter      string
	Candidates []string
	// Timestamp of the vote in milliseconds
	CastAt uint64
}

// VoteRevokedEvent is published after a ballot has been revoked
type VoteRevokedEvent struct {
	ProposalId uint32
	TokenId    uint64
	RevokedBy  string
	RevokedAt  uint64
}

type PolicyAcceptedEvent struct {
	Account string
	Policy  [32]byte
}
