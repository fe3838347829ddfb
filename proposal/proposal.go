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
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	votersKeySuffix  = 'v'
	userSbtKeySuffix = 'u'
)

// Config describes a new proposal
type Config struct {
	Type    ProposalType
	RefLink string
	// Start and End of voting as Unix timestamps in milliseconds
	Start uint64
	End   uint64
	// Cooldown after End, in milliseconds, during which votes can no longer
	// be cast but malicious votes can still be revoked
	Cooldown uint64
	// Minimum number of voters to legitimize the result
	Quorum uint32
	// Maximum number of candidates a voter may select
	Seats uint16
	// Candidates must be strictly sorted
	Candidates []AccountId
	// Minimum number of votes for a candidate to be considered a winner
	MinCandidateSupport uint64
	// StorageKey namespaces the voter maps of this proposal in the store
	StorageKey []byte
}

// Proposal is a single election. The voter records live in the KVStore the
// proposal was bound to, everything else is held in the struct and persisted
// by the caller with Encode.
type Proposal struct {
	Type                ProposalType
	RefLink             string
	Start               uint64
	End                 uint64
	Cooldown            uint64
	Quorum              uint32
	Seats               uint16
	Candidates          []AccountId
	MinCandidateSupport uint64
	result              []uint64
	votersNum           uint32
	storageKey          []byte
	voters              *LookupMap[TokenId, []uint32]
	userSbt             *LookupMap[AccountId, TokenId]
}

// New creates a proposal with zeroed results bound to the given store
func New(cfg Config, store KVStore) (*Proposal, error) {
	if !cfg.Type.Valid() {
		return nil, newRejectedError(
			fmt.Sprintf("unknown proposal type: %d", uint8(cfg.Type)),
		)
	}
	if cfg.Start > cfg.End {
		return nil, newRejectedError("proposal start must be before end")
	}
	if len(cfg.StorageKey) == 0 {
		return nil, newRejectedError("proposal storage key must be set")
	}
	if err := checkCandidates(cfg.Candidates); err != nil {
		return nil, err
	}
	p := &Proposal{
		Type:                cfg.Type,
		RefLink:             cfg.RefLink,
		Start:               cfg.Start,
		End:                 cfg.End,
		Cooldown:            cfg.Cooldown,
		Quorum:              cfg.Quorum,
		Seats:               cfg.Seats,
		Candidates:          slices.Clone(cfg.Candidates),
		MinCandidateSupport: cfg.MinCandidateSupport,
		result:              make([]uint64, len(cfg.Candidates)),
		storageKey:          slices.Clone(cfg.StorageKey),
	}
	p.bind(store)
	return p, nil
}

// checkCandidates requires a strictly sorted candidate list, which rules out
// duplicates and lets votes be resolved with a binary search
func checkCandidates(candidates []AccountId) error {
	for i := 1; i < len(candidates); i++ {
		if candidates[i-1] >= candidates[i] {
			return newRejectedError(
				"candidates must be sorted and unique",
			)
		}
	}
	return nil
}

func (p *Proposal) bind(store KVStore) {
	p.voters = NewLookupMap[TokenId, []uint32](
		store,
		append(slices.Clone(p.storageKey), votersKeySuffix),
		TokenKey,
	)
	p.userSbt = NewLookupMap[AccountId, TokenId](
		store,
		append(slices.Clone(p.storageKey), userSbtKeySuffix),
		AccountKey,
	)
}

// Result returns a copy of the running tally, in candidate order
func (p *Proposal) Result() []uint64 {
	return slices.Clone(p.result)
}

// VotersNum returns the number of tokens with an active vote
func (p *Proposal) VotersNum() uint32 {
	return p.votersNum
}

func (p *Proposal) StorageKey() []byte {
	return slices.Clone(p.storageKey)
}

// cooldownEnd returns End+Cooldown, saturating instead of wrapping
func (p *Proposal) cooldownEnd() uint64 {
	if p.Cooldown > math.MaxUint64-p.End {
		return math.MaxUint64
	}
	return p.End + p.Cooldown
}

// Status returns the proposal status at the given time (milliseconds)
func (p *Proposal) Status(now uint64) Status {
	switch {
	case now < p.Start:
		return StatusNotStarted
	case now <= p.End:
		return StatusOngoing
	case now <= p.cooldownEnd():
		return StatusCooldown
	default:
		return StatusEnded
	}
}

func (p *Proposal) AssertActive(now uint64) error {
	if p.Status(now) != StatusOngoing {
		return newRejectedError(
			"can only vote between proposal start and end time",
		)
	}
	return nil
}

func (p *Proposal) IsActiveOrCooldown(now uint64) bool {
	return p.Start <= now && now <= p.cooldownEnd()
}

func (p *Proposal) IsPastCooldown(now uint64) bool {
	return now > p.cooldownEnd()
}

// VoteOnVerified registers a vote once the voter's proof has been verified
// and the ballot has passed ValidateVote. Exactly one token is accepted per
// vote. Nothing is modified unless every check passes.
func (p *Proposal) VoteOnVerified(
	now uint64,
	tokens []TokenId,
	voter AccountId,
	vote Vote,
) error {
	if err := p.AssertActive(now); err != nil {
		return err
	}
	if len(tokens) == 0 {
		return ErrNoSBTs
	}
	if len(tokens) > 1 {
		return newRejectedError("only one SBT per vote is supported")
	}
	for _, token := range tokens {
		voted, err := p.voters.ContainsKey(token)
		if err != nil {
			return err
		}
		if voted {
			return NewDoubleVoteError(token)
		}
	}
	indexes := make([]uint32, 0, len(vote))
	for _, candidate := range vote {
		idx, found := slices.BinarySearch(p.Candidates, candidate)
		if !found {
			return newRejectedError("vote for unknown option")
		}
		indexes = append(indexes, uint32(idx)) //nolint:gosec
	}
	for _, token := range tokens {
		if _, _, err := p.voters.Insert(token, indexes); err != nil {
			return err
		}
		if _, _, err := p.userSbt.Insert(voter, token); err != nil {
			return err
		}
	}
	for _, idx := range indexes {
		p.result[idx]++
	}
	p.votersNum++
	return nil
}

// RevokeVotes removes the vote cast with the given token and reverts its
// effect on the tally
func (p *Proposal) RevokeVotes(now uint64, token TokenId) error {
	if !p.IsActiveOrCooldown(now) {
		return ErrNotActive
	}
	indexes, found, err := p.voters.Get(token)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotVoted
	}
	for _, idx := range indexes {
		if int(idx) >= len(p.result) || p.result[idx] == 0 {
			return fmt.Errorf(
				"corrupt voter record for sbt=%d: candidate index %d",
				token,
				idx,
			)
		}
	}
	if p.votersNum == 0 {
		return errors.New("corrupt proposal: voter count is zero")
	}
	if _, _, err := p.voters.Remove(token); err != nil {
		return err
	}
	for _, idx := range indexes {
		p.result[idx]--
	}
	p.votersNum--
	return nil
}

// Voted returns the candidate indexes recorded for a token
func (p *Proposal) Voted(token TokenId) ([]uint32, bool, error) {
	return p.voters.Get(token)
}

// VoterToken returns the token an account last voted with
func (p *Proposal) VoterToken(voter AccountId) (TokenId, bool, error) {
	return p.userSbt.Get(voter)
}

type proposalHeader struct {
	cbor.StructAsArray
	Type                uint8
	RefLink             string
	Start               uint64
	End                 uint64
	Cooldown            uint64
	Quorum              uint32
	Seats               uint16
	Candidates          []string
	Result              []uint64
	VotersNum           uint32
	MinCandidateSupport uint64
	StorageKey          []byte
}

// Encode serializes everything but the voter maps, which already live in
// the store
func (p *Proposal) Encode() ([]byte, error) {
	tmp := proposalHeader{
		Type:                uint8(p.Type),
		RefLink:             p.RefLink,
		Start:               p.Start,
		End:                 p.End,
		Cooldown:            p.Cooldown,
		Quorum:              p.Quorum,
		Seats:               p.Seats,
		Candidates:          make([]string, len(p.Candidates)),
		Result:              p.result,
		VotersNum:           p.votersNum,
		MinCandidateSupport: p.MinCandidateSupport,
		StorageKey:          p.storageKey,
	}
	for i, c := range p.Candidates {
		tmp.Candidates[i] = string(c)
	}
	return cbor.Encode(&tmp)
}

// Decode restores a proposal written by Encode and binds it to the store
func Decode(data []byte, store KVStore) (*Proposal, error) {
	var tmp proposalHeader
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}
	candidates := make([]AccountId, len(tmp.Candidates))
	for i, c := range tmp.Candidates {
		candidates[i] = AccountId(c)
	}
	p, err := New(
		Config{
			Type:                ProposalType(tmp.Type),
			RefLink:             tmp.RefLink,
			Start:               tmp.Start,
			End:                 tmp.End,
			Cooldown:            tmp.Cooldown,
			Quorum:              tmp.Quorum,
			Seats:               tmp.Seats,
			Candidates:          candidates,
			MinCandidateSupport: tmp.MinCandidateSupport,
			StorageKey:          tmp.StorageKey,
		},
		store,
	)
	if err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}
	if len(tmp.Result) != len(p.Candidates) {
		return nil, fmt.Errorf(
			"decode proposal: %d results for %d candidates",
			len(tmp.Result),
			len(p.Candidates),
		)
	}
	p.result = tmp.Result
	p.votersNum = tmp.VotersNum
	return p, nil
}
