// Copyright 2024 Blink Labs Software
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

package ledger

import (
	"bytes"
	"context"
	"errors"

	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/blinklabs-io/elections/event"
	"github.com/blinklabs-io/elections/proposal"
)

// VoteProof is the verified identity proof attached to a vote: the issuer
// of the soulbound tokens and the tokens held by the voter
type VoteProof struct {
	Issuer string             `json:"issuer"`
	Tokens []proposal.TokenId `json:"tokens"`
}

// Vote casts a ballot on a proposal. Either the whole vote is applied or
// nothing is.
func (l *Ledger) Vote(
	ctx context.Context,
	proposalId uint32,
	voter proposal.AccountId,
	proof VoteProof,
	vote proposal.Vote,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.vote(proposalId, voter, proof, vote); err != nil {
		l.metrics.voteRejections.WithLabelValues(rejectionReason(err)).Inc()
		l.config.Logger.Debug(
			"rejected vote",
			"component", "ledger",
			"proposal_id", proposalId,
			"voter", voter,
			"error", err,
		)
		return err
	}
	return nil
}

func (l *Ledger) vote(
	proposalId uint32,
	voter proposal.AccountId,
	proof VoteProof,
	vote proposal.Vote,
) error {
	if proof.Issuer != l.config.HumanIssuer {
		return proposal.ErrWrongIssuer
	}
	if len(proof.Tokens) == 0 {
		return proposal.ErrNoSBTs
	}
	l.Lock()
	defer l.Unlock()
	now := l.Now()
	var votersNum uint32
	err := l.db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := l.checkPolicy(voter, txn); err != nil {
			return err
		}
		p, err := l.db.LoadProposal(proposalId, txn)
		if err != nil {
			return err
		}
		if err := proposal.ValidateVote(
			p.Type,
			vote,
			p.Seats,
			p.Candidates,
		); err != nil {
			return err
		}
		if err := p.VoteOnVerified(now, proof.Tokens, voter, vote); err != nil {
			return err
		}
		if err := l.db.SaveProposal(proposalId, p, txn); err != nil {
			return err
		}
		for _, token := range proof.Tokens {
			err := l.db.AddVote(
				&models.Vote{
					ProposalID: proposalId,
					TokenID:    types.Uint64(token),
					Voter:      string(voter),
					Candidates: accountStrings(vote),
					CastAt:     types.Uint64(now),
				},
				txn,
			)
			if err != nil {
				return err
			}
		}
		votersNum = p.VotersNum()
		return nil
	})
	if err != nil {
		return err
	}
	l.metrics.votesCast.Inc()
	l.setVoters(proposalId, votersNum)
	l.config.Logger.Debug(
		"accepted vote",
		"component", "ledger",
		"proposal_id", proposalId,
		"voter", voter,
	)
	for _, token := range proof.Tokens {
		l.publish(
			event.VoteCastEventType,
			event.VoteCastEvent{
				ProposalId: proposalId,
				TokenId:    uint64(token),
				Voter:      string(voter),
				Candidates: accountStrings(vote),
				CastAt:     now,
			},
		)
	}
	return nil
}

// checkPolicy requires the voter to have accepted the configured policy
func (l *Ledger) checkPolicy(
	voter proposal.AccountId,
	txn *database.Txn,
) error {
	if l.policy == nil {
		return nil
	}
	acceptance, err := l.db.GetPolicyAcceptance(string(voter), txn)
	if err != nil {
		return err
	}
	if acceptance == nil || !bytes.Equal(acceptance.Policy, l.policy[:]) {
		return ErrPolicyNotAccepted
	}
	return nil
}

// RevokeVote removes a vote from the tally of a proposal. Only authorities
// may revoke votes, during voting or the cooldown that follows it.
func (l *Ledger) RevokeVote(
	ctx context.Context,
	proposalId uint32,
	token proposal.TokenId,
	authority string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.IsAuthority(authority) {
		return ErrUnauthorized
	}
	l.Lock()
	defer l.Unlock()
	now := l.Now()
	var votersNum uint32
	err := l.db.Transaction(true).Do(func(txn *database.Txn) error {
		p, err := l.db.LoadProposal(proposalId, txn)
		if err != nil {
			return err
		}
		if err := p.RevokeVotes(now, token); err != nil {
			return err
		}
		if err := l.db.SaveProposal(proposalId, p, txn); err != nil {
			return err
		}
		err = l.db.RevokeVote(proposalId, uint64(token), now, authority, txn)
		// The vote log may be behind the tally on stores restored from an
		// older backup. The tally is authoritative.
		if err != nil && !errors.Is(err, models.ErrVoteNotFound) {
			return err
		}
		votersNum = p.VotersNum()
		return nil
	})
	if err != nil {
		return err
	}
	l.metrics.votesRevoked.Inc()
	l.setVoters(proposalId, votersNum)
	l.config.Logger.Info(
		"revoked vote",
		"component", "ledger",
		"proposal_id", proposalId,
		"token", token,
		"authority", authority,
	)
	l.publish(
		event.VoteRevokedEventType,
		event.VoteRevokedEvent{
			ProposalId: proposalId,
			TokenId:    uint64(token),
			RevokedBy:  authority,
			RevokedAt:  now,
		},
	)
	return nil
}

// Ballot returns the candidates a token voted for. The boolean is false if
// the token has no active vote on the proposal.
func (l *Ledger) Ballot(
	proposalId uint32,
	token proposal.TokenId,
) ([]proposal.AccountId, bool, error) {
	txn := l.db.Transaction(false)
	defer txn.Release()
	p, err := l.db.LoadProposal(proposalId, txn)
	if err != nil {
		return nil, false, err
	}
	indexes, found, err := p.Voted(token)
	if err != nil || !found {
		return nil, false, err
	}
	ret := make([]proposal.AccountId, 0, len(indexes))
	for _, idx := range indexes {
		ret = append(ret, p.Candidates[idx])
	}
	return ret, true, nil
}

// HasVoted returns true if the token has an active vote on the proposal
func (l *Ledger) HasVoted(
	proposalId uint32,
	token proposal.TokenId,
) (bool, error) {
	_, found, err := l.Ballot(proposalId, token)
	return found, err
}

// VoterToken returns the token an account voted with on the proposal
func (l *Ledger) VoterToken(
	proposalId uint32,
	voter proposal.AccountId,
) (proposal.TokenId, bool, error) {
	txn := l.db.Transaction(false)
	defer txn.Release()
	p, err := l.db.LoadProposal(proposalId, txn)
	if err != nil {
		return 0, false, err
	}
	return p.VoterToken(voter)
}

// Votes returns a page of the vote log of a proposal, revoked votes
// included, along with the total number of entries
func (l *Ledger) Votes(
	proposalId uint32,
	offset int,
	limit int,
) ([]models.Vote, int64, error) {
	txn := l.db.Transaction(false)
	defer txn.Release()
	if _, err := l.db.GetProposal(proposalId, txn); err != nil {
		return nil, 0, err
	}
	total, err := l.db.CountVotes(proposalId, txn)
	if err != nil {
		return nil, 0, err
	}
	votes, err := l.db.GetVotes(proposalId, offset, limit, txn)
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}
