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
	"context"

	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/blinklabs-io/elections/event"
	"github.com/blinklabs-io/elections/proposal"
)

// ProposalSpec describes a proposal to create. Times are Unix milliseconds.
type ProposalSpec struct {
	Type                proposal.ProposalType `json:"typ"                   yaml:"type"`
	RefLink             string                `json:"ref_link"              yaml:"refLink"`
	Start               uint64                `json:"start"                 yaml:"start"`
	End                 uint64                `json:"end"                   yaml:"end"`
	Cooldown            uint64                `json:"cooldown"              yaml:"cooldown"`
	Quorum              uint32                `json:"quorum"                yaml:"quorum"`
	Seats               uint16                `json:"seats"                 yaml:"seats"`
	Candidates          []proposal.AccountId  `json:"candidates"            yaml:"candidates"`
	MinCandidateSupport uint64                `json:"min_candidate_support" yaml:"minCandidateSupport"`
}

// CreateProposal stores a new proposal and returns its id. Ids are assigned
// sequentially starting at 1.
func (l *Ledger) CreateProposal(
	ctx context.Context,
	authority string,
	spec ProposalSpec,
) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !l.IsAuthority(authority) {
		return 0, ErrUnauthorized
	}
	l.Lock()
	defer l.Unlock()
	var proposalId uint32
	err := l.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		proposalId, err = l.db.NextProposalId(txn)
		if err != nil {
			return err
		}
		storageKey := types.ProposalStorageKey(proposalId)
		p, err := proposal.New(
			proposal.Config{
				Type:                spec.Type,
				RefLink:             spec.RefLink,
				Start:               spec.Start,
				End:                 spec.End,
				Cooldown:            spec.Cooldown,
				Quorum:              spec.Quorum,
				Seats:               spec.Seats,
				Candidates:          spec.Candidates,
				MinCandidateSupport: spec.MinCandidateSupport,
				StorageKey:          storageKey,
			},
			l.db.KVStore(txn),
		)
		if err != nil {
			return err
		}
		if err := l.db.SaveProposal(proposalId, p, txn); err != nil {
			return err
		}
		return l.db.SetProposal(
			&models.Proposal{
				ID:                  proposalId,
				Type:                uint8(p.Type),
				RefLink:             p.RefLink,
				Start:               types.Uint64(p.Start),
				End:                 types.Uint64(p.End),
				Cooldown:            types.Uint64(p.Cooldown),
				Quorum:              p.Quorum,
				Seats:               p.Seats,
				Candidates:          accountStrings(p.Candidates),
				MinCandidateSupport: types.Uint64(p.MinCandidateSupport),
				StorageKey:          storageKey,
			},
			txn,
		)
	})
	if err != nil {
		return 0, err
	}
	l.metrics.proposals.Inc()
	l.config.Logger.Info(
		"created proposal",
		"component", "ledger",
		"proposal_id", proposalId,
		"type", spec.Type.String(),
		"authority", authority,
	)
	l.publish(
		event.ProposalCreatedEventType,
		event.ProposalCreatedEvent{
			ProposalId: proposalId,
			Type:       spec.Type.String(),
			Start:      spec.Start,
			End:        spec.End,
			Candidates: accountStrings(spec.Candidates),
		},
	)
	return proposalId, nil
}

// Proposal returns the current view of a proposal
func (l *Ledger) Proposal(proposalId uint32) (proposal.View, error) {
	txn := l.db.Transaction(false)
	defer txn.Release()
	p, err := l.db.LoadProposal(proposalId, txn)
	if err != nil {
		return proposal.View{}, err
	}
	return p.ToView(proposalId), nil
}

// Proposals returns a page of proposal views ordered by id along with the
// total number of proposals
func (l *Ledger) Proposals(
	offset int,
	limit int,
	desc bool,
) ([]proposal.View, int64, error) {
	txn := l.db.Transaction(false)
	defer txn.Release()
	total, err := l.db.CountProposals(txn)
	if err != nil {
		return nil, 0, err
	}
	rows, err := l.db.GetProposals(offset, limit, desc, txn)
	if err != nil {
		return nil, 0, err
	}
	ret := make([]proposal.View, 0, len(rows))
	for _, row := range rows {
		p, err := l.db.LoadProposal(row.ID, txn)
		if err != nil {
			return nil, 0, err
		}
		ret = append(ret, p.ToView(row.ID))
	}
	return ret, total, nil
}

// Status returns the status of a proposal at the given time in milliseconds
func (l *Ledger) Status(
	proposalId uint32,
	now uint64,
) (proposal.Status, error) {
	txn := l.db.Transaction(false)
	defer txn.Release()
	p, err := l.db.LoadProposal(proposalId, txn)
	if err != nil {
		return 0, err
	}
	return p.Status(now), nil
}

func accountStrings(accounts []proposal.AccountId) []string {
	ret := make([]string, len(accounts))
	for i, a := range accounts {
		ret[i] = string(a)
	}
	return ret
}
