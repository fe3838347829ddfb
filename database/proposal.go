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

package database

import (
	"errors"
	"math"

	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/blinklabs-io/elections/proposal"
)

// GetProposalHeader returns the encoded header of a proposal. It returns
// models.ErrProposalNotFound when no header is stored.
func (d *Database) GetProposalHeader(
	proposalId uint32,
	txn *Txn,
) ([]byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	data, err := d.blob.Get(txn.Blob(), types.ProposalBlobKey(proposalId))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, models.ErrProposalNotFound
		}
		return nil, err
	}
	return data, nil
}

// SetProposalHeader stores the encoded header of a proposal
func (d *Database) SetProposalHeader(
	proposalId uint32,
	data []byte,
	txn *Txn,
) error {
	if txn == nil {
		return d.Transaction(true).Do(func(txn *Txn) error {
			return d.SetProposalHeader(proposalId, data, txn)
		})
	}
	return d.blob.Set(txn.Blob(), types.ProposalBlobKey(proposalId), data)
}

// LoadProposal decodes a stored proposal and binds it to the blob half of
// txn, so that voter updates become part of the transaction. The proposal
// must not be used after txn is finished.
func (d *Database) LoadProposal(
	proposalId uint32,
	txn *Txn,
) (*proposal.Proposal, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	data, err := d.GetProposalHeader(proposalId, txn)
	if err != nil {
		return nil, err
	}
	return proposal.Decode(data, d.KVStore(txn))
}

// SaveProposal encodes and stores the header of a proposal
func (d *Database) SaveProposal(
	proposalId uint32,
	p *proposal.Proposal,
	txn *Txn,
) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	return d.SetProposalHeader(proposalId, data, txn)
}

// SetProposal writes the index row of a proposal
func (d *Database) SetProposal(
	row *models.Proposal,
	txn *Txn,
) error {
	return d.metadata.SetProposal(row, metadataTxn(txn))
}

// GetProposal returns the index row of a proposal
func (d *Database) GetProposal(
	proposalId uint32,
	txn *Txn,
) (models.Proposal, error) {
	ret, err := d.metadata.GetProposal(proposalId, metadataTxn(txn))
	if err != nil {
		return models.Proposal{}, err
	}
	if ret == nil {
		return models.Proposal{}, models.ErrProposalNotFound
	}
	return *ret, nil
}

// GetProposals returns a page of proposal index rows ordered by id
func (d *Database) GetProposals(
	offset int,
	limit int,
	desc bool,
	txn *Txn,
) ([]models.Proposal, error) {
	return d.metadata.GetProposals(offset, limit, desc, metadataTxn(txn))
}

func (d *Database) CountProposals(txn *Txn) (int64, error) {
	return d.metadata.CountProposals(metadataTxn(txn))
}

// NextProposalId returns the id the next proposal will be created with.
// Ids start at 1.
func (d *Database) NextProposalId(txn *Txn) (uint32, error) {
	maxId, err := d.metadata.GetMaxProposalId(metadataTxn(txn))
	if err != nil {
		return 0, err
	}
	if maxId == math.MaxUint32 {
		return 0, ErrProposalIdExhausted
	}
	return maxId + 1, nil
}

// metadataTxn returns the metadata half of txn, or nil to run outside of a
// transaction
func metadataTxn(txn *Txn) types.Txn {
	if txn == nil {
		return nil
	}
	return txn.Metadata()
}
