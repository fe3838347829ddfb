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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/plugin"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Proposals
	GetProposal(
		uint32, // proposalId
		types.Txn,
	) (*models.Proposal, error)
	GetProposals(
		int, // offset
		int, // limit
		bool, // desc
		types.Txn,
	) ([]models.Proposal, error)
	CountProposals(types.Txn) (int64, error)
	GetMaxProposalId(types.Txn) (uint32, error)
	SetProposal(*models.Proposal, types.Txn) error

	// Votes
	AddVote(*models.Vote, types.Txn) error
	RevokeVote(
		uint32, // proposalId
		uint64, // tokenId
		uint64, // revokedAt
		string, // revokedBy
		types.Txn,
	) error
	GetVote(
		uint32, // proposalId
		uint64, // tokenId
		types.Txn,
	) (*models.Vote, error)
	GetVotes(
		uint32, // proposalId
		int, // offset
		int, // limit
		types.Txn,
	) ([]models.Vote, error)
	CountVotes(uint32, types.Txn) (int64, error)

	// Policy
	GetPolicyAcceptance(
		string, // account
		types.Txn,
	) (*models.PolicyAcceptance, error)
	SetPolicyAcceptance(*models.PolicyAcceptance, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	p, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		pluginName,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
