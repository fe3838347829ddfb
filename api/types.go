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

package api

import (
	"github.com/blinklabs-io/elections/ledger"
	"github.com/blinklabs-io/elections/proposal"
)

// RootResponse is returned by GET /
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// CreateProposalResponse is returned by POST /api/v1/proposals
type CreateProposalResponse struct {
	Id uint32 `json:"id"`
}

// StatusResponse is returned by GET /api/v1/proposals/{id}/status
type StatusResponse struct {
	Id     uint32          `json:"id"`
	Status proposal.Status `json:"status"`
	Now    uint64          `json:"now"`
}

// VoteRequest is the body of POST /api/v1/proposals/{id}/votes
type VoteRequest struct {
	Voter proposal.AccountId `json:"voter"`
	Proof ledger.VoteProof   `json:"proof"`
	Vote  proposal.Vote      `json:"vote"`
}

// VoteResponse is an entry of the vote log
type VoteResponse struct {
	TokenId    uint64   `json:"token_id"`
	Voter      string   `json:"voter"`
	Candidates []string `json:"candidates"`
	CastAt     uint64   `json:"cast_at"`
	RevokedAt  *uint64  `json:"revoked_at"`
	RevokedBy  string   `json:"revoked_by,omitempty"`
}

// BallotResponse is returned by GET /api/v1/proposals/{id}/votes/{token}
type BallotResponse struct {
	TokenId    uint64               `json:"token_id"`
	Voted      bool                 `json:"voted"`
	Candidates []proposal.AccountId `json:"candidates"`
}

// AcceptPolicyRequest is the body of POST /api/v1/policy
type AcceptPolicyRequest struct {
	Voter  proposal.AccountId `json:"voter"`
	Policy string             `json:"policy"`
}
