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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/elections/internal/version"
	"github.com/blinklabs-io/elections/ledger"
	"github.com/blinklabs-io/elections/proposal"
)

const (
	// AuthorityHeader carries the account of the caller for authority-only
	// requests
	AuthorityHeader = "X-Authority"

	maxRequestBodySize = 1 << 20
)

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// errorStatus maps ledger errors to an HTTP status code
func errorStatus(err error) int {
	var revokeErr proposal.RevokeVoteError
	switch {
	case errors.Is(err, proposal.ErrRejected),
		errors.Is(err, ledger.ErrPolicyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, proposal.ErrWrongIssuer),
		errors.Is(err, proposal.ErrNoSBTs),
		errors.Is(err, ledger.ErrUnauthorized),
		errors.Is(err, ledger.ErrPolicyNotAccepted):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrProposalNotFound),
		errors.Is(err, proposal.ErrNotVoted):
		return http.StatusNotFound
	case errors.Is(err, proposal.ErrDoubleVote),
		errors.As(err, &revokeErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeLedgerError writes the response for an error returned by the ledger.
// Internal errors are logged and not exposed to the client.
func (s *Server) writeLedgerError(
	w http.ResponseWriter,
	err error,
	msg string,
) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(
			msg,
			"error", err,
		)
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields
func decodeBody(
	w http.ResponseWriter,
	r *http.Request,
	v any,
) bool {
	dec := json.NewDecoder(
		http.MaxBytesReader(w, r.Body, maxRequestBodySize),
	)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"invalid request body: "+err.Error(),
		)
		return false
	}
	return true
}

func parseProposalId(
	w http.ResponseWriter,
	r *http.Request,
) (uint32, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return 0, false
	}
	return uint32(id), true
}

func parseToken(
	w http.ResponseWriter,
	r *http.Request,
) (proposal.TokenId, bool) {
	token, err := strconv.ParseUint(r.PathValue("token"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return 0, false
	}
	return proposal.TokenId(token), true
}

// handleRoot handles GET / and returns API metadata
func (s *Server) handleRoot(
	w http.ResponseWriter,
	r *http.Request,
) {
	// The catch-all pattern also matches unknown paths
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "elections",
		Version: version.GetVersionString(),
	})
}

func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleProposals handles GET /api/v1/proposals
func (s *Server) handleProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views, total, err := s.ledger.Proposals(
		params.Offset(),
		params.Count,
		params.Desc(),
	)
	if err != nil {
		s.writeLedgerError(w, err, "failed to retrieve proposals")
		return
	}
	if views == nil {
		views = []proposal.View{}
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, views)
}

// handleCreateProposal handles POST /api/v1/proposals
func (s *Server) handleCreateProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	var spec ledger.ProposalSpec
	if !decodeBody(w, r, &spec) {
		return
	}
	id, err := s.ledger.CreateProposal(
		r.Context(),
		r.Header.Get(AuthorityHeader),
		spec,
	)
	if err != nil {
		s.writeLedgerError(w, err, "failed to create proposal")
		return
	}
	writeJSON(w, http.StatusCreated, CreateProposalResponse{Id: id})
}

// handleProposal handles GET /api/v1/proposals/{id}
func (s *Server) handleProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := parseProposalId(w, r)
	if !ok {
		return
	}
	view, err := s.ledger.Proposal(id)
	if err != nil {
		s.writeLedgerError(w, err, "failed to retrieve proposal")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleProposalStatus handles GET /api/v1/proposals/{id}/status. The
// optional now query parameter is a Unix timestamp in milliseconds.
func (s *Server) handleProposalStatus(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := parseProposalId(w, r)
	if !ok {
		return
	}
	now := s.ledger.Now()
	if nowParam := r.URL.Query().Get("now"); nowParam != "" {
		tmp, err := strconv.ParseUint(nowParam, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid now parameter")
			return
		}
		now = tmp
	}
	status, err := s.ledger.Status(id, now)
	if err != nil {
		s.writeLedgerError(w, err, "failed to retrieve proposal status")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Id:     id,
		Status: status,
		Now:    now,
	})
}

// handleVote handles POST /api/v1/proposals/{id}/votes
func (s *Server) handleVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := parseProposalId(w, r)
	if !ok {
		return
	}
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Voter == "" {
		writeError(w, http.StatusBadRequest, "voter must be set")
		return
	}
	err := s.ledger.Vote(r.Context(), id, req.Voter, req.Proof, req.Vote)
	if err != nil {
		s.writeLedgerError(w, err, "failed to cast vote")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVotes handles GET /api/v1/proposals/{id}/votes
func (s *Server) handleVotes(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := parseProposalId(w, r)
	if !ok {
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	votes, total, err := s.ledger.Votes(id, params.Offset(), params.Count)
	if err != nil {
		s.writeLedgerError(w, err, "failed to retrieve votes")
		return
	}
	ret := make([]VoteResponse, 0, len(votes))
	for _, vote := range votes {
		tmp := VoteResponse{
			TokenId:    uint64(vote.TokenID),
			Voter:      vote.Voter,
			Candidates: vote.Candidates,
			CastAt:     uint64(vote.CastAt),
			RevokedBy:  vote.RevokedBy,
		}
		if vote.RevokedAt != nil {
			revokedAt := uint64(*vote.RevokedAt)
			tmp.RevokedAt = &revokedAt
		}
		if tmp.Candidates == nil {
			tmp.Candidates = []string{}
		}
		ret = append(ret, tmp)
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, ret)
}

// handleBallot handles GET /api/v1/proposals/{id}/votes/{token}
func (s *Server) handleBallot(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := parseProposalId(w, r)
	if !ok {
		return
	}
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	candidates, voted, err := s.ledger.Ballot(id, token)
	if err != nil {
		s.writeLedgerError(w, err, "failed to retrieve ballot")
		return
	}
	if candidates == nil {
		candidates = []proposal.AccountId{}
	}
	writeJSON(w, http.StatusOK, BallotResponse{
		TokenId:    uint64(token),
		Voted:      voted,
		Candidates: candidates,
	})
}

// handleRevokeVote handles DELETE /api/v1/proposals/{id}/votes/{token}
func (s *Server) handleRevokeVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, ok := parseProposalId(w, r)
	if !ok {
		return
	}
	token, ok := parseToken(w, r)
	if !ok {
		return
	}
	err := s.ledger.RevokeVote(
		r.Context(),
		id,
		token,
		r.Header.Get(AuthorityHeader),
	)
	if err != nil {
		s.writeLedgerError(w, err, "failed to revoke vote")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAcceptPolicy handles POST /api/v1/policy
func (s *Server) handleAcceptPolicy(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req AcceptPolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Voter == "" {
		writeError(w, http.StatusBadRequest, "voter must be set")
		return
	}
	if err := s.ledger.AcceptPolicy(r.Context(), req.Voter, req.Policy); err != nil {
		s.writeLedgerError(w, err, "failed to accept policy")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
