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
)

type VoteErrorKind uint8

const (
	VoteErrorWrongIssuer VoteErrorKind = iota
	VoteErrorNoSBTs
	VoteErrorDuplicateCandidate
	VoteErrorDoubleVote
)

// VoteError is returned when a vote cannot be cast. Token is only set for
// VoteErrorDoubleVote.
type VoteError struct {
	Kind  VoteErrorKind
	Token TokenId
}

func (e *VoteError) Error() string {
	switch e.Kind {
	case VoteErrorWrongIssuer:
		return "expected human SBTs proof from the human issuer only"
	case VoteErrorNoSBTs:
		return "voter is not a verified human"
	case VoteErrorDuplicateCandidate:
		return "double vote for the same candidate"
	case VoteErrorDoubleVote:
		return fmt.Sprintf("user already voted with sbt=%d", e.Token)
	default:
		return fmt.Sprintf("unknown vote error: %d", e.Kind)
	}
}

// Is matches any VoteError of the same kind, so a DoubleVote error for any
// token matches ErrDoubleVote
func (e *VoteError) Is(target error) bool {
	t, ok := target.(*VoteError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrWrongIssuer        = &VoteError{Kind: VoteErrorWrongIssuer}
	ErrNoSBTs             = &VoteError{Kind: VoteErrorNoSBTs}
	ErrDuplicateCandidate = &VoteError{Kind: VoteErrorDuplicateCandidate}
	ErrDoubleVote         = &VoteError{Kind: VoteErrorDoubleVote}
)

func NewDoubleVoteError(token TokenId) *VoteError {
	return &VoteError{Kind: VoteErrorDoubleVote, Token: token}
}

// RevokeVoteError is returned when a vote cannot be revoked
type RevokeVoteError uint8

const (
	ErrNotActive RevokeVoteError = iota + 1
	ErrNotVoted
)

func (e RevokeVoteError) Error() string {
	switch e {
	case ErrNotActive:
		return "proposal is not active or in cooldown"
	case ErrNotVoted:
		return "token did not vote on this proposal"
	default:
		return fmt.Sprintf("unknown revoke vote error: %d", uint8(e))
	}
}

// ErrRejected matches every RejectedError
var ErrRejected = errors.New("rejected input")

// RejectedError is a fatal precondition violation: a malformed ballot, a bad
// hash string, a vote outside the voting window or an invalid proposal
// definition. The caller must abort its whole transaction.
type RejectedError struct {
	Reason string
	Err    error
}

func newRejectedError(reason string) *RejectedError {
	return &RejectedError{Reason: reason}
}

func (e *RejectedError) Error() string {
	return e.Reason
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
