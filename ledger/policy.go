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
	"errors"

	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/blinklabs-io/elections/event"
	"github.com/blinklabs-io/elections/proposal"
)

// AcceptPolicy records that the voter accepted the policy with the given
// hex encoded hash. The hash must match the configured policy.
func (l *Ledger) AcceptPolicy(
	ctx context.Context,
	voter proposal.AccountId,
	policyHex string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	policy, err := proposal.AssertHashHexString(policyHex)
	if err != nil {
		return err
	}
	if l.policy == nil || policy != *l.policy {
		return ErrPolicyMismatch
	}
	l.Lock()
	defer l.Unlock()
	now := l.Now()
	err = l.db.Transaction(true).Do(func(txn *database.Txn) error {
		return l.db.SetPolicyAcceptance(
			&models.PolicyAcceptance{
				Account:    string(voter),
				Policy:     policy[:],
				AcceptedAt: types.Uint64(now),
			},
			txn,
		)
	})
	if err != nil {
		return err
	}
	l.config.Logger.Debug(
		"accepted policy",
		"component", "ledger",
		"voter", voter,
	)
	l.publish(
		event.PolicyAcceptedEventType,
		event.PolicyAcceptedEvent{
			Account: string(voter),
			Policy:  policy,
		},
	)
	return nil
}

// PolicyAccepted returns true if the voter accepted the configured policy.
// It is always true when no policy is configured.
func (l *Ledger) PolicyAccepted(voter proposal.AccountId) (bool, error) {
	txn := l.db.Transaction(false)
	defer txn.Release()
	err := l.checkPolicy(voter, txn)
	if errors.Is(err, ErrPolicyNotAccepted) {
		return false, nil
	}
	return err == nil, err
}
