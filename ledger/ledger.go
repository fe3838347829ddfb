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

// Package ledger runs election requests against the database: it checks the
// caller, applies the change to the proposal inside a storage transaction
// and publishes the outcome on the event bus.
package ledger

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/event"
	"github.com/blinklabs-io/elections/proposal"
	"github.com/prometheus/client_golang/prometheus"
)

// Clock provides the current time. Tests replace it to move through the
// voting window of a proposal.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type Config struct {
	Database     *database.Database
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Clock        Clock
	// HumanIssuer is the only account accepted as issuer of voter proofs
	HumanIssuer string
	// Authorities may create proposals and revoke votes
	Authorities []string
	// Policy is the hex encoded hash of the policy voters must accept before
	// voting. Empty disables the check.
	Policy string
}

type Ledger struct {
	sync.Mutex // serializes writes
	config     Config
	db         *database.Database
	policy     *[32]byte
	metrics    ledgerMetrics
}

func New(cfg Config) (*Ledger, error) {
	if cfg.Database == nil {
		return nil, errors.New("ledger: database must be set")
	}
	if cfg.HumanIssuer == "" {
		return nil, errors.New("ledger: human issuer must be set")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	l := &Ledger{
		config: cfg,
		db:     cfg.Database,
	}
	if cfg.Policy != "" {
		policy, err := proposal.AssertHashHexString(cfg.Policy)
		if err != nil {
			return nil, err
		}
		l.policy = &policy
	}
	// Init metrics
	l.metrics.init(cfg.PromRegistry)
	count, err := l.db.CountProposals(nil)
	if err != nil {
		return nil, err
	}
	l.metrics.proposals.Set(float64(count))
	return l, nil
}

// Now returns the current time in milliseconds, as used for the voting
// windows of proposals
func (l *Ledger) Now() uint64 {
	return uint64(l.config.Clock.Now().UnixMilli()) //nolint:gosec
}

// IsAuthority returns true if the account may create proposals and revoke
// votes
func (l *Ledger) IsAuthority(account string) bool {
	return account != "" && slices.Contains(l.config.Authorities, account)
}

func (l *Ledger) publish(eventType event.EventType, data any) {
	if l.config.EventBus == nil {
		return
	}
	l.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}

func (l *Ledger) setVoters(proposalId uint32, votersNum uint32) {
	l.metrics.voters.WithLabelValues(
		strconv.FormatUint(uint64(proposalId), 10),
	).Set(float64(votersNum))
}
