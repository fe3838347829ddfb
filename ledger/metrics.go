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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	proposals      prometheus.Gauge
	votesCast      prometheus.Counter
	votesRevoked   prometheus.Counter
	voteRejections *prometheus.CounterVec
	voters         *prometheus.GaugeVec
}

func (m *ledgerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "elections_proposals",
		Help: "number of proposals",
	})
	m.votesCast = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "elections_votes_cast_total",
		Help: "total number of accepted votes",
	})
	m.votesRevoked = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "elections_votes_revoked_total",
		Help: "total number of revoked votes",
	})
	m.voteRejections = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elections_vote_rejections_total",
			Help: "total number of rejected votes by reason",
		},
		[]string{"reason"},
	)
	m.voters = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "elections_proposal_voters",
			Help: "number of tokens with an active vote per proposal",
		},
		[]string{"proposal"},
	)
}
