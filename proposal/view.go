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
	"encoding/json"
	"fmt"
)

// CandidateResult pairs a candidate with its vote count. It is encoded in
// JSON as a two element array: ["candidate", count]
type CandidateResult struct {
	Candidate AccountId
	Votes     uint64
}

func (c CandidateResult) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Candidate, c.Votes})
}

func (c *CandidateResult) UnmarshalJSON(data []byte) error {
	var tmp []json.RawMessage
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	if len(tmp) != 2 {
		return fmt.Errorf(
			"candidate result: expected 2 elements, got %d",
			len(tmp),
		)
	}
	if err := json.Unmarshal(tmp[0], &c.Candidate); err != nil {
		return err
	}
	return json.Unmarshal(tmp[1], &c.Votes)
}

// View is the read-only projection of a proposal returned to clients
type View struct {
	Id        uint32            `json:"id"`
	Type      ProposalType      `json:"typ"`
	RefLink   string            `json:"ref_link"`
	Start     uint64            `json:"start"`
	End       uint64            `json:"end"`
	Cooldown  uint64            `json:"cooldown"`
	Quorum    uint32            `json:"quorum"`
	VotersNum uint32            `json:"voters_num"`
	Seats     uint16            `json:"seats"`
	Result    []CandidateResult `json:"result"`
}

func (p *Proposal) ToView(id uint32) View {
	result := make([]CandidateResult, 0, len(p.Candidates))
	for i, candidate := range p.Candidates {
		result = append(
			result,
			CandidateResult{
				Candidate: candidate,
				Votes:     p.result[i],
			},
		)
	}
	return View{
		Id:        id,
		Type:      p.Type,
		RefLink:   p.RefLink,
		Start:     p.Start,
		End:       p.End,
		Cooldown:  p.Cooldown,
		Quorum:    p.Quorum,
		VotersNum: p.votersNum,
		Seats:     p.Seats,
		Result:    result,
	}
}
