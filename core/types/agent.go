// Copyright 2025 The go-glue Authors
// This file is part of the go-glue library.
//
// The go-glue library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-glue library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-glue library. If not, see <http://www.gnu.org/licenses/>.

package types

import (
	"fmt"

	"github.com/probeum/go-glue/common"
)

// AgentIdentity is an entry of the on-chain identity registry. The registry
// contract enforces one id per address and one id per domain; this process
// only ever reads identities, it never mutates them.
type AgentIdentity struct {
	ID      uint64         `json:"agentId"`
	Domain  string         `json:"agentDomain"`
	Address common.Address `json:"agentAddress"`
}

// FeedbackDirection tags which of the three reputation relations a record
// belongs to. The relations are logically independent: a client rating a
// server says nothing about the reverse direction.
type FeedbackDirection uint8

const (
	// ClientRatesServer is feedback from a paying client about a serving agent.
	ClientRatesServer FeedbackDirection = iota
	// ServerRatesClient is feedback from a serving agent about a client, gated
	// on-chain by a feedback authorization the client issued.
	ServerRatesClient
	// ServerRatesValidator is feedback from a serving agent about a validator.
	ServerRatesValidator
)

// String implements fmt.Stringer using the wire names of the directions.
func (d FeedbackDirection) String() string {
	switch d {
	case ClientRatesServer:
		return "client-server"
	case ServerRatesClient:
		return "server-client"
	case ServerRatesValidator:
		return "server-validator"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// ParseFeedbackDirection parses the wire name of a feedback direction.
func ParseFeedbackDirection(s string) (FeedbackDirection, error) {
	switch s {
	case "client-server", "":
		return ClientRatesServer, nil
	case "server-client":
		return ServerRatesClient, nil
	case "server-validator":
		return ServerRatesValidator, nil
	default:
		return 0, fmt.Errorf("unknown feedback direction %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d FeedbackDirection) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *FeedbackDirection) UnmarshalText(input []byte) error {
	dir, err := ParseFeedbackDirection(string(input))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

// Reputation score bounds enforced by the registry contract.
const (
	MinScore = 1
	MaxScore = 100
)

// ReputationRecord is one feedback score between two registered agents. A
// (rater, subject) pair has at most one active record per direction; a new
// submission supersedes the previous one.
type ReputationRecord struct {
	Subject   uint64            `json:"subjectId"`
	Rater     uint64            `json:"raterId"`
	Direction FeedbackDirection `json:"direction"`
	Score     uint8             `json:"score"`
	Timestamp uint64            `json:"timestamp,omitempty"`
}

// ValidScore reports whether s lies within the registry's score bounds.
func ValidScore(s uint8) bool {
	return s >= MinScore && s <= MaxScore
}
