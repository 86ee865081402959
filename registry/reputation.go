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

package registry

import (
	"context"

	"github.com/probeum/go-glue/accounts/abi"
	"github.com/probeum/go-glue/chain"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/log"
	"github.com/probeum/go-glue/params"
)

// Reputation submits and reads feedback scores through the reputation
// registry contract. The transacting account is the rater; the contract
// enforces who may rate whom, the client only maps its reverts onto the
// stable error kinds.
type Reputation struct {
	backend  Backend
	contract common.Address
	log      log.Logger
}

// NewReputation returns a reputation registry client for the given chain.
func NewReputation(cfg *params.ChainConfig, backend Backend) *Reputation {
	return &Reputation{
		backend:  backend,
		contract: cfg.ReputationRegistry,
		log:      log.New("network", cfg.Name, "registry", "reputation"),
	}
}

// Submit records a feedback score about subjectID in the given direction
// and waits for the transaction to confirm. The server-rates-client
// direction additionally needs the feedback authorization id the client
// issued through AcceptFeedback; the other directions ignore authID.
func (r *Reputation) Submit(ctx context.Context, dir types.FeedbackDirection, subjectID uint64, score uint8, authID common.Hash) (common.Hash, error) {
	if !types.ValidScore(score) {
		return common.Hash{}, types.Errorf(types.KindMalformedRequest, "score %d outside [%d, %d]", score, types.MinScore, types.MaxScore)
	}
	var (
		data []byte
		err  error
	)
	switch dir {
	case types.ClientRatesServer:
		data, err = abi.PackCall("rateServer(uint256,uint8)", subjectID, score)
	case types.ServerRatesClient:
		data, err = abi.PackCall("rateClient(uint256,uint8,bytes32)", subjectID, score, authID)
	case types.ServerRatesValidator:
		data, err = abi.PackCall("rateValidator(uint256,uint8)", subjectID, score)
	default:
		return common.Hash{}, types.Errorf(types.KindMalformedRequest, "unknown feedback direction %d", dir)
	}
	if err != nil {
		return common.Hash{}, err
	}
	txHash, err := r.backend.Transact(ctx, r.contract, nil, data)
	if err != nil {
		return common.Hash{}, r.submitError(err)
	}
	receipt, err := r.backend.WaitMined(ctx, txHash)
	if err != nil {
		return common.Hash{}, types.WrapError(types.KindSettlementUnavailable, "feedback not confirmed", err)
	}
	if !receipt.Confirmed() {
		return common.Hash{}, types.Errorf(types.KindUnauthorizedRater, "feedback reverted in tx %s", txHash)
	}
	r.log.Info("Feedback recorded", "direction", dir, "subject", subjectID, "score", score, "tx", txHash)
	return txHash, nil
}

// submitError classifies a failed feedback submission. A revert means the
// contract rejected the rater, anything else is a chain availability issue.
func (r *Reputation) submitError(err error) error {
	if reason, ok := chain.RevertReason(err); ok {
		return types.Errorf(types.KindUnauthorizedRater, "registry rejected rating: %s", reason)
	}
	if !chain.IsTransient(err) {
		return types.WrapError(types.KindUnauthorizedRater, "registry rejected rating", err)
	}
	return types.WrapError(types.KindSettlementUnavailable, "reputation registry unreachable", err)
}

// AcceptFeedback lets the transacting client pre-authorize serverID to rate
// it back, returning the transaction hash of the authorization.
func (r *Reputation) AcceptFeedback(ctx context.Context, clientID, serverID uint64) (common.Hash, error) {
	data, err := abi.PackCall("acceptFeedback(uint256,uint256)", clientID, serverID)
	if err != nil {
		return common.Hash{}, err
	}
	txHash, err := r.backend.Transact(ctx, r.contract, nil, data)
	if err != nil {
		return common.Hash{}, r.submitError(err)
	}
	receipt, err := r.backend.WaitMined(ctx, txHash)
	if err != nil {
		return common.Hash{}, types.WrapError(types.KindSettlementUnavailable, "authorization not confirmed", err)
	}
	if !receipt.Confirmed() {
		return common.Hash{}, types.Errorf(types.KindUnauthorizedRater, "authorization reverted in tx %s", txHash)
	}
	return txHash, nil
}

// FeedbackAuthID returns the authorization id the client issued for
// serverID, or the zero hash when none exists.
func (r *Reputation) FeedbackAuthID(ctx context.Context, clientID, serverID uint64) (common.Hash, error) {
	data, err := abi.PackCall("getFeedbackAuthId(uint256,uint256)", clientID, serverID)
	if err != nil {
		return common.Hash{}, err
	}
	ret, err := r.backend.CallContract(ctx, r.contract, data)
	if err != nil {
		return common.Hash{}, types.WrapError(types.KindSettlementUnavailable, "reputation registry unreachable", err)
	}
	return abi.Result(ret).Hash(0)
}

// ServerRating returns the score clientID gave serverID, if any.
func (r *Reputation) ServerRating(ctx context.Context, clientID, serverID uint64) (uint8, bool, error) {
	return r.rating(ctx, "getServerRating(uint256,uint256)", clientID, serverID)
}

// ClientRating returns the score serverID gave clientID, if any.
func (r *Reputation) ClientRating(ctx context.Context, clientID, serverID uint64) (uint8, bool, error) {
	return r.rating(ctx, "getClientRating(uint256,uint256)", clientID, serverID)
}

// ValidatorRating returns the score serverID gave validatorID, if any.
func (r *Reputation) ValidatorRating(ctx context.Context, serverID, validatorID uint64) (uint8, bool, error) {
	return r.rating(ctx, "getValidatorRating(uint256,uint256)", serverID, validatorID)
}

func (r *Reputation) rating(ctx context.Context, signature string, clientID, serverID uint64) (uint8, bool, error) {
	data, err := abi.PackCall(signature, clientID, serverID)
	if err != nil {
		return 0, false, err
	}
	ret, err := r.backend.CallContract(ctx, r.contract, data)
	if err != nil {
		return 0, false, types.WrapError(types.KindSettlementUnavailable, "reputation registry unreachable", err)
	}
	res := abi.Result(ret)
	has, err := res.Bool(0)
	if err != nil {
		return 0, false, err
	}
	if !has {
		return 0, false, nil
	}
	score, err := res.Uint8(1)
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}
