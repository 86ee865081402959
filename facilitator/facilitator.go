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

// Package facilitator implements stateless payment verification and
// settlement over signed transfer authorizations. The facilitator holds no
// payment state of its own; the token ledger is the single source of truth
// for whether an authorization has been consumed.
package facilitator

import (
	"context"
	"errors"
	"time"

	"github.com/probeum/go-glue/chain"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/typeddata"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/log"
	"github.com/probeum/go-glue/params"
)

// Config tunes verification and settlement behavior. The zero value selects
// the defaults below.
type Config struct {
	// ValidAfterSkew is the clock tolerance applied to validAfter checks.
	// Payer and facilitator clocks drift; an authorization becoming valid
	// within the skew is accepted. validBefore is always checked exactly,
	// expiry must never be extended.
	ValidAfterSkew time.Duration

	// MaxAttempts bounds transfer submissions per settlement. Only
	// transient RPC failures are retried.
	MaxAttempts int

	// RetryBase and RetryMax bound the exponential backoff between
	// submission attempts.
	RetryBase time.Duration
	RetryMax  time.Duration
}

const (
	defaultValidAfterSkew = 60 * time.Second
	defaultMaxAttempts    = 3
	defaultRetryBase      = 500 * time.Millisecond
	defaultRetryMax       = 8 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ValidAfterSkew <= 0 {
		c.ValidAfterSkew = defaultValidAfterSkew
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	if c.RetryMax <= 0 {
		c.RetryMax = defaultRetryMax
	}
	return c
}

// Network bundles everything the facilitator needs for one chain. The
// EIP-712 domain is derived from the chain config here and nowhere else, so
// verification and settlement can never disagree about it.
type Network struct {
	Config  *params.ChainConfig
	Backend chain.Backend
	Domain  typeddata.Domain
}

// Facilitator verifies payment authorizations and settles them on chain.
// It is safe for concurrent use; every request carries its own context and
// no request mutates shared state.
type Facilitator struct {
	cfg      Config
	networks map[string]*Network
	now      func() time.Time
	log      log.Logger
}

// New returns a facilitator with no networks attached.
func New(cfg Config) *Facilitator {
	return &Facilitator{
		cfg:      cfg.withDefaults(),
		networks: make(map[string]*Network),
		now:      time.Now,
		log:      log.New("module", "facilitator"),
	}
}

// AddNetwork attaches a settlement network. Not safe to call once requests
// are being served; networks are wired at startup.
func (f *Facilitator) AddNetwork(cfg *params.ChainConfig, backend chain.Backend) {
	f.networks[cfg.Name] = &Network{
		Config:  cfg,
		Backend: backend,
		Domain:  typeddata.FromChainConfig(cfg),
	}
}

// Network returns the named network, or an UnsupportedChain error. The
// lookup happens before any RPC so unknown chains fail without touching a
// node.
func (f *Facilitator) Network(name string) (*Network, error) {
	n, ok := f.networks[name]
	if !ok {
		return nil, types.Errorf(types.KindUnsupportedChain, "network %q is not configured", name)
	}
	return n, nil
}

// Networks returns the attached chain configs, for the supported-networks
// listing.
func (f *Facilitator) Networks() []*params.ChainConfig {
	out := make([]*params.ChainConfig, 0, len(f.networks))
	for _, n := range f.networks {
		out = append(out, n.Config)
	}
	return out
}

// Verify checks that the authorization is settleable on the named network
// right now and returns the recovered payer. The nonce and balance checks
// read current chain state and are advisory: only the settlement
// transaction itself decides, and a passing Verify is no reservation.
//
// claimed is the EIP-712 domain the payer believes it signed under; when
// non-nil it is compared against the network's domain so a wallet pointed
// at the wrong chain gets a DomainMismatch instead of an opaque signature
// failure. The digest itself is always computed from the network's domain.
func (f *Facilitator) Verify(ctx context.Context, network string, auth *types.PaymentAuthorization, claimed *typeddata.Domain) (common.Address, error) {
	n, err := f.Network(network)
	if err != nil {
		return common.Address{}, err
	}
	if claimed != nil && !claimed.Equal(n.Domain) {
		return common.Address{}, types.Errorf(types.KindDomainMismatch,
			"authorization is bound to chain %v, settlement requested on %v", claimed.ChainID, n.Domain.ChainID)
	}
	if err := auth.SanityCheck(); err != nil {
		if errors.Is(err, types.ErrMalformedSignature) {
			return common.Address{}, types.WrapError(types.KindMalformedSignature, "rejecting authorization", err)
		}
		return common.Address{}, types.WrapError(types.KindMalformedRequest, "rejecting authorization", err)
	}

	digest := typeddata.AuthorizationDigest(n.Domain, auth)
	signer, err := auth.RecoverSigner(digest)
	if err != nil {
		return common.Address{}, types.WrapError(types.KindInvalidSignature, "signature recovery failed", err)
	}
	if signer != auth.From {
		return common.Address{}, types.Errorf(types.KindInvalidSignature,
			"signature by %s, authorization names %s as payer", signer, auth.From)
	}

	now := uint64(f.now().Unix())
	if skew := uint64(f.cfg.ValidAfterSkew / time.Second); now+skew < auth.ValidAfter {
		return common.Address{}, types.Errorf(types.KindNotYetValid,
			"authorization valid from %d, now %d", auth.ValidAfter, now)
	}
	// The token contract enforces block.timestamp < validBefore, so the
	// boundary second must already be rejected here or settlement would
	// revert on chain after a passing verification.
	if now >= auth.ValidBefore {
		return common.Address{}, types.Errorf(types.KindExpiredAuthorization,
			"authorization expired at %d, now %d", auth.ValidBefore, now)
	}

	used, err := n.Backend.AuthorizationState(ctx, auth.From, auth.Nonce)
	if err != nil {
		return common.Address{}, types.WrapError(types.KindSettlementUnavailable, "nonce state unavailable", err)
	}
	if used {
		return common.Address{}, types.Errorf(types.KindNonceAlreadyUsed, "nonce %s already consumed", auth.Nonce)
	}

	balance, err := n.Backend.TokenBalance(ctx, auth.From)
	if err != nil {
		return common.Address{}, types.WrapError(types.KindSettlementUnavailable, "balance unavailable", err)
	}
	if balance.Lt(auth.Value) {
		return common.Address{}, types.Errorf(types.KindInsufficientFunds,
			"payer holds %s, authorization needs %s", balance, auth.Value)
	}
	return signer, nil
}

// Settle verifies the authorization and executes the transfer on chain,
// blocking until the transaction confirms or fails. Transient RPC failures
// are retried with bounded exponential backoff; before every retry the
// nonce state is re-read so a transfer that actually landed, or a rival
// settlement that won, is reported instead of resubmitted.
func (f *Facilitator) Settle(ctx context.Context, network string, auth *types.PaymentAuthorization, claimed *typeddata.Domain) (*types.SettlementReceipt, error) {
	payer, err := f.Verify(ctx, network, auth, claimed)
	if err != nil {
		return nil, err
	}
	n := f.networks[network]
	lg := f.log.New("network", network, "payer", payer, "nonce", auth.Nonce)
	lg.Debug("Authorization verified", "value", auth.Value, "payee", auth.To)

	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := f.backoff(ctx, attempt); err != nil {
				return nil, types.WrapError(types.KindSettlementUnavailable, "settlement aborted", err)
			}
			// The previous attempt may have reached the chain even though
			// the RPC call failed. If the nonce is now consumed the
			// transfer happened, or a concurrent settlement won the race.
			used, err := n.Backend.AuthorizationState(ctx, auth.From, auth.Nonce)
			if err == nil && used {
				lg.Warn("Nonce consumed between attempts")
				return nil, types.Errorf(types.KindNonceAlreadyUsed, "nonce %s consumed during settlement", auth.Nonce)
			}
		}

		txHash, err := n.Backend.SubmitTransfer(ctx, auth)
		if err != nil {
			if reason, ok := chain.RevertReason(err); ok {
				lg.Warn("Transfer reverted at submission", "reason", reason)
				return nil, types.Errorf(types.KindSettlementFailed, "transfer rejected: %s", reason)
			}
			if !chain.IsTransient(err) {
				lg.Error("Transfer submission rejected", "err", err)
				return nil, types.WrapError(types.KindSettlementFailed, "transfer submission rejected", err)
			}
			lg.Warn("Transfer submission failed, will retry", "attempt", attempt+1, "err", err)
			lastErr = err
			continue
		}
		lg.Info("Transfer submitted", "tx", txHash, "attempt", attempt+1)

		receipt, err := n.Backend.WaitMined(ctx, txHash)
		if err != nil {
			if !chain.IsTransient(err) {
				return nil, types.WrapError(types.KindSettlementUnavailable, "confirmation wait failed", err)
			}
			// The transaction may have been dropped from the pool or lost
			// in a reorg. The next attempt re-checks the nonce first, so a
			// transfer that did land is reported instead of resubmitted.
			lg.Warn("Confirmation wait failed, will resubmit", "tx", txHash, "attempt", attempt+1, "err", err)
			lastErr = err
			continue
		}
		receipt.Payer = payer
		receipt.Nonce = auth.Nonce
		receipt.Network = network
		if !receipt.Confirmed() {
			lg.Warn("Transfer reverted on chain", "tx", txHash, "block", receipt.BlockNumber)
			return receipt, types.Errorf(types.KindSettlementFailed, "transfer reverted in tx %s", txHash)
		}
		lg.Info("Transfer confirmed", "tx", txHash, "block", receipt.BlockNumber, "gas", receipt.GasUsed)
		return receipt, nil
	}
	return nil, types.WrapError(types.KindSettlementUnavailable, "settlement attempts exhausted", lastErr)
}

// backoff sleeps for the exponential delay of the given attempt, honoring
// ctx cancellation.
func (f *Facilitator) backoff(ctx context.Context, attempt int) error {
	delay := f.cfg.RetryBase << uint(attempt-1)
	if delay > f.cfg.RetryMax {
		delay = f.cfg.RetryMax
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
