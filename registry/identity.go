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
	"fmt"
	"math/big"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/probeum/go-glue/accounts/abi"
	"github.com/probeum/go-glue/chain"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/log"
	"github.com/probeum/go-glue/params"
)

const (
	// identityCacheSize bounds the resolver cache. Marketplace populations
	// are small, the bound only guards against unbounded junk lookups.
	identityCacheSize = 4096

	// DefaultIdentityTTL is how long a resolved identity is served from
	// cache. Registrations can change, so the cache only smooths bursts
	// of lookups for the same agent, it never pins an entry.
	DefaultIdentityTTL = 10 * time.Second
)

// Identity resolves agents through the identity registry contract and
// registers new ones. Lookups are cached with a TTL; negative results are
// never cached so a fresh registration is visible immediately after its
// transaction confirms.
type Identity struct {
	backend  Backend
	contract common.Address
	fee      *big.Int
	cache    *lru.Cache
	ttl      time.Duration
	log      log.Logger
}

type cachedIdentity struct {
	agent   *types.AgentIdentity
	expires time.Time
}

// NewIdentity returns an identity registry client for the given chain.
// A ttl of zero selects DefaultIdentityTTL.
func NewIdentity(cfg *params.ChainConfig, backend Backend, ttl time.Duration) *Identity {
	if ttl <= 0 {
		ttl = DefaultIdentityTTL
	}
	cache, _ := lru.New(identityCacheSize)
	return &Identity{
		backend:  backend,
		contract: cfg.IdentityRegistry,
		fee:      cfg.RegistrationFee,
		cache:    cache,
		ttl:      ttl,
		log:      log.New("network", cfg.Name, "registry", "identity"),
	}
}

// call packs, executes and checks a read-only registry call.
func (id *Identity) call(ctx context.Context, signature string, args ...interface{}) (abi.Result, error) {
	data, err := abi.PackCall(signature, args...)
	if err != nil {
		return nil, err
	}
	ret, err := id.backend.CallContract(ctx, id.contract, data)
	if err != nil {
		return nil, err
	}
	return abi.Result(ret), nil
}

// decodeAgent decodes the AgentInfo tuple the resolver methods return.
func decodeAgent(ret abi.Result) (*types.AgentIdentity, error) {
	tuple, err := ret.Tuple(0)
	if err != nil {
		return nil, err
	}
	agentID, err := tuple.Uint64(0)
	if err != nil {
		return nil, err
	}
	domain, err := tuple.String(1)
	if err != nil {
		return nil, err
	}
	addr, err := tuple.Address(2)
	if err != nil {
		return nil, err
	}
	return &types.AgentIdentity{ID: agentID, Domain: domain, Address: addr}, nil
}

// lookup runs the cached resolution of key through fetch.
func (id *Identity) lookup(key string, fetch func() (*types.AgentIdentity, error)) (*types.AgentIdentity, error) {
	if v, ok := id.cache.Get(key); ok {
		entry := v.(cachedIdentity)
		if time.Now().Before(entry.expires) {
			return entry.agent, nil
		}
		id.cache.Remove(key)
	}
	agent, err := fetch()
	if err != nil {
		return nil, err
	}
	id.cache.Add(key, cachedIdentity{agent: agent, expires: time.Now().Add(id.ttl)})
	return agent, nil
}

// notFound maps a failed resolver call to the stable AgentNotFound error
// when the contract reverted, keeping chain-level failures distinct.
func notFound(err error, what string) error {
	if reason, ok := chain.RevertReason(err); ok {
		return types.Errorf(types.KindAgentNotFound, "agent %s not registered: %s", what, reason)
	}
	if !chain.IsTransient(err) {
		return types.WrapError(types.KindAgentNotFound, fmt.Sprintf("agent %s not registered", what), err)
	}
	return types.WrapError(types.KindSettlementUnavailable, "identity registry unreachable", err)
}

// ResolveByID returns the identity registered under agentID.
func (id *Identity) ResolveByID(ctx context.Context, agentID uint64) (*types.AgentIdentity, error) {
	return id.lookup(fmt.Sprintf("id/%d", agentID), func() (*types.AgentIdentity, error) {
		exists, err := id.Exists(ctx, agentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, types.Errorf(types.KindAgentNotFound, "agent %d not registered", agentID)
		}
		ret, err := id.call(ctx, "getAgent(uint256)", agentID)
		if err != nil {
			return nil, notFound(err, fmt.Sprintf("%d", agentID))
		}
		return decodeAgent(ret)
	})
}

// ResolveByAddress returns the identity registered for the given account.
func (id *Identity) ResolveByAddress(ctx context.Context, addr common.Address) (*types.AgentIdentity, error) {
	return id.lookup("addr/"+addr.Hex(), func() (*types.AgentIdentity, error) {
		ret, err := id.call(ctx, "resolveByAddress(address)", addr)
		if err != nil {
			return nil, notFound(err, addr.Hex())
		}
		return decodeAgent(ret)
	})
}

// ResolveByDomain returns the identity registered for the given domain.
func (id *Identity) ResolveByDomain(ctx context.Context, domain string) (*types.AgentIdentity, error) {
	return id.lookup("domain/"+domain, func() (*types.AgentIdentity, error) {
		ret, err := id.call(ctx, "resolveByDomain(string)", domain)
		if err != nil {
			return nil, notFound(err, domain)
		}
		return decodeAgent(ret)
	})
}

// Exists reports whether agentID is registered, bypassing the cache.
func (id *Identity) Exists(ctx context.Context, agentID uint64) (bool, error) {
	ret, err := id.call(ctx, "agentExists(uint256)", agentID)
	if err != nil {
		return false, types.WrapError(types.KindSettlementUnavailable, "identity registry unreachable", err)
	}
	return ret.Bool(0)
}

// Count returns the number of registered agents.
func (id *Identity) Count(ctx context.Context) (uint64, error) {
	ret, err := id.call(ctx, "getAgentCount()")
	if err != nil {
		return 0, types.WrapError(types.KindSettlementUnavailable, "identity registry unreachable", err)
	}
	return ret.Uint64(0)
}

// Register submits a newAgent transaction for (domain, sender) carrying the
// registration fee and waits for it to confirm, returning the assigned
// identity. Already-registered accounts resolve to their existing identity
// instead of paying the fee twice.
func (id *Identity) Register(ctx context.Context, domain string) (*types.AgentIdentity, error) {
	sender := id.backend.Sender()
	if agent, err := id.ResolveByAddress(ctx, sender); err == nil {
		id.log.Debug("Account already registered", "agent", agent.ID, "domain", agent.Domain)
		return agent, nil
	} else if !types.IsKind(err, types.KindAgentNotFound) {
		return nil, err
	}

	data, err := abi.PackCall("newAgent(string,address)", domain, sender)
	if err != nil {
		return nil, err
	}
	txHash, err := id.backend.Transact(ctx, id.contract, id.fee, data)
	if err != nil {
		return nil, types.WrapError(types.KindSettlementUnavailable, "registration failed", err)
	}
	receipt, err := id.backend.WaitMined(ctx, txHash)
	if err != nil {
		return nil, types.WrapError(types.KindSettlementUnavailable, "registration not confirmed", err)
	}
	if !receipt.Confirmed() {
		return nil, types.Errorf(types.KindSettlementFailed, "registration reverted in tx %s", txHash)
	}
	id.log.Info("Registered agent", "domain", domain, "tx", txHash)
	return id.ResolveByAddress(ctx, sender)
}
