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

// Package params holds the per-network configuration of the facilitator.
//
// A ChainConfig instance is immutable after loading. The EIP-712 signing
// domain of a network is derived from its ChainConfig in exactly one place
// (typeddata.FromChainConfig) so the verification and settlement paths can
// never drift apart.
package params

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/probeum/go-glue/common"
)

// ErrUnsupportedChain is returned when a request names a network that is not
// present in the loaded configuration.
var ErrUnsupportedChain = errors.New("unsupported chain")

// ChainConfig describes one supported settlement network: its RPC endpoint,
// the EIP-3009 token contract and the agent registry contracts deployed on it.
// Instances are immutable after load and shared read-only across requests.
type ChainConfig struct {
	// Name is the network identifier used on the wire ("fuji", "base-sepolia").
	Name string `toml:"-"`

	// ChainID is the EIP-155 chain id the facilitator signs transactions for.
	ChainID *big.Int

	// RPCURL is the JSON-RPC endpoint. http(s):// and ws(s):// are accepted.
	RPCURL string

	// Token is the EIP-3009 token contract settlements are executed against.
	Token common.Address

	// IdentityRegistry and ReputationRegistry are the ERC-8004 style agent
	// registry contracts.
	IdentityRegistry   common.Address
	ReputationRegistry common.Address

	// TokenName and TokenVersion are the EIP-712 domain fields of the token
	// contract. A single wrong character here invalidates every signature, so
	// they live in configuration rather than code.
	TokenName    string
	TokenVersion string

	// BlockTime is the expected block interval, used to pace confirmation polling.
	BlockTime time.Duration

	// RegistrationFee is the fee (in native wei) charged by the identity
	// registry for new agent registrations.
	RegistrationFee *big.Int
}

// Sanitize validates the config and returns a descriptive error for fields
// that cannot work.
func (c *ChainConfig) Sanitize() error {
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		return fmt.Errorf("network %s: missing or invalid chain id", c.Name)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("network %s: missing RPC endpoint", c.Name)
	}
	if c.Token == (common.Address{}) {
		return fmt.Errorf("network %s: missing token contract", c.Name)
	}
	if c.TokenName == "" || c.TokenVersion == "" {
		return fmt.Errorf("network %s: missing EIP-712 token name or version", c.Name)
	}
	if c.BlockTime <= 0 {
		return fmt.Errorf("network %s: missing block time", c.Name)
	}
	return nil
}

// FujiChainConfig is the configuration of the primary testnet deployment on
// Avalanche Fuji.
var FujiChainConfig = &ChainConfig{
	Name:               "fuji",
	ChainID:            big.NewInt(43113),
	RPCURL:             "https://avalanche-fuji-c-chain-rpc.publicnode.com",
	Token:              common.HexToAddress("0x3D19A80b3bD5CC3a4E55D4b5B753bC36d6A44743"),
	IdentityRegistry:   common.HexToAddress("0xB0a405a7345599267CDC0dD16e8e07BAB1f9B618"),
	ReputationRegistry: common.HexToAddress("0x932d32194C7A47c0fe246C1d61caF244A4804C6a"),
	TokenName:          "Gasless Ultravioleta DAO Extended Token",
	TokenVersion:       "1",
	BlockTime:          2 * time.Second,
	RegistrationFee:    big.NewInt(5e15), // 0.005 AVAX
}

// BaseSepoliaChainConfig is the configuration of the secondary testnet
// deployment on Base Sepolia.
var BaseSepoliaChainConfig = &ChainConfig{
	Name:               "base-sepolia",
	ChainID:            big.NewInt(84532),
	RPCURL:             "https://sepolia.base.org",
	Token:              common.HexToAddress("0xfEe5CC33479E748f40F5F299Ff6494b23F88C425"),
	IdentityRegistry:   common.HexToAddress("0x8a20f665c02a33562a0462a0908a64716Ed7463d"),
	ReputationRegistry: common.HexToAddress("0x06767A3ab4680b73eb19CeF2160b7eEaD9e4D04F"),
	TokenName:          "Gasless Ultravioleta DAO Extended Token",
	TokenVersion:       "1",
	BlockTime:          2 * time.Second,
	RegistrationFee:    big.NewInt(5e15), // 0.005 ETH
}

// DefaultChainConfigs holds the built-in network set, keyed by name.
func DefaultChainConfigs() map[string]*ChainConfig {
	return map[string]*ChainConfig{
		FujiChainConfig.Name:        FujiChainConfig,
		BaseSepoliaChainConfig.Name: BaseSepoliaChainConfig,
	}
}

// Registry is an immutable lookup table of supported networks. It is built
// once at startup and shared read-only by every request.
type Registry struct {
	configs map[string]*ChainConfig
	names   []string
}

// NewRegistry builds a Registry from the given configurations. Every config
// is sanitized; duplicate names are rejected.
func NewRegistry(configs []*ChainConfig) (*Registry, error) {
	r := &Registry{configs: make(map[string]*ChainConfig)}
	for _, cfg := range configs {
		if err := cfg.Sanitize(); err != nil {
			return nil, err
		}
		if _, dup := r.configs[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate network %s", cfg.Name)
		}
		r.configs[cfg.Name] = cfg
		r.names = append(r.names, cfg.Name)
	}
	if len(r.configs) == 0 {
		return nil, errors.New("no networks configured")
	}
	return r, nil
}

// Lookup returns the configuration of the named network or ErrUnsupportedChain.
func (r *Registry) Lookup(network string) (*ChainConfig, error) {
	cfg, ok := r.configs[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, network)
	}
	return cfg, nil
}

// Names returns the supported network names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns the configurations in registration order.
func (r *Registry) All() []*ChainConfig {
	out := make([]*ChainConfig, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.configs[name])
	}
	return out
}
