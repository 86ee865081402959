// Copyright 2025 The go-glue Authors
// This file is part of go-glue.
//
// go-glue is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-glue is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-glue. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"math/big"
	"os"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/params"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// networkConfig is the TOML shape of one network entry. Omitted fields fall
// back to the built-in values of the same network name, so overriding just
// the RPC endpoint of a known network is a two-line stanza.
type networkConfig struct {
	ChainID            int64          `toml:",omitempty"`
	RPCURL             string         `toml:",omitempty"`
	Token              common.Address `toml:",omitempty"`
	IdentityRegistry   common.Address `toml:",omitempty"`
	ReputationRegistry common.Address `toml:",omitempty"`
	TokenName          string         `toml:",omitempty"`
	TokenVersion       string         `toml:",omitempty"`
	BlockTimeSeconds   int64          `toml:",omitempty"`
	RegistrationFeeWei string         `toml:",omitempty"`
}

type discoveryConfig struct {
	Seeds           []string `toml:",omitempty"`
	IntervalSeconds int64    `toml:",omitempty"`
}

type gluefacConfig struct {
	// Addr is the HTTP listen address.
	Addr string `toml:",omitempty"`

	// Keyfile holds the facilitator's hex-encoded private key.
	Keyfile string `toml:",omitempty"`

	// Networks limits the served networks to the named subset. Empty means
	// every configured network.
	Networks []string `toml:",omitempty"`

	// ValidAfterSkewSeconds is the clock tolerance on validAfter checks.
	ValidAfterSkewSeconds int64 `toml:",omitempty"`

	// IdentityTTLSeconds is the identity resolver cache lifetime.
	IdentityTTLSeconds int64 `toml:",omitempty"`

	// Custom amends or replaces the built-in network set, keyed by name.
	Custom map[string]networkConfig `toml:",omitempty"`

	Discovery discoveryConfig `toml:",omitempty"`
}

func loadConfig(file string, cfg *gluefacConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the config file (if given) and applies flag overrides on
// top, flags winning over file values.
func makeConfig(ctx *cli.Context) (*gluefacConfig, error) {
	cfg := &gluefacConfig{Addr: defaultListenAddr}
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, cfg); err != nil {
			return nil, err
		}
	}
	if ctx.GlobalIsSet(addrFlag.Name) {
		cfg.Addr = ctx.GlobalString(addrFlag.Name)
	}
	if ctx.GlobalIsSet(keyfileFlag.Name) {
		cfg.Keyfile = ctx.GlobalString(keyfileFlag.Name)
	}
	if ctx.GlobalIsSet(networksFlag.Name) {
		cfg.Networks = splitAndTrim(ctx.GlobalString(networksFlag.Name))
	}
	if ctx.GlobalIsSet(skewFlag.Name) {
		cfg.ValidAfterSkewSeconds = int64(ctx.GlobalDuration(skewFlag.Name) / time.Second)
	}
	return cfg, nil
}

func splitAndTrim(input string) (ret []string) {
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}

// chainConfigs resolves the final network set: built-ins, amended by the
// Custom stanzas, filtered down to the Networks subset.
func (cfg *gluefacConfig) chainConfigs() ([]*params.ChainConfig, error) {
	merged := params.DefaultChainConfigs()
	for name, nc := range cfg.Custom {
		base, ok := merged[name]
		if !ok {
			base = &params.ChainConfig{Name: name}
		}
		amended, err := nc.amend(base)
		if err != nil {
			return nil, fmt.Errorf("network %s: %v", name, err)
		}
		merged[name] = amended
	}

	selected := cfg.Networks
	if len(selected) == 0 {
		for name := range merged {
			selected = append(selected, name)
		}
	}
	out := make([]*params.ChainConfig, 0, len(selected))
	for _, name := range selected {
		ccfg, ok := merged[name]
		if !ok {
			return nil, fmt.Errorf("unknown network %q", name)
		}
		out = append(out, ccfg)
	}
	return out, nil
}

// amend copies base and overlays the fields set in the TOML stanza. The
// result is a fresh ChainConfig; built-in instances are never mutated.
func (nc networkConfig) amend(base *params.ChainConfig) (*params.ChainConfig, error) {
	out := *base
	if nc.ChainID != 0 {
		out.ChainID = big.NewInt(nc.ChainID)
	}
	if nc.RPCURL != "" {
		out.RPCURL = nc.RPCURL
	}
	if nc.Token != (common.Address{}) {
		out.Token = nc.Token
	}
	if nc.IdentityRegistry != (common.Address{}) {
		out.IdentityRegistry = nc.IdentityRegistry
	}
	if nc.ReputationRegistry != (common.Address{}) {
		out.ReputationRegistry = nc.ReputationRegistry
	}
	if nc.TokenName != "" {
		out.TokenName = nc.TokenName
	}
	if nc.TokenVersion != "" {
		out.TokenVersion = nc.TokenVersion
	}
	if nc.BlockTimeSeconds != 0 {
		out.BlockTime = time.Duration(nc.BlockTimeSeconds) * time.Second
	}
	if nc.RegistrationFeeWei != "" {
		fee, ok := new(big.Int).SetString(nc.RegistrationFeeWei, 10)
		if !ok {
			return nil, fmt.Errorf("invalid RegistrationFeeWei %q", nc.RegistrationFeeWei)
		}
		out.RegistrationFee = fee
	}
	return &out, nil
}
