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
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-glue/params"
)

var networksCommand = cli.Command{
	Action:    listNetworks,
	Name:      "networks",
	Usage:     "List the configured settlement networks",
	ArgsUsage: "",
	Category:  "MISCELLANEOUS COMMANDS",
	Description: `
Prints the resolved network table: built-in networks amended by the
configuration file and filtered by the --networks flag.`,
}

func listNetworks(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	chains, err := cfg.chainConfigs()
	if err != nil {
		return err
	}
	networks, err := params.NewRegistry(chains)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Network", "Chain ID", "Token", "Identity Registry", "Reputation Registry", "RPC"})
	for _, c := range networks.All() {
		table.Append([]string{
			c.Name,
			c.ChainID.String(),
			c.Token.Hex(),
			c.IdentityRegistry.Hex(),
			c.ReputationRegistry.Hex(),
			c.RPCURL,
		})
	}
	table.Render()
	return nil
}
