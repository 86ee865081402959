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

// gluefac is the payment facilitator and agent registry gateway daemon.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/go-glue/chain"
	"github.com/probeum/go-glue/crypto"
	"github.com/probeum/go-glue/discovery"
	"github.com/probeum/go-glue/facilitator"
	"github.com/probeum/go-glue/log"
	"github.com/probeum/go-glue/params"
	"github.com/probeum/go-glue/registry"
)

const (
	clientIdentifier  = "gluefac"
	defaultListenAddr = ":8402"
	dialTimeout       = 15 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var (
	// gitCommit and gitDate are set by the build script.
	gitCommit = ""
	gitDate   = ""

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	addrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "HTTP listen address",
		Value: defaultListenAddr,
	}
	keyfileFlag = cli.StringFlag{
		Name:  "keyfile",
		Usage: "File containing the facilitator's hex-encoded private key",
	}
	networksFlag = cli.StringFlag{
		Name:  "networks",
		Usage: "Comma-separated subset of networks to serve (default: all configured)",
	}
	skewFlag = cli.DurationFlag{
		Name:  "validafter-skew",
		Usage: "Clock-skew tolerance applied to the validAfter check",
		Value: 60 * time.Second,
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
)

var app = cli.NewApp()

func init() {
	app.Name = clientIdentifier
	app.Usage = "gasless payment facilitator and agent registry gateway"
	app.Version = params.VersionWithCommit(gitCommit, gitDate)
	app.Flags = []cli.Flag{
		configFileFlag,
		addrFlag,
		keyfileFlag,
		networksFlag,
		skewFlag,
		verbosityFlag,
	}
	app.Commands = []cli.Command{
		networksCommand,
	}
	app.Action = gluefac
	app.Before = func(ctx *cli.Context) error {
		return setupLogging(ctx.GlobalInt(verbosityFlag.Name))
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(verbosity int) error {
	output := io.Writer(os.Stderr)
	usecolor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.StreamHandler(output, log.TerminalFormat(usecolor))
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(verbosity), handler))
	return nil
}

// gluefac is the default action: wire every configured network and serve
// the HTTP API until interrupted.
func gluefac(ctx *cli.Context) error {
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
	if cfg.Keyfile == "" {
		return fmt.Errorf("no keyfile configured, the facilitator needs a funded key to relay transfers")
	}
	key, err := crypto.LoadECDSA(cfg.Keyfile)
	if err != nil {
		return fmt.Errorf("loading key: %v", err)
	}

	fac := facilitator.New(facilitator.Config{
		ValidAfterSkew: time.Duration(cfg.ValidAfterSkewSeconds) * time.Second,
	})
	registries := make(map[string]facilitator.Registries)
	clients := make([]*chain.Client, 0, len(networks.All()))

	dialCtx, cancelDial := context.WithTimeout(context.Background(), dialTimeout)
	defer cancelDial()
	for _, ccfg := range networks.All() {
		client, err := chain.DialClient(dialCtx, ccfg)
		if err != nil {
			return err
		}
		clients = append(clients, client)
		wallet := chain.NewWallet(client, key)
		fac.AddNetwork(ccfg, chain.NewBackend(client, key))
		registries[ccfg.Name] = facilitator.Registries{
			Identity:   registry.NewIdentity(ccfg, wallet, time.Duration(cfg.IdentityTTLSeconds)*time.Second),
			Reputation: registry.NewReputation(ccfg, wallet),
		}
		log.Info("Network attached", "network", ccfg.Name, "chainid", ccfg.ChainID, "token", ccfg.Token)
	}
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	var crawler *discovery.Crawler
	if len(cfg.Discovery.Seeds) > 0 {
		crawler = discovery.New(discovery.Config{
			Seeds:    cfg.Discovery.Seeds,
			Interval: time.Duration(cfg.Discovery.IntervalSeconds) * time.Second,
			Rate:     rate.Limit(4),
		})
	}

	server := facilitator.NewServer(fac, registries, crawler)
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: server.Handler()}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("HTTP server started", "addr", cfg.Addr, "networks", sortedNames(networks))
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if crawler != nil {
		g.Go(func() error {
			if err := crawler.Run(gctx); err != context.Canceled {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		select {
		case sig := <-sigc:
			log.Info("Shutting down", "signal", sig)
		case <-gctx.Done():
		}
		cancelRoot()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutCtx)
	})
	return g.Wait()
}

func sortedNames(networks *params.Registry) []string {
	names := networks.Names()
	sort.Strings(names)
	return names
}
