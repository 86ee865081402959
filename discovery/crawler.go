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

// Package discovery aggregates the agent cards that marketplace agents
// publish under /.well-known/agent-card.json. The crawler fetches and
// caches the raw descriptors; their content belongs to the publishing
// agent and is not validated beyond JSON well-formedness.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/probeum/go-glue/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// WellKnownPath is where agents publish their descriptor.
const WellKnownPath = "/.well-known/agent-card.json"

const (
	defaultConcurrency = 8
	defaultRate        = rate.Limit(4)
	defaultInterval    = 5 * time.Minute
	defaultTimeout     = 10 * time.Second
	maxCardSize        = 1 << 20 // 1 MiB
)

// Card is one fetched agent descriptor. Raw carries the descriptor exactly
// as published.
type Card struct {
	Endpoint  string          `json:"endpoint"`
	Raw       json.RawMessage `json:"card"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Config tunes the crawler. The zero value selects the defaults above;
// Seeds lists agent base URLs or full descriptor URLs.
type Config struct {
	Seeds       []string
	Concurrency int
	Rate        rate.Limit
	Interval    time.Duration
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Rate <= 0 {
		c.Rate = defaultRate
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Crawler periodically fetches the configured agent cards and serves the
// last good snapshot. A card that fails to refresh stays cached until it
// succeeds again, so a flapping agent does not disappear from discovery.
type Crawler struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     log.Logger

	mu    sync.RWMutex
	cards map[string]Card
}

// New returns a crawler for the seeds in cfg. Run starts the refresh loop.
func New(cfg Config) *Crawler {
	cfg = cfg.withDefaults()
	return &Crawler{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(cfg.Rate, 1),
		log:     log.New("module", "discovery"),
		cards:   make(map[string]Card),
	}
}

// Run crawls immediately and then on every interval tick until ctx is
// cancelled. It only returns the ctx error, individual fetch failures are
// logged and retried on the next round.
func (c *Crawler) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		c.crawl(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// crawl fetches all seed descriptors with bounded fan-out.
func (c *Crawler) crawl(ctx context.Context) {
	seen := mapset.NewSet()
	sem := make(chan struct{}, c.cfg.Concurrency)
	var g errgroup.Group
	for _, seed := range c.cfg.Seeds {
		endpoint := normalizeEndpoint(seed)
		if !seen.Add(endpoint) {
			continue
		}
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := c.limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := c.fetch(ctx, endpoint); err != nil {
				c.log.Debug("Agent card fetch failed", "endpoint", endpoint, "err", err)
			}
			return nil
		})
	}
	g.Wait()
	c.log.Debug("Discovery round complete", "agents", len(c.Agents()))
}

// normalizeEndpoint appends the well-known path to bare base URLs.
func normalizeEndpoint(seed string) string {
	seed = strings.TrimRight(seed, "/")
	if strings.HasSuffix(seed, ".json") {
		return seed
	}
	return seed + WellKnownPath
}

func (c *Crawler) fetch(ctx context.Context, endpoint string) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}
	body, err := ioutil.ReadAll(http.MaxBytesReader(nil, resp.Body, maxCardSize))
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return fmt.Errorf("descriptor is not valid JSON")
	}
	c.mu.Lock()
	c.cards[endpoint] = Card{Endpoint: endpoint, Raw: body, FetchedAt: time.Now()}
	c.mu.Unlock()
	return nil
}

// Agents returns the current snapshot, ordered by endpoint.
func (c *Crawler) Agents() []Card {
	c.mu.RLock()
	out := make([]Card, 0, len(c.cards))
	for _, card := range c.cards {
		out = append(out, card)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}
