// Package bootstrap loads the CRDT runtime: from an in-process provider when
// one is available, otherwise by walking an ordered list of source pairs
// until both halves of one pair resolve.
package bootstrap

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// SourcePair is one candidate location for the runtime: the repo module
// and the network adapter module
type SourcePair struct {
	Repo    string `mapstructure:"repo" json:"repo"`
	Network string `mapstructure:"network" json:"network"`
}

// DefaultSources are tried in order when no provider is present. Each
// package.json names the module and its release line; the matching build
// compiled into this binary is used.
var DefaultSources = []SourcePair{
	{"https://unpkg.com/@automerge/automerge-repo@1.2.1/package.json", "https://unpkg.com/@automerge/automerge-repo-network-websocket@1.2.1/package.json"},
	{"https://unpkg.com/@automerge/automerge-repo@1/package.json", "https://unpkg.com/@automerge/automerge-repo-network-websocket@1/package.json"},
	{"https://cdn.jsdelivr.net/npm/@automerge/automerge-repo@1.2.1/package.json", "https://cdn.jsdelivr.net/npm/@automerge/automerge-repo-network-websocket@1.2.1/package.json"},
	{"https://cdn.jsdelivr.net/npm/@automerge/automerge-repo@1/package.json", "https://cdn.jsdelivr.net/npm/@automerge/automerge-repo-network-websocket@1/package.json"},
	{"https://esm.sh/@automerge/automerge-repo@1.2.1/package.json", "https://esm.sh/@automerge/automerge-repo-network-websocket@1.2.1/package.json"},
	{"https://esm.sh/@automerge/automerge-repo@1/package.json", "https://esm.sh/@automerge/automerge-repo-network-websocket@1/package.json"},
}

// Config configures a Bootstrapper. Provider may be nil; Sources defaults
// to DefaultSources.
type Config struct {
	Provider Provider
	Loader   Loader
	Sources  []SourcePair
	Logger   *zap.SugaredLogger
}

// Bootstrapper resolves the runtime constructors once. A successful result
// is cached; a failure is not, so a later Load retries.
type Bootstrapper struct {
	provider Provider
	loader   Loader
	sources  []SourcePair
	log      *zap.SugaredLogger

	mu     sync.Mutex
	cached *crdt.Constructors
}

// New creates a Bootstrapper
func New(cfg Config) *Bootstrapper {
	sources := cfg.Sources
	if sources == nil {
		sources = DefaultSources
	}
	return &Bootstrapper{
		provider: cfg.Provider,
		loader:   cfg.Loader,
		sources:  sources,
		log:      logger.OrNop(cfg.Logger),
	}
}

// Load returns the runtime constructors. Concurrent callers share one
// resolution.
func (b *Bootstrapper) Load(ctx context.Context) (crdt.Constructors, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cached != nil {
		return *b.cached, nil
	}

	if b.provider != nil {
		if c, ok := b.provider.Constructors(); ok && c.Complete() {
			b.log.Debugw("Runtime provided in-process")
			b.cached = &c
			return c, nil
		}
	}

	if b.loader == nil {
		return crdt.Constructors{}, errors.Wrap(errors.ErrRuntimeUnavailable, "no provider and no loader")
	}

	var lastErr error
	for i, pair := range b.sources {
		if err := ctx.Err(); err != nil {
			return crdt.Constructors{}, errors.Mark(errors.Wrap(err, "runtime bootstrap"), errors.ErrRuntimeUnavailable)
		}
		c, err := b.loadPair(ctx, pair)
		if err != nil {
			lastErr = err
			b.log.Debugw("Runtime source pair failed",
				logger.FieldAttempt, i+1,
				logger.FieldSource, pair.Repo,
				logger.FieldError, err)
			continue
		}
		b.log.Infow("Runtime loaded", logger.FieldAttempt, i+1, logger.FieldSource, pair.Repo)
		b.cached = &c
		return c, nil
	}

	if lastErr == nil {
		return crdt.Constructors{}, errors.WithHint(
			errors.Wrap(errors.ErrRuntimeUnavailable, "no module sources configured"),
			"set runtime.sources in am.toml")
	}
	err := errors.Mark(errors.Wrap(lastErr, "all module sources failed"), errors.ErrRuntimeUnavailable)
	return crdt.Constructors{}, errors.WithDetailf(err, "tried %d source pairs", len(b.sources))
}

// Cached reports whether constructors have been resolved
func (b *Bootstrapper) Cached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cached != nil
}

// loadPair loads both halves concurrently; the pair fails if either does
func (b *Bootstrapper) loadPair(ctx context.Context, pair SourcePair) (crdt.Constructors, error) {
	var repoMod, netMod *Module
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := b.loader.Load(gctx, pair.Repo)
		if err != nil {
			return errors.Wrapf(err, "load %s", pair.Repo)
		}
		repoMod = m
		return nil
	})
	g.Go(func() error {
		m, err := b.loader.Load(gctx, pair.Network)
		if err != nil {
			return errors.Wrapf(err, "load %s", pair.Network)
		}
		netMod = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return crdt.Constructors{}, err
	}
	return Normalize(repoMod, netMod)
}
