// Copyright 2024 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package elections

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/elections/api"
	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/event"
	"github.com/blinklabs-io/elections/ledger"
)

const defaultShutdownTimeout = 30 * time.Second

type Node struct {
	config        Config
	eventBus      *event.EventBus
	db            *database.Database
	ledger        *ledger.Ledger
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	mu            sync.Mutex
	ready         chan struct{}
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	n := &Node{
		config: cfg,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run starts the node components and blocks until the context is done or
// Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.start(ctx); err != nil {
		return err
	}
	close(n.ready)
	n.config.logger.Info(
		"node started",
		"component", "node",
	)
	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

func (n *Node) start(ctx context.Context) (err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	select {
	case <-n.done:
		return errors.New("node has been stopped")
	default:
	}
	defer func() {
		if err != nil {
			n.abortStart()
		}
	}()
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dataDir := n.config.dataDir
	if n.config.isDevMode() && dataDir != "" {
		n.config.logger.Warn(
			"dev mode enabled, ignoring database path and storing data in memory",
			"component", "node",
			"path", dataDir,
		)
		dataDir = ""
	}
	db, err := database.New(&database.Config{
		PromRegistry:   n.config.promRegistry,
		Logger:         n.config.logger,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		DataDir:        dataDir,
	})
	if db != nil {
		n.db = db
	}
	if err != nil {
		var tsErr database.CommitTimestampError
		if errors.As(err, &tsErr) {
			n.config.logger.Error(
				"blob and metadata stores are out of sync",
				"component", "node",
				"metadata_timestamp", tsErr.MetadataTimestamp,
				"blob_timestamp", tsErr.BlobTimestamp,
				"blob_ahead", tsErr.BlobAhead(),
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Create event bus
	n.eventBus = event.NewEventBus(n.config.promRegistry, n.config.logger)
	// Load ledger
	l, err := ledger.New(
		ledger.Config{
			Database:     n.db,
			EventBus:     n.eventBus,
			Logger:       n.config.logger,
			PromRegistry: n.config.promRegistry,
			HumanIssuer:  n.config.humanIssuer,
			Authorities:  n.config.authorities,
			Policy:       n.config.policy,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	n.ledger = l
	// Start API listener
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.Config{
				ListenAddress: n.config.apiListenAddress,
			},
			n.ledger,
			n.config.logger,
		)
		if err := n.api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}
	return nil
}

// abortStart releases what a failed start already opened. The caller holds
// n.mu.
func (n *Node) abortStart() {
	n.ledger = nil
	n.api = nil
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.config.logger.Error(
				"failed to close database",
				"component", "node",
				"error", err,
			)
		}
		n.db = nil
	}
	if n.eventBus != nil {
		n.eventBus.Stop()
		n.eventBus = nil
	}
}

// Ready returns a channel that is closed once all components have started
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// Ledger returns the ledger of a running node
func (n *Node) Ledger() *ledger.Ledger {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger
}

// EventBus returns the event bus of a running node
func (n *Node) EventBus() *event.EventBus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.eventBus
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	shutdownTimeout := defaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work", "component", "node")
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state
	n.config.logger.Debug("shutdown phase 2: flushing state", "component", "node")
	if n.db != nil {
		// Writes are serialized by the ledger, so holding its lock means no
		// transaction is in flight when the stores are closed
		if n.ledger != nil {
			n.ledger.Lock()
			defer n.ledger.Unlock()
		}
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources", "component", "node")
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
