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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/blinklabs-io/elections/database"
	"github.com/blinklabs-io/elections/internal/config"
	"github.com/blinklabs-io/elections/ledger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var proposalFlags = struct {
	file      string
	authority string
	offset    int
	limit     int
	desc      bool
}{}

// proposalCommand groups the offline proposal tools. They open the
// configured database directly and must not run while the service is
// using the same storage.
func proposalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposal",
		Short: "Create and inspect proposals directly in the database",
	}
	cmd.AddCommand(proposalCreateCommand())
	cmd.AddCommand(proposalShowCommand())
	cmd.AddCommand(proposalListCommand())
	return cmd
}

func proposalCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a proposal from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadProposalSpec(proposalFlags.file)
			if err != nil {
				return err
			}
			return withLedger(cmd, func(l *ledger.Ledger, cfg *config.Config) error {
				authority := proposalFlags.authority
				if authority == "" && len(cfg.Authorities) > 0 {
					authority = cfg.Authorities[0]
				}
				id, err := l.CreateProposal(cmd.Context(), authority, spec)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]uint32{"id": id})
			})
		},
	}
	cmd.Flags().
		StringVarP(&proposalFlags.file, "file", "f", "", "path to the proposal YAML file")
	cmd.Flags().
		StringVar(&proposalFlags.authority, "authority", "", "authority account creating the proposal (defaults to the first configured authority)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func proposalShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a proposal and its tally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid proposal id: %w", err)
			}
			return withLedger(cmd, func(l *ledger.Ledger, _ *config.Config) error {
				view, err := l.Proposal(uint32(id))
				if err != nil {
					return err
				}
				status, err := l.Status(uint32(id), l.Now())
				if err != nil {
					return err
				}
				return writeJSON(
					cmd.OutOrStdout(),
					struct {
						Proposal any    `json:"proposal"`
						Status   string `json:"status"`
					}{
						Proposal: view,
						Status:   status.String(),
					},
				)
			})
		},
	}
	return cmd
}

func proposalListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, func(l *ledger.Ledger, _ *config.Config) error {
				views, total, err := l.Proposals(
					proposalFlags.offset,
					proposalFlags.limit,
					proposalFlags.desc,
				)
				if err != nil {
					return err
				}
				return writeJSON(
					cmd.OutOrStdout(),
					struct {
						Total     int64 `json:"total"`
						Proposals any   `json:"proposals"`
					}{
						Total:     total,
						Proposals: views,
					},
				)
			})
		},
	}
	cmd.Flags().IntVar(&proposalFlags.offset, "offset", 0, "number of proposals to skip")
	cmd.Flags().IntVar(&proposalFlags.limit, "limit", 100, "maximum number of proposals to show")
	cmd.Flags().BoolVar(&proposalFlags.desc, "desc", false, "list newest proposals first")
	return cmd
}

// loadProposalSpec reads a proposal definition. Unknown keys are rejected so
// that typos do not silently produce a proposal with zero values.
func loadProposalSpec(path string) (ledger.ProposalSpec, error) {
	var spec ledger.ProposalSpec
	f, err := os.Open(path)
	if err != nil {
		return spec, fmt.Errorf("error reading proposal file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return spec, errors.New("proposal file is empty")
		}
		return spec, fmt.Errorf("error parsing proposal file: %w", err)
	}
	return spec, nil
}

func withLedger(
	cmd *cobra.Command,
	fn func(*ledger.Ledger, *config.Config) error,
) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	logger := cliLogger(cmd.ErrOrStderr())
	l, db, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error(
				"failed to close database",
				"component", programName,
				"error", err,
			)
		}
	}()
	return fn(l, cfg)
}

func openLedger(
	cfg *config.Config,
	logger *slog.Logger,
) (*ledger.Ledger, *database.Database, error) {
	if cfg.RunMode.IsDevMode() {
		return nil, nil, errors.New(
			"proposal commands need persistent storage, which dev mode disables",
		)
	}
	db, err := database.New(&database.Config{
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
		DataDir:        cfg.DatabasePath,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	l, err := ledger.New(ledger.Config{
		Database:    db,
		Logger:      logger,
		HumanIssuer: cfg.HumanIssuer,
		Authorities: cfg.Authorities,
		Policy:      cfg.Policy,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return l, db, nil
}

// cliLogger keeps log output off stdout, which carries the command result
func cliLogger(w io.Writer) *slog.Logger {
	logLevel := slog.LevelWarn
	if globalFlags.debug {
		logLevel = slog.LevelDebug
	}
	return slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}),
	).With("component", programName)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
