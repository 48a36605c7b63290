package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/projconf/pkg/host"
	"github.com/openfroyo/projconf/pkg/orchestrator"
	"github.com/openfroyo/projconf/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit   int
		project string
		failed  bool
	)

	cmd := &cobra.Command{
		Use:   "history [pass-id]",
		Short: "Show recorded configuration passes",
		Long: `List the passes recorded in the --history database, newest first, or show
one pass with its executed steps and added task edges.`,
		Example: `  # Record a pass, then list the history
  projconf configure --history ~/.projconf/history.db
  projconf history --history ~/.projconf/history.db

  # Show one pass
  projconf history --history ~/.projconf/history.db 3f2a...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if historyPath == "" {
				return fmt.Errorf("--history is required")
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			if len(args) == 1 {
				pass, err := store.GetPass(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(w, pass)
				}
				fmt.Fprintf(w, "Pass:     %s\n", pass.ID)
				fmt.Fprintf(w, "Project:  %s (%s)\n", pass.Project, pass.Dir)
				fmt.Fprintf(w, "Started:  %s\n", pass.StartedAt.Format(time.RFC3339))
				fmt.Fprintf(w, "Status:   %s\n", passStatus(pass))
				fmt.Fprintf(w, "Branch:   %s (release: %t, development: %t)\n", pass.Branch, pass.Release, pass.Development)
				fmt.Fprintf(w, "Steps:    %s\n", strings.Join(pass.Steps, ", "))
				for _, e := range pass.Edges {
					fmt.Fprintf(w, "Edge:     %s -> %s\n", e.Task, e.DependsOn)
				}
				return nil
			}

			opts := stores.ListOptions{Project: project, Limit: limit}
			if failed {
				opts.Status = stores.PassStatusFailed
			}
			passes, err := store.ListPasses(ctx, opts)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(w, passes)
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PASS\tPROJECT\tBRANCH\tSTATUS\tSTARTED\tDURATION")
			for _, p := range passes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Project, p.Branch, passStatus(p), p.StartedAt.Format(time.RFC3339), p.Duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of passes to list (0 for all)")
	cmd.Flags().StringVar(&project, "project", "", "only list passes of this project")
	cmd.Flags().BoolVar(&failed, "failed", false, "only list failed passes")

	return cmd
}

func passStatus(p *stores.PassRecord) string {
	if p.ErrorCode != nil {
		return fmt.Sprintf("%s (%s)", p.Status, *p.ErrorCode)
	}
	return string(p.Status)
}

func openHistory(ctx context.Context) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: historyPath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return store, nil
}

// recordHistory stores the outcome of a pass and prunes old passes of the
// project down to --history-keep.
func recordHistory(ctx context.Context, started time.Time, report *orchestrator.Report, passErr error) error {
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	record := passRecord(started, report, passErr)

	if last, err := store.LastPass(ctx, record.Project); err == nil {
		if last.Branch != record.Branch && record.Branch != "" {
			log.Info().
				Str("previous", last.Branch).
				Str("current", record.Branch).
				Msg("Branch changed since last recorded pass")
		}
	} else if !errors.Is(err, stores.ErrPassNotFound) {
		return err
	}

	if err := store.RecordPass(ctx, record); err != nil {
		return err
	}
	if historyKeep > 0 {
		if _, err := store.Prune(ctx, record.Project, historyKeep); err != nil {
			return err
		}
	}
	return nil
}

func passRecord(started time.Time, report *orchestrator.Report, passErr error) *stores.PassRecord {
	if report == nil {
		dir, err := filepath.Abs(projectDir)
		if err != nil {
			dir = projectDir
		}
		message := passErr.Error()
		record := &stores.PassRecord{
			ID:          uuid.New().String(),
			Project:     filepath.Base(dir),
			Dir:         dir,
			HostVersion: hostVersion,
			Status:      stores.PassStatusFailed,
			Error:       &message,
			StartedAt:   started,
			Duration:    time.Since(started),
		}
		if code := host.CodeOf(passErr); code != "" {
			record.ErrorCode = &code
		}
		return record
	}

	record := &stores.PassRecord{
		ID:          report.PassID,
		Project:     report.Project,
		Dir:         report.Dir,
		HostVersion: report.HostVersion,
		Branch:      report.Branch.Branch,
		Release:     report.Branch.Release,
		Development: report.Branch.Development,
		Status:      stores.PassStatusSucceeded,
		StartedAt:   started,
		Duration:    report.Duration,
		Steps:       report.Steps,
	}
	for _, e := range report.Edges {
		record.Edges = append(record.Edges, stores.Edge{Task: e.Task, DependsOn: e.DependsOn})
	}
	if data, err := json.Marshal(report); err == nil {
		record.Report = string(data)
	}
	return record
}
