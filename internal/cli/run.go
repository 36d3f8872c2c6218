package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/specforge/specforge/internal/db"
	"github.com/spf13/cobra"
)

var (
	runSpecFile  string
	runFeatures  []string
	runStateFile string
	runWorkDir   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full workflow over the spec's issues",
	Long: `Expands the given spec into issues (setup, features, testing), then
drives every issue through branch, implementation, local checks, CI,
review, and merge, respecting the dependency graph and the configured
concurrency limit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := buildWorkflow(cfg)
		if err != nil {
			return err
		}
		if runWorkDir != "" {
			engine.SetWorkDir(runWorkDir)
		}

		ctx := cmd.Context()

		if dsn := cfg.Workflow.DatabaseURL; dsn != "" {
			eventDB, err := db.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open event log: %w", err)
			}
			defer eventDB.Close()
			if err := eventDB.Migrate(ctx); err != nil {
				return err
			}
			engine.SetEventLogger(eventDB)
		}

		var specText string
		if runSpecFile != "" {
			data, err := os.ReadFile(runSpecFile)
			if err != nil {
				return fmt.Errorf("read spec file: %w", err)
			}
			specText = string(data)
		}

		if err := engine.SetupRepository(ctx); err != nil {
			return err
		}
		if _, err := engine.CreateIssuesFromSpec(ctx, specText, runFeatures, nil); err != nil {
			return err
		}

		impl := commandImplementation(cfg.Workflow.ImplementationCommand)
		summary := engine.RunParallel(ctx, impl)

		if runStateFile != "" {
			if err := engine.Store().SaveSnapshot(runStateFile); err != nil {
				cmd.PrintErrf("warning: save state snapshot: %v\n", err)
			}
		}

		cmd.Println("Run complete:")
		statuses := make([]string, 0, len(summary))
		for status := range summary {
			if status != "total_issues" {
				statuses = append(statuses, status)
			}
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			cmd.Printf("  %-18s %d\n", status, summary[status])
		}
		cmd.Printf("  %-18s %d\n", "total", summary["total_issues"])

		if summary["failed"] > 0 || summary["blocked"] > 0 {
			return fmt.Errorf("%d issue(s) did not merge", summary["failed"]+summary["blocked"])
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runSpecFile, "spec", "", "path to the specification text file")
	runCmd.Flags().StringSliceVar(&runFeatures, "feature", nil, "feature to implement (repeatable)")
	runCmd.Flags().StringVar(&runStateFile, "state-file", "", "write the final issue state snapshot to this JSON file")
	runCmd.Flags().StringVar(&runWorkDir, "workdir", "", "working directory for local checks (default: current directory)")
}
