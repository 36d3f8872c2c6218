package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "specforge",
	Short: "Spec-driven workflow automation for hosted repositories",
	Long: `specforge turns a specification into issues with a dependency graph and
drives each one through branch, implementation, local checks, CI, review,
and merge with bounded retries at every gate.

The implementation work itself is delegated to a configurable command;
specforge owns the orchestration around it.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(runCmd)
}
