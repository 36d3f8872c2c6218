package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/specforge/specforge/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	issuesSpecFile  string
	issuesFeatures  []string
	issuesStoryRole string
	issuesStoryWant string
	issuesStoryWhy  string
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Expand a specification into dependency-ordered issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := buildWorkflow(cfg)
		if err != nil {
			return err
		}

		var specText string
		if issuesSpecFile != "" {
			data, err := os.ReadFile(issuesSpecFile)
			if err != nil {
				return fmt.Errorf("read spec file: %w", err)
			}
			specText = string(data)
		}

		var story *workflow.UserStory
		if issuesStoryRole != "" {
			story = &workflow.UserStory{
				Role:    issuesStoryRole,
				Action:  issuesStoryWant,
				Outcome: issuesStoryWhy,
			}
		}

		created, err := engine.CreateIssuesFromSpec(cmd.Context(), specText, issuesFeatures, story)
		if err != nil {
			return err
		}

		cmd.Printf("Created %d issues:\n", len(created))
		for _, issue := range created {
			labels := make([]string, 0, len(issue.Labels))
			for _, l := range issue.Labels {
				labels = append(labels, l.Name)
			}
			cmd.Printf("  #%-4d %s [%s]\n", issue.Number, issue.Title, strings.Join(labels, ", "))
		}
		return nil
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesSpecFile, "spec", "", "path to the specification text file")
	issuesCmd.Flags().StringSliceVar(&issuesFeatures, "feature", nil, "feature to create an issue for (repeatable)")
	issuesCmd.Flags().StringVar(&issuesStoryRole, "story-role", "", "user story: who the work is for")
	issuesCmd.Flags().StringVar(&issuesStoryWant, "story-want", "", "user story: what they want to do")
	issuesCmd.Flags().StringVar(&issuesStoryWhy, "story-why", "", "user story: the outcome they are after")
}
