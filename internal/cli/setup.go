package cli

import (
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Ensure the repository has the standard label set",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := buildWorkflow(cfg)
		if err != nil {
			return err
		}

		if err := engine.SetupRepository(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("Repository labels are in place.")
		return nil
	},
}
