package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/config"
	"github.com/clive/sprint-carryover/internal/tracker"
	"github.com/clive/sprint-carryover/internal/tui"
)

var projectConfig bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the Azure DevOps connection",
	Long: `Ask for the organization, project, team and personal access token, check
that the team's sprints can be listed, and save the settings.

Settings go to ~/.carryover/config.yaml, or .carryover/config.yaml with
--project-config. The token needs Work Items (Read & write) scope.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := tui.NewSetupModel(cfg.AzureDevOps, checkConnection)
		final, err := tea.NewProgram(m).Run()
		if err != nil {
			return fmt.Errorf("run setup: %w", err)
		}

		settings, ok := final.(tui.SetupModel).Result()
		if !ok {
			fmt.Println("Setup cancelled")
			return nil
		}

		cfg.Tracker = config.TrackerAzureDevOps
		cfg.AzureDevOps = &settings
		save := config.SaveToGlobal
		if projectConfig {
			save = config.SaveToProject
		}
		if err := save(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		logger.Info("configuration saved", zap.Bool("project", projectConfig))
		fmt.Println("Configuration saved. Run `carryover` to start.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&projectConfig, "project-config", false, "Save to .carryover/config.yaml in the current directory")
}

// checkConnection lists the team's sprints with the entered settings
func checkConnection(ctx context.Context, ado config.AzureDevOpsConfig) error {
	p := tracker.NewAzureDevOpsProvider(ado.OrganizationURL, ado.Project, ado.Team, ado.PAT, logger)
	if _, err := p.ListIterations(ctx); err != nil {
		return fmt.Errorf("could not list sprints: %w", err)
	}
	return nil
}
