package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/config"
	"github.com/clive/sprint-carryover/internal/logging"
	"github.com/clive/sprint-carryover/internal/tui"
)

var (
	// Global flags
	configPath string
	orgURL     string
	project    string
	team       string
	verbose    bool
	jsonOutput bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "carryover",
	Short: "Move unfinished work items from one sprint to the next",
	Long: `carryover moves open work items (anything not Closed, Done or Removed) from
one Azure DevOps sprint to another.

Run without arguments to start the interactive interface. The sprint whose
start date is closest to today is preselected as the destination and the
sprint before it as the source.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		logger, err = logging.New(logging.Options{Path: cfg.LogFile, Verbose: verbose})
		if err != nil {
			return err
		}
		logger.Debug("command started", zap.String("command", cmd.CommandPath()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .carryover/config.yaml, then ~/.carryover/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&orgURL, "org", "", "Organization URL, e.g. https://dev.azure.com/fabrikam (or set "+config.EnvOrgURL+")")
	rootCmd.PersistentFlags().StringVar(&project, "project", "", "Project name (or set "+config.EnvProject+")")
	rootCmd.PersistentFlags().StringVar(&team, "team", "", "Team name (default: \"<project> Team\")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of tables")

	rootCmd.AddCommand(sprintsCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the connection flags on top
func loadConfig() (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if orgURL == "" && project == "" && team == "" {
		return c, nil
	}

	if c.AzureDevOps == nil {
		c.AzureDevOps = &config.AzureDevOpsConfig{}
	}
	if orgURL != "" {
		c.AzureDevOps.OrganizationURL = orgURL
	}
	if project != "" {
		c.AzureDevOps.Project = project
	}
	if team != "" {
		c.AzureDevOps.Team = team
	}
	return c, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runInteractive() error {
	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ado := cfg.AzureDevOps
	m := tui.NewRootModel(a.newSession(), a.runner, tui.WithTitle(ado.Project+" / "+ado.Team))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}
