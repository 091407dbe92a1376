package tracker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/config"
)

// NewProviderWithConfig creates a provider using the full configuration
func NewProviderWithConfig(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	switch cfg.Tracker {
	case config.TrackerAzureDevOps, "":
		return newAzureDevOpsProviderFromConfig(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown tracker type: %s", cfg.Tracker)
	}
}

// newAzureDevOpsProviderFromConfig creates an Azure DevOps provider from config
func newAzureDevOpsProviderFromConfig(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	ado := cfg.AzureDevOps
	if ado == nil {
		return nil, fmt.Errorf("Azure DevOps not configured - missing organization")
	}
	if err := ado.Validate(); err != nil {
		return nil, fmt.Errorf("Azure DevOps not configured: %w", err)
	}
	return NewAzureDevOpsProvider(ado.OrganizationURL, ado.Project, ado.Team, ado.PAT, logger), nil
}
