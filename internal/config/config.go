package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	dirName  = ".carryover"
	fileName = "config.yaml"
)

// Config represents the user's configuration
type Config struct {
	Tracker     IssueTracker       `yaml:"tracker"`
	AzureDevOps *AzureDevOpsConfig `yaml:"azure_devops,omitempty"`

	// DisableAutoLoad stops items being fetched right after the source sprint
	// is auto-selected
	DisableAutoLoad bool   `yaml:"disable_auto_load,omitempty"`
	LogFile         string `yaml:"log_file,omitempty"`
	HistoryDB       string `yaml:"history_db,omitempty"`
}

// AzureDevOpsConfig holds the organization, project and team to work in
type AzureDevOpsConfig struct {
	OrganizationURL string `yaml:"organization_url"` // e.g. "https://dev.azure.com/fabrikam"
	Project         string `yaml:"project"`
	Team            string `yaml:"team,omitempty"` // defaults to "<project> Team"
	PAT             string `yaml:"pat,omitempty"`  // personal access token; prefer AZURE_DEVOPS_EXT_PAT
}

// Environment variables that override file settings
const (
	EnvOrgURL    = "AZURE_DEVOPS_ORG_URL"
	EnvProject   = "AZURE_DEVOPS_PROJECT"
	EnvTeam      = "AZURE_DEVOPS_TEAM"
	EnvPAT       = "AZURE_DEVOPS_EXT_PAT"
	EnvLogFile   = "CARRYOVER_LOG_FILE"
	EnvHistoryDB = "CARRYOVER_HISTORY_DB"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Tracker: TrackerAzureDevOps,
	}
}

// globalConfigDir returns the global config directory path (~/.carryover)
func globalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

// globalConfigPath returns the global config file path (~/.carryover/config.yaml)
func globalConfigPath() (string, error) {
	dir, err := globalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// projectConfigPath returns the project-level config path (.carryover/config.yaml in cwd)
func projectConfigPath() string {
	return filepath.Join(dirName, fileName)
}

// Load reads the config. An explicit path wins; otherwise the project config
// is tried first, then the global one. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	if path != "" {
		return readFile(path)
	}

	if _, err := os.Stat(projectConfigPath()); err == nil {
		return readFile(projectConfigPath())
	}

	globalPath, err := globalConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := readFile(globalPath)
	if errors.Is(err, os.ErrNotExist) {
		// No config exists, return default (don't auto-create)
		return DefaultConfig(), nil
	}
	return cfg, err
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	ado := c.AzureDevOps
	if ado == nil {
		ado = &AzureDevOpsConfig{}
	}
	set(&ado.OrganizationURL, EnvOrgURL)
	set(&ado.Project, EnvProject)
	set(&ado.Team, EnvTeam)
	set(&ado.PAT, EnvPAT)
	if c.AzureDevOps != nil || *ado != (AzureDevOpsConfig{}) {
		c.AzureDevOps = ado
	}

	set(&c.LogFile, EnvLogFile)
	set(&c.HistoryDB, EnvHistoryDB)
}

// Validate checks that the config can be used to reach a tracker
func (c *Config) Validate() error {
	switch c.Tracker {
	case TrackerAzureDevOps, "":
	default:
		return fmt.Errorf("unknown tracker %q", c.Tracker)
	}
	if c.AzureDevOps == nil {
		return fmt.Errorf("azure_devops section is missing")
	}
	return c.AzureDevOps.Validate()
}

// Validate checks the Azure DevOps settings and fills in the default team
func (a *AzureDevOpsConfig) Validate() error {
	if a.OrganizationURL == "" {
		return fmt.Errorf("organization_url must not be empty (or set %s)", EnvOrgURL)
	}
	u, err := url.Parse(a.OrganizationURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("organization_url %q is not an absolute http(s) URL", a.OrganizationURL)
	}
	if a.Project == "" {
		return fmt.Errorf("project must not be empty (or set %s)", EnvProject)
	}
	if a.PAT == "" {
		return fmt.Errorf("personal access token missing - set %s", EnvPAT)
	}
	if a.Team == "" {
		a.Team = a.Project + " Team"
	}
	return nil
}

// DataPath returns a file path under the global config directory
func DataPath(name string) (string, error) {
	dir, err := globalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// SaveToProject writes the config to the project-level location (.carryover/config.yaml)
func SaveToProject(cfg *Config) error {
	if err := os.MkdirAll(dirName, 0755); err != nil {
		return err
	}
	return write(projectConfigPath(), cfg)
}

// SaveToGlobal writes the config to the global location (~/.carryover/config.yaml)
func SaveToGlobal(cfg *Config) error {
	dir, err := globalConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	return write(path, cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// May contain a token
	return os.WriteFile(path, data, 0600)
}
