package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clive/sprint-carryover/internal/config"
)

// SetupStep tracks the current step of the Azure DevOps setup flow
type SetupStep int

const (
	SetupStepOrganization SetupStep = iota
	SetupStepProject
	SetupStepTeam
	SetupStepToken
	SetupStepValidating
	SetupStepComplete
)

const inputSteps = int(SetupStepToken) + 1

// Validator checks that the settings can reach the team's sprints
type Validator func(ctx context.Context, cfg config.AzureDevOpsConfig) error

// setupValidatedMsg is sent after the connection check
type setupValidatedMsg struct {
	err error
}

// SetupModel asks for the organization, project, team and token, checks the
// connection, and hands back the settings
type SetupModel struct {
	Step  SetupStep
	Error string

	inputs    [inputSteps]textinput.Model
	validate  Validator
	spinner   spinner.Model
	keys      KeyMap
	cancelled bool

	Width, Height int
}

// NewSetupModel creates the setup flow, prefilled from existing settings
func NewSetupModel(existing *config.AzureDevOpsConfig, validate Validator) SetupModel {
	newInput := func(prompt, placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Prompt = prompt
		ti.PromptStyle = lipgloss.NewStyle().Foreground(ColorGreen)
		ti.Placeholder = placeholder
		ti.CharLimit = 200
		ti.Width = 50
		return ti
	}

	var inputs [inputSteps]textinput.Model
	inputs[SetupStepOrganization] = newInput("Organization URL: ", "https://dev.azure.com/fabrikam")
	inputs[SetupStepProject] = newInput("Project: ", "Fabrikam Fiber")
	inputs[SetupStepTeam] = newInput("Team: ", "defaults to \"<project> Team\"")
	inputs[SetupStepToken] = newInput("Personal access token: ", "work items read & write")
	inputs[SetupStepToken].EchoMode = textinput.EchoPassword

	if existing != nil {
		inputs[SetupStepOrganization].SetValue(existing.OrganizationURL)
		inputs[SetupStepProject].SetValue(existing.Project)
		inputs[SetupStepTeam].SetValue(existing.Team)
		inputs[SetupStepToken].SetValue(existing.PAT)
	}
	inputs[SetupStepOrganization].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return SetupModel{
		Step:     SetupStepOrganization,
		inputs:   inputs,
		validate: validate,
		spinner:  sp,
		keys:     DefaultKeyMap(),
	}
}

// Result returns the entered settings once the flow completed
func (s SetupModel) Result() (config.AzureDevOpsConfig, bool) {
	if s.Step != SetupStepComplete || s.cancelled {
		return config.AzureDevOpsConfig{}, false
	}
	return s.settings(), true
}

func (s SetupModel) settings() config.AzureDevOpsConfig {
	value := func(step SetupStep) string {
		return strings.TrimSpace(s.inputs[step].Value())
	}
	return config.AzureDevOpsConfig{
		OrganizationURL: value(SetupStepOrganization),
		Project:         value(SetupStepProject),
		Team:            value(SetupStepTeam),
		PAT:             value(SetupStepToken),
	}
}

// Init starts the cursor blinking
func (s SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (s SetupModel) validateCmd() tea.Cmd {
	cfg := s.settings()
	validate := s.validate
	return func() tea.Msg {
		if err := cfg.Validate(); err != nil {
			return setupValidatedMsg{err: err}
		}
		if validate == nil {
			return setupValidatedMsg{}
		}
		return setupValidatedMsg{err: validate(context.Background(), cfg)}
	}
}

// Update handles messages
func (s SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.Width = msg.Width
		s.Height = msg.Height
		return s, nil

	case spinner.TickMsg:
		if s.Step != SetupStepValidating {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case setupValidatedMsg:
		if msg.err != nil {
			s.Error = msg.err.Error()
			return s, s.focus(SetupStepToken)
		}
		s.Error = ""
		s.Step = SetupStepComplete
		return s, tea.Quit

	case tea.KeyMsg:
		return s.handleKeyMsg(msg)
	}

	if int(s.Step) < inputSteps {
		var cmd tea.Cmd
		s.inputs[s.Step], cmd = s.inputs[s.Step].Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s SetupModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, s.keys.Interrupt) {
		s.cancelled = true
		return s, tea.Quit
	}
	if int(s.Step) >= inputSteps {
		return s, nil
	}

	switch {
	case key.Matches(msg, s.keys.Escape):
		if s.Step == SetupStepOrganization {
			s.cancelled = true
			return s, tea.Quit
		}
		return s, s.focus(s.Step - 1)

	case key.Matches(msg, s.keys.Choose):
		value := strings.TrimSpace(s.inputs[s.Step].Value())
		if value == "" && s.Step != SetupStepTeam {
			s.Error = "A value is required"
			return s, nil
		}
		s.Error = ""
		if s.Step < SetupStepToken {
			return s, s.focus(s.Step + 1)
		}
		s.inputs[s.Step].Blur()
		s.Step = SetupStepValidating
		return s, tea.Batch(s.spinner.Tick, s.validateCmd())
	}

	var cmd tea.Cmd
	s.inputs[s.Step], cmd = s.inputs[s.Step].Update(msg)
	return s, cmd
}

// focus moves to an input step
func (s *SetupModel) focus(step SetupStep) tea.Cmd {
	for i := range s.inputs {
		s.inputs[i].Blur()
	}
	s.Step = step
	return s.inputs[step].Focus()
}

// View renders the current step
func (s SetupModel) View() string {
	logo := lipgloss.NewStyle().
		Foreground(ColorRed).
		Bold(true).
		Render("SPRINT CARRYOVER")

	var content strings.Builder
	content.WriteString(logo)

	switch s.Step {
	case SetupStepValidating:
		content.WriteString(SubtitleStyle.Render(" · Azure DevOps Setup"))
		content.WriteString("\n\n")
		content.WriteString(lipgloss.NewStyle().
			Foreground(ColorYellow).
			Render(s.spinner.View() + " Checking access to the team's sprints..."))

	case SetupStepComplete:
		content.WriteString(SubtitleStyle.Render(" · Azure DevOps Setup"))
		content.WriteString("\n\n")
		content.WriteString(SuccessStyle.Render("Connected. Settings saved."))

	default:
		content.WriteString(SubtitleStyle.Render(fmt.Sprintf(" · Azure DevOps Setup (Step %d/%d)", int(s.Step)+1, inputSteps)))
		content.WriteString("\n\n")

		for i := 0; i < int(s.Step); i++ {
			v := s.inputs[i].Value()
			if SetupStep(i) == SetupStepToken {
				v = strings.Repeat("•", len(v))
			}
			content.WriteString(DimStyle.Render("✓ " + s.inputs[i].Prompt + v))
			content.WriteString("\n")
		}
		if s.Step > 0 {
			content.WriteString("\n")
		}

		if s.Error != "" {
			content.WriteString(ErrorStyle.Render("Warning: " + s.Error))
			content.WriteString("\n\n")
		}

		if s.Step == SetupStepToken {
			content.WriteString(DimStyle.Render("Create a token under User settings > Personal access tokens,\nor set " + config.EnvPAT + " instead."))
			content.WriteString("\n\n")
		}

		content.WriteString(lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGreen).
			Padding(0, 1).
			Width(70).
			Render(s.inputs[s.Step].View()))
		content.WriteString("\n\n")
		content.WriteString(DimStyle.Render("Enter to continue - Esc back - Ctrl+C quit"))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(1, 2).
		Render(content.String())

	if s.Width == 0 {
		return box
	}
	return lipgloss.Place(s.Width, s.Height, lipgloss.Center, lipgloss.Center, box)
}
