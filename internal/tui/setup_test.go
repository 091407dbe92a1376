package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clive/sprint-carryover/internal/config"
)

func typeText(m SetupModel, text string) SetupModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(SetupModel)
}

func sendKey(m SetupModel, k tea.KeyMsg) (SetupModel, tea.Cmd) {
	next, cmd := m.Update(k)
	return next.(SetupModel), cmd
}

// runValidation executes the batched validation command and feeds the result back
func runValidation(t *testing.T, m SetupModel, cmd tea.Cmd) (SetupModel, tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok, "expected spinner and validation commands")
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(setupValidatedMsg); ok {
			next, follow := m.Update(msg)
			return next.(SetupModel), follow
		}
	}
	t.Fatal("no validation result")
	return m, nil
}

func TestSetupHappyPath(t *testing.T) {
	var checked config.AzureDevOpsConfig
	m := NewSetupModel(nil, func(ctx context.Context, cfg config.AzureDevOpsConfig) error {
		checked = cfg
		return nil
	})

	m = typeText(m, "https://dev.azure.com/fabrikam")
	m, _ = sendKey(m, keyEnter)
	m = typeText(m, "Fiber")
	m, _ = sendKey(m, keyEnter)
	assert.Equal(t, SetupStepTeam, m.Step)
	m, _ = sendKey(m, keyEnter) // team may be blank
	m = typeText(m, "secret")
	assert.NotContains(t, m.View(), "secret", "token is masked")

	m, cmd := sendKey(m, keyEnter)
	assert.Equal(t, SetupStepValidating, m.Step)
	m, cmd = runValidation(t, m, cmd)

	assert.Equal(t, SetupStepComplete, m.Step)
	assert.Equal(t, "Fiber Team", checked.Team)
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)

	got, ok := m.Result()
	require.True(t, ok)
	assert.Equal(t, config.AzureDevOpsConfig{
		OrganizationURL: "https://dev.azure.com/fabrikam",
		Project:         "Fiber",
		PAT:             "secret",
	}, got)
}

func TestSetupRequiresValues(t *testing.T) {
	m := NewSetupModel(nil, nil)

	m, _ = sendKey(m, keyEnter)
	assert.Equal(t, SetupStepOrganization, m.Step)
	assert.Equal(t, "A value is required", m.Error)
	assert.Contains(t, m.View(), "A value is required")
}

func TestSetupValidationFailureReturnsToToken(t *testing.T) {
	m := NewSetupModel(&config.AzureDevOpsConfig{
		OrganizationURL: "https://dev.azure.com/fabrikam",
		Project:         "Fiber",
		Team:            "Blue",
		PAT:             "expired",
	}, func(ctx context.Context, cfg config.AzureDevOpsConfig) error {
		return errors.New("HTTP 401: Unauthorized")
	})

	for i := 0; i < 3; i++ {
		m, _ = sendKey(m, keyEnter)
	}
	m, cmd := sendKey(m, keyEnter)
	m, _ = runValidation(t, m, cmd)

	assert.Equal(t, SetupStepToken, m.Step)
	assert.True(t, strings.Contains(m.View(), "HTTP 401"))
	_, ok := m.Result()
	assert.False(t, ok)
}

func TestSetupRejectsBadURLBeforeCalling(t *testing.T) {
	called := false
	m := NewSetupModel(&config.AzureDevOpsConfig{
		OrganizationURL: "fabrikam",
		Project:         "Fiber",
		PAT:             "pat",
	}, func(ctx context.Context, cfg config.AzureDevOpsConfig) error {
		called = true
		return nil
	})

	for i := 0; i < 3; i++ {
		m, _ = sendKey(m, keyEnter)
	}
	m, cmd := sendKey(m, keyEnter)
	m, _ = runValidation(t, m, cmd)

	assert.False(t, called)
	assert.Contains(t, m.Error, "not an absolute")
}

func TestSetupEscape(t *testing.T) {
	m := NewSetupModel(nil, nil)
	m = typeText(m, "https://dev.azure.com/x")
	m, _ = sendKey(m, keyEnter)

	m, _ = sendKey(m, keyEsc)
	assert.Equal(t, SetupStepOrganization, m.Step)

	m, cmd := sendKey(m, keyEsc)
	require.NotNil(t, cmd)
	_, ok := m.Result()
	assert.False(t, ok)
}
