package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clive/sprint-carryover/internal/carryover"
)

// Pane identifies the focused area
type Pane int

const (
	PaneSource Pane = iota
	PaneDestination
	PaneItems
)

const paneCount = 3

// Messages
type eventMsg struct {
	event carryover.Event
}

// runUpdate is one message from the carry-over goroutine. Exactly one of the
// fields is set.
type runUpdate struct {
	result   *carryover.ItemResult
	finished *carryover.CarryOverFinished
}

type runBatchMsg struct {
	updates []runUpdate
}

// pollingStoppedMsg is sent when the run channel closed
type pollingStoppedMsg struct{}

// Model is the root Bubble Tea model
type Model struct {
	// Terminal dimensions
	width  int
	height int
	ready  bool

	title string

	ctx    context.Context
	cancel context.CancelFunc

	session *carryover.Session
	runner  *carryover.Runner

	// Cursor state per pane
	focus        Pane
	sourceCursor int
	destCursor   int
	itemCursor   int
	itemOffset   int

	// Carry-over progress
	runChan chan runUpdate

	logPanel LogPanel
	showHelp bool
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
}

// Option configures the model
type Option func(*Model)

// WithTitle sets the header subtitle, typically the project and team
func WithTitle(title string) Option {
	return func(m *Model) {
		m.title = title
	}
}

// NewRootModel creates a new root model over a session
func NewRootModel(session *carryover.Session, runner *carryover.Runner, opts ...Option) Model {
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorYellow)

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		session:  session,
		runner:   runner,
		focus:    PaneSource,
		logPanel: NewLogPanel(),
		spinner:  sp,
		help:     help.New(),
		keys:     DefaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the session by loading the sprints
func (m Model) Init() tea.Cmd {
	return m.perform(m.session.Load())
}

// perform turns session effects into commands. Loads run as plain commands;
// a carry-over runs in its own goroutine and streams progress.
func (m *Model) perform(effects []carryover.Effect) tea.Cmd {
	if len(effects) == 0 {
		return nil
	}
	cmds := []tea.Cmd{m.spinner.Tick}
	for _, eff := range effects {
		if run, ok := eff.(carryover.RunCarryOver); ok {
			cmds = append(cmds, m.startRun(run))
			continue
		}
		cmds = append(cmds, m.performCmd(eff))
	}
	return tea.Batch(cmds...)
}

func (m Model) performCmd(eff carryover.Effect) tea.Cmd {
	ctx, runner := m.ctx, m.runner
	return func() tea.Msg {
		return eventMsg{event: runner.Perform(ctx, eff, nil)}
	}
}

// startRun patches the items in a goroutine. The session is only touched from
// Update, so results travel over runChan.
func (m *Model) startRun(run carryover.RunCarryOver) tea.Cmd {
	ch := make(chan runUpdate, 100)
	m.runChan = ch

	ctx, runner := m.ctx, m.runner
	go func() {
		defer close(ch)
		ev := runner.Perform(ctx, run, func(res carryover.ItemResult) {
			ch <- runUpdate{result: &res}
		})
		finished := ev.(carryover.CarryOverFinished)
		ch <- runUpdate{finished: &finished}
	}()

	return m.pollRun()
}

// waitForRun blocks until an update is available and then drains everything
// immediately available. A closed channel yields pollingStoppedMsg.
func waitForRun(ch <-chan runUpdate) tea.Cmd {
	return func() tea.Msg {
		if ch == nil {
			return nil
		}

		u, ok := <-ch
		if !ok {
			return pollingStoppedMsg{}
		}
		updates := []runUpdate{u}

		for {
			select {
			case u, ok := <-ch:
				if !ok {
					return runBatchMsg{updates: updates}
				}
				updates = append(updates, u)
			default:
				return runBatchMsg{updates: updates}
			}
		}
	}
}

func (m *Model) pollRun() tea.Cmd {
	return waitForRun(m.runChan)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width

	case spinner.TickMsg:
		// The spinner only animates while something is in flight
		if m.session.Loading() || m.session.Running() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case eventMsg:
		_, reloaded := msg.event.(carryover.IterationsLoaded)
		cmds = append(cmds, m.perform(m.session.Apply(msg.event)))
		if reloaded {
			m.syncSprintCursors()
		}

	case runBatchMsg:
		for _, u := range msg.updates {
			switch {
			case u.result != nil:
				m.session.Apply(carryover.ItemPatched{Result: *u.result})
			case u.finished != nil:
				cmds = append(cmds, m.perform(m.session.Apply(*u.finished)))
			}
		}
		if m.runChan != nil {
			cmds = append(cmds, m.pollRun())
		}

	case pollingStoppedMsg:
		m.runChan = nil

	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, cmd
		}
		cmds = append(cmds, cmd)
	}

	m.clampItemCursor()
	m.layoutLog()
	m.logPanel.Sync(m.session.Log())

	return m, tea.Batch(cmds...)
}

// handleKey processes a key press. quit is true when the program should exit.
func (m *Model) handleKey(msg tea.KeyMsg) (cmd tea.Cmd, quit bool) {
	if key.Matches(msg, m.keys.Interrupt, m.keys.Quit) {
		m.cancel()
		return tea.Quit, true
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Escape) {
			m.showHelp = false
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Log):
		m.logPanel.Toggle()

	case key.Matches(msg, m.keys.NextPane):
		m.focus = (m.focus + 1) % paneCount

	case key.Matches(msg, m.keys.PrevPane):
		m.focus = (m.focus + paneCount - 1) % paneCount

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.PageUp):
		if m.logPanel.Expanded() && m.focus != PaneItems {
			m.logPanel.ScrollUp(m.logPanel.Height())
		} else {
			m.moveCursor(-m.itemRows())
		}

	case key.Matches(msg, m.keys.PageDown):
		if m.logPanel.Expanded() && m.focus != PaneItems {
			m.logPanel.ScrollDown(m.logPanel.Height())
		} else {
			m.moveCursor(m.itemRows())
		}

	case key.Matches(msg, m.keys.Home):
		m.moveCursor(-1 << 30)

	case key.Matches(msg, m.keys.End):
		m.moveCursor(1 << 30)
	}

	// Everything below edits the session and is locked while a run is active
	if m.session.Running() {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Choose):
		return m.choose(), false

	case key.Matches(msg, m.keys.Toggle):
		if m.focus == PaneItems {
			m.toggleCurrent()
		}

	case key.Matches(msg, m.keys.SelectAll):
		m.session.SelectAll()

	case key.Matches(msg, m.keys.SelectNone):
		m.session.SelectNone()

	case key.Matches(msg, m.keys.CarryOver):
		effects, err := m.session.StartCarryOver()
		if err != nil {
			return nil, false
		}
		return m.perform(effects), false

	case key.Matches(msg, m.keys.Reload):
		return m.perform(m.session.Load()), false
	}
	return nil, false
}

// choose applies the sprint under the cursor of the focused picker
func (m *Model) choose() tea.Cmd {
	iterations := m.session.Iterations()
	switch m.focus {
	case PaneSource:
		if m.sourceCursor < len(iterations) {
			return m.perform(m.session.SelectSource(iterations[m.sourceCursor].ID))
		}
	case PaneDestination:
		if m.destCursor < len(iterations) {
			return m.perform(m.session.SelectDestination(iterations[m.destCursor].ID))
		}
	case PaneItems:
		m.toggleCurrent()
	}
	return nil
}

func (m *Model) toggleCurrent() {
	items := m.session.Items()
	if m.itemCursor >= len(items) {
		return
	}
	id := items[m.itemCursor].ID
	_ = m.session.Toggle(id, !m.session.Selection().Included(id))
}

func (m *Model) moveCursor(delta int) {
	clamp := func(v, n int) int {
		if v >= n {
			v = n - 1
		}
		if v < 0 {
			v = 0
		}
		return v
	}

	switch m.focus {
	case PaneSource:
		m.sourceCursor = clamp(m.sourceCursor+delta, len(m.session.Iterations()))
	case PaneDestination:
		m.destCursor = clamp(m.destCursor+delta, len(m.session.Iterations()))
	case PaneItems:
		m.itemCursor = clamp(m.itemCursor+delta, len(m.session.Items()))
	}
}

// syncSprintCursors puts the picker cursors on the chosen sprints
func (m *Model) syncSprintCursors() {
	m.sourceCursor, m.destCursor = 0, 0
	for i, it := range m.session.Iterations() {
		if it.ID == m.session.SourceID() {
			m.sourceCursor = i
		}
		if it.ID == m.session.DestinationID() {
			m.destCursor = i
		}
	}
}

func (m *Model) clampItemCursor() {
	n := len(m.session.Items())
	if m.itemCursor >= n {
		m.itemCursor = n - 1
	}
	if m.itemCursor < 0 {
		m.itemCursor = 0
	}

	rows := m.itemRows()
	if m.itemCursor < m.itemOffset {
		m.itemOffset = m.itemCursor
	}
	if m.itemCursor >= m.itemOffset+rows {
		m.itemOffset = m.itemCursor - rows + 1
	}
	if m.itemOffset < 0 {
		m.itemOffset = 0
	}
}

// Layout

const (
	sprintPaneWidth = 44
	headerHeight    = 2
	footerHeight    = 3 // action line and status bar
	expandedLogRows = 8
)

func (m *Model) layoutLog() {
	m.logPanel.SetSize(m.width-6, expandedLogRows)
}

func (m Model) bodyHeight() int {
	h := m.height - headerHeight - footerHeight - m.logPanel.Height()
	if h < 8 {
		h = 8
	}
	return h
}

// itemRows is the number of item rows that fit in the items pane
func (m Model) itemRows() int {
	rows := m.bodyHeight() - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

// View renders the model
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.helpView()
	}
	return m.mainView()
}

func (m Model) mainView() string {
	bodyHeight := m.bodyHeight()
	pickerHeight := bodyHeight/2 - 2
	if pickerHeight < 1 {
		pickerHeight = 1
	}

	pickers := lipgloss.JoinVertical(lipgloss.Left,
		m.renderPicker(PaneSource, "FROM SPRINT", m.session.SourceID(), m.sourceCursor, sprintPaneWidth, pickerHeight),
		m.renderPicker(PaneDestination, "TO SPRINT", m.session.DestinationID(), m.destCursor, sprintPaneWidth, bodyHeight-pickerHeight-4),
	)
	itemsWidth := m.width - sprintPaneWidth - 4
	items := m.renderItems(itemsWidth, bodyHeight-2)
	body := lipgloss.JoinHorizontal(lipgloss.Top, pickers, items)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderAction(),
		m.logPanel.Render(m.width, m.session.Log()),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("SPRINT CARRYOVER")
	subtitle := ""
	if m.title != "" {
		subtitle = SubtitleStyle.Render(" · " + m.title)
	}
	return title + subtitle + "\n"
}

func (m Model) paneStyle(p Pane) lipgloss.Style {
	if m.focus == p {
		return PaneFocusedStyle
	}
	return PaneStyle
}

func (m Model) renderPicker(p Pane, title, chosenID string, cursor, width, height int) string {
	var b strings.Builder
	b.WriteString(PaneTitleStyle.Render(title))
	b.WriteString("\n")

	iterations := m.session.Iterations()
	if len(iterations) == 0 {
		if m.session.Loading() {
			b.WriteString(m.spinner.View() + " Loading sprints...")
		} else {
			b.WriteString(DimStyle.Render("No sprints"))
		}
	}

	// Keep the cursor visible
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	for i := start; i < len(iterations) && i < start+height; i++ {
		it := iterations[i]
		marker := "  "
		if it.ID == chosenID {
			marker = "● "
		}
		line := truncate(marker+it.Label(), width-4)
		switch {
		case i == cursor && m.focus == p:
			line = RowCursorStyle.Render(line)
		case it.ID == chosenID:
			line = RowChosenStyle.Render(line)
		default:
			line = RowStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	return m.paneStyle(p).
		Width(width).
		Height(height + 1).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderItems(width, height int) string {
	items := m.session.Items()
	sel := m.session.Selection()

	var b strings.Builder
	b.WriteString(PaneTitleStyle.Render(fmt.Sprintf("WORK ITEMS (%d selected)", sel.Count())))
	b.WriteString("\n")

	switch {
	case len(items) == 0 && m.session.Loading():
		b.WriteString(m.spinner.View() + " Loading work items...")
	case len(items) == 0:
		b.WriteString(DimStyle.Render("No open work items"))
	}

	rows := m.itemRows()
	for i := m.itemOffset; i < len(items) && i < m.itemOffset+rows; i++ {
		it := items[i]
		box := "[ ]"
		if sel.Included(it.ID) {
			box = "[x]"
		}
		state := "(" + it.State + ")"
		text := truncate(fmt.Sprintf("%s #%d %s: %s", box, it.ID, it.WorkItemType, it.Title), width-len(state)-6)

		var line string
		switch {
		case i == m.itemCursor && m.focus == PaneItems:
			line = RowCursorStyle.Render(text + " " + state)
		case !sel.Included(it.ID):
			line = ItemExcludedStyle.Render(text + " " + state)
		default:
			line = RowStyle.Render(text) + " " + ItemStateStyle.Render(state)
		}
		b.WriteString(line + "\n")
	}

	return m.paneStyle(PaneItems).
		Width(width).
		Height(height).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderAction() string {
	label := fmt.Sprintf("Carry over %d items", m.session.Selection().Count())
	if m.session.Running() {
		return " " + ActionDisabledStyle.Render(m.spinner.View()+" Transferring...")
	}
	if m.session.CanCarryOver() {
		return " " + ActionEnabledStyle.Render(label) + DimStyle.Render("  press c")
	}
	return " " + ActionDisabledStyle.Render(label)
}

func (m Model) renderStatusBar() string {
	var status string
	switch {
	case m.session.Running():
		status = StatusRunningStyle.Render("● Running")
	case m.session.Loading():
		status = StatusLoadingStyle.Render(m.spinner.View() + "Loading")
	default:
		status = StatusIdleStyle.Render("○ Ready")
	}

	return StatusBarStyle.Render(status + DimStyle.Render(" │ ") + m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) helpView() string {
	title := HelpTitleStyle.Render("Keyboard Shortcuts")
	content := title + "\n\n" + m.help.FullHelpView(m.keys.FullHelp()) +
		"\n\n" + DimStyle.Render("Press ? or Esc to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		HelpStyle.Render(content),
	)
}

// Helper functions
func truncate(s string, max int) string {
	if max < 1 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) > max-1 {
		r = r[:max-1]
	}
	return string(r) + "…"
}
