// Package tui provides the Bubble Tea form interface.
package tui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/bfhl/internal/form"
	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/payload"
	"github.com/verte-zerg/bfhl/internal/transport"
)

// Poster sends an encoded request.
type Poster interface {
	Post(ctx context.Context, req payload.Request) (transport.Result, error)
	URL() string
}

// Recorder stores finished submissions.
type Recorder interface {
	InsertSubmission(ctx context.Context, sub model.Submission) (int64, error)
}

type focusArea int

const (
	focusInput focusArea = iota
	focusFile
	focusSubmit
	focusSelector
)

const (
	editorHeight  = 6
	maxFormWidth  = 96
	minFormWidth  = 20
	inputHeadroom = 4
)

type submitDoneMsg struct {
	pending   form.Pending
	result    transport.Result
	err       error
	startedAt time.Time
	endedAt   time.Time
}

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	lineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	activeItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	buttonStyle     = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	activeButtonStyle = buttonStyle.
				BorderForeground(lipgloss.Color("#C89A3A")).
				Bold(true)
	busyButtonStyle = buttonStyle.
			Foreground(lipgloss.Color("#8C8C8C"))
	editorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	activeEditorStyle = editorStyle.
				BorderForeground(lipgloss.Color("#C89A3A"))
)

// Model implements the Bubble Tea form UI.
type Model struct {
	state    form.State
	client   Poster
	recorder Recorder

	editor    textarea.Model
	fileInput textinput.Model
	spinner   spinner.Model

	focus          focusArea
	selectorCursor int

	width  int
	height int

	lastStatus   int
	lastDuration time.Duration
	notice       string
}

// NewModel constructs a form model. recorder may be nil.
func NewModel(state form.State, client Poster, recorder Recorder) *Model {
	editor := textarea.New()
	editor.Placeholder = `Enter JSON here (e.g., {"data": ["A","C","z"]})`
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetHeight(editorHeight)
	editor.SetValue(state.Input)
	editor.Focus()

	fileInput := textinput.New()
	fileInput.Prompt = "File: "
	fileInput.Placeholder = "path to attach, enter to load, empty to clear"

	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(activeItemStyle),
	)

	m := &Model{
		state:     state,
		client:    client,
		recorder:  recorder,
		editor:    editor,
		fileInput: fileInput,
		spinner:   spin,
	}
	m.resize(maxFormWidth)
	return m
}

// State returns the current form state.
func (m *Model) State() form.State {
	return m.state
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize(m.formWidth())
		return m, nil
	case submitDoneMsg:
		m.handleDone(msg)
		return m, nil
	case spinner.TickMsg:
		if !m.state.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m.forward(msg)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyCtrlS:
		return m, m.submit()
	case tea.KeyCtrlY:
		m.copyLines()
		return m, nil
	case tea.KeyTab:
		return m, m.moveFocus(1)
	case tea.KeyShiftTab:
		return m, m.moveFocus(-1)
	}

	switch m.focus {
	case focusInput:
		return m.forward(msg)
	case focusFile:
		if msg.Type == tea.KeyEnter {
			m.applyFile()
			return m, nil
		}
		return m.forward(msg)
	case focusSubmit:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeySpace {
			return m, m.submit()
		}
		return m, nil
	case focusSelector:
		m.handleSelectorKey(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSelectorKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "up", "k":
		if m.selectorCursor > 0 {
			m.selectorCursor--
		}
	case "down", "j":
		if m.selectorCursor < len(model.AllFields)-1 {
			m.selectorCursor++
		}
	case " ", "enter", "x":
		m.state = m.state.Toggle(model.AllFields[m.selectorCursor])
	case "a":
		m.state = m.state.Select(model.NewSelection(model.AllFields...))
	case "n":
		m.state = m.state.Select(model.NewSelection())
	case "y":
		m.copyLines()
	}
}

// forward passes msg to the focused input and syncs the form text.
func (m *Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.focus == focusInput || !isKey(msg) {
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
		if value := m.editor.Value(); value != m.state.Input {
			m.state = m.state.Edit(value)
		}
	}
	if m.focus == focusFile || !isKey(msg) {
		m.fileInput, cmd = m.fileInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func isKey(msg tea.Msg) bool {
	_, ok := msg.(tea.KeyMsg)
	return ok
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	areas := []focusArea{focusInput, focusFile, focusSubmit}
	if m.state.SelectorVisible() {
		areas = append(areas, focusSelector)
	}
	idx := 0
	for i, area := range areas {
		if area == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(areas)) % len(areas)
	return m.setFocus(areas[idx])
}

func (m *Model) setFocus(area focusArea) tea.Cmd {
	m.focus = area
	m.editor.Blur()
	m.fileInput.Blur()
	switch area {
	case focusInput:
		return m.editor.Focus()
	case focusFile:
		return m.fileInput.Focus()
	}
	return nil
}

func (m *Model) applyFile() {
	path := strings.TrimSpace(m.fileInput.Value())
	if path == "" {
		m.state = m.state.DetachFile()
		m.notice = "File cleared"
		return
	}
	f, err := payload.LoadFile(path)
	if err != nil {
		m.notice = "Error: " + err.Error()
		log.Printf("attach %s: %v", path, err)
		return
	}
	m.state = m.state.AttachFile(f)
	m.notice = fmt.Sprintf("Attached %s", describeFile(f))
}

func (m *Model) submit() tea.Cmd {
	next, pending, err := m.state.Begin()
	m.state = next
	if err != nil {
		log.Printf("submit rejected: %v", err)
		return nil
	}
	log.Printf("submitting %d items (%s) to %s", pending.ItemCount, pending.Request.Mode, m.client.URL())
	return tea.Batch(m.spinner.Tick, postCmd(m.client, pending))
}

func postCmd(client Poster, pending form.Pending) tea.Cmd {
	return func() tea.Msg {
		startedAt := time.Now()
		result, err := client.Post(context.Background(), pending.Request)
		return submitDoneMsg{
			pending:   pending,
			result:    result,
			err:       err,
			startedAt: startedAt,
			endedAt:   time.Now(),
		}
	}
}

func (m *Model) handleDone(msg submitDoneMsg) {
	if !m.state.Busy() {
		log.Printf("dropping late result (status %d)", msg.result.Status)
		return
	}
	if msg.err != nil {
		m.state = m.state.Fail(msg.err)
		log.Printf("submission failed after %s: %v", transport.FormatDuration(msg.result.Duration), msg.err)
	} else {
		m.state = m.state.Succeed(msg.result.Response)
		log.Printf("submission succeeded: status %d in %s", msg.result.Status, transport.FormatDuration(msg.result.Duration))
	}
	m.lastStatus = msg.result.Status
	m.lastDuration = msg.result.Duration
	if m.focus == focusSelector && !m.state.SelectorVisible() {
		m.setFocus(focusInput)
	}
	m.record(msg)
}

func (m *Model) record(msg submitDoneMsg) {
	if m.recorder == nil {
		return
	}
	sub := msg.pending.Submission(m.client.URL(), msg.result.Status, msg.result.Raw, msg.err, msg.startedAt, msg.endedAt)
	if _, err := m.recorder.InsertSubmission(context.Background(), sub); err != nil {
		log.Printf("failed to record submission: %v", err)
	}
}

func (m *Model) copyLines() {
	lines := m.state.Lines()
	if len(lines) == 0 {
		m.notice = "Nothing to copy"
		return
	}
	if err := clipboard.WriteAll(strings.Join(lines, "\n")); err != nil {
		m.notice = "Error: failed to copy: " + err.Error()
		log.Printf("clipboard: %v", err)
		return
	}
	m.notice = fmt.Sprintf("Copied %d lines", len(lines))
}

func (m *Model) formWidth() int {
	if m.width == 0 {
		return maxFormWidth
	}
	width := m.width - inputHeadroom
	if width > maxFormWidth {
		width = maxFormWidth
	}
	if width < minFormWidth {
		width = minFormWidth
	}
	return width
}

func (m *Model) resize(width int) {
	m.editor.SetWidth(width - 2)
	m.fileInput.Width = width - len(m.fileInput.Prompt) - 1
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.formWidth()
	sections := []string{
		titleStyle.Render("JSON Input Form"),
		m.renderEditor(),
		m.fileInput.View(),
		m.renderAttachment(),
		m.renderSubmit(),
	}
	if m.state.Err != "" {
		sections = append(sections, errorStyle.Render(strings.Join(wrapText(m.state.Err, width), "\n")))
	}
	if m.notice != "" {
		sections = append(sections, mutedStyle.Render(m.notice))
	}
	if m.state.SelectorVisible() {
		sections = append(sections, m.renderSelector(), m.renderLines(width))
	}
	sections = append(sections, m.renderFooter())
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, content)
}

func (m *Model) renderEditor() string {
	style := editorStyle
	if m.focus == focusInput {
		style = activeEditorStyle
	}
	return style.Render(m.editor.View())
}

func (m *Model) renderAttachment() string {
	if m.state.File == nil {
		return mutedStyle.Render("No file attached")
	}
	return mutedStyle.Render("Attached: " + describeFile(*m.state.File))
}

func (m *Model) renderSubmit() string {
	if m.state.Busy() {
		return busyButtonStyle.Render(m.spinner.View() + " Submitting...")
	}
	if m.focus == focusSubmit {
		return activeButtonStyle.Render("Submit")
	}
	return buttonStyle.Render("Submit")
}

func (m *Model) renderSelector() string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render("Show fields:"))
	for i, f := range model.AllFields {
		mark := "[ ]"
		if m.state.Selection.Has(f) {
			mark = "[x]"
		}
		item := fmt.Sprintf("%s %s", mark, f.Label())
		b.WriteByte('\n')
		if m.focus == focusSelector && i == m.selectorCursor {
			b.WriteString(activeItemStyle.Render("> " + item))
			continue
		}
		b.WriteString("  " + item)
	}
	return b.String()
}

func (m *Model) renderLines(width int) string {
	lines := m.state.Lines()
	if len(lines) == 0 {
		return mutedStyle.Render("Select fields to display.")
	}
	var out []string
	for _, line := range lines {
		for i, part := range wrapText(line, width-2) {
			prefix := "  "
			if i == 0 {
				prefix = "• "
			}
			out = append(out, lineStyle.Render(prefix+part))
		}
	}
	return strings.Join(out, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{string(m.state.Options().Mode)}
	if m.lastStatus > 0 {
		segments = append(segments, fmt.Sprintf("HTTP %d", m.lastStatus))
	}
	if m.lastDuration > 0 {
		segments = append(segments, transport.FormatDuration(m.lastDuration))
	}
	segments = append(segments, fmt.Sprintf("%d/%d fields", m.state.Selection.Len(), len(model.AllFields)))
	segments = append(segments, "tab focus · ctrl+s submit · ctrl+y copy · ctrl+c quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}

func describeFile(f model.File) string {
	return fmt.Sprintf("%s (%s, %.1f KB)", f.Name, f.MIMEType, float64(len(f.Content))/1024)
}
